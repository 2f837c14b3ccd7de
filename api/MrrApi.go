package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://www.miningrigrentals.com"
	DefaultTimeout = 15 * time.Second
)

// Client talks to the MiningRigRentals v1 API. It holds no per-call state and
// is safe for concurrent use.
//
// The API only reports connection and signature problems as errors; anything
// else comes back with success=false, which is turned into a
// RemoteServiceError here.
type Client struct {
	creds   Credentials
	baseURL string
	http    *http.Client
	timeout time.Duration
	log     logrus.FieldLogger
	now     func() time.Time
}

type Option func(*Client)

// WithBaseURL points the client at another host, mostly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout bounds every outbound call. It applies to a copy of the HTTP
// client, so a client passed with WithHTTPClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient sets the transport. Its own Timeout is kept unless
// WithTimeout is also given.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(creds Credentials, opts ...Option) *Client {
	c := &Client{
		creds:   creds,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     logrus.StandardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

type request struct {
	params Params
	rental bool // selects the rental resource; never sent
}

func (c *Client) post(ctx context.Context, req request) (json.RawMessage, error) {
	method := req.params.Get("method")
	path, err := ResolvePath(method, req.rental)
	if err != nil {
		return nil, err
	}

	req.params.Set("nonce", Nonce(c.now()))
	body := req.params.Encode()
	sign := Sign(c.creds.Secret, body)

	url := fmt.Sprintf("%s/api/v1/%s", c.baseURL, path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("x-api-key", c.creds.Key)
	httpReq.Header.Set("x-api-sign", sign)

	c.log.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
	}).Debug("Calling MRR")

	res, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Method: method, Timeout: isTimeout(err), Err: err}
	}
	defer res.Body.Close()

	raw, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Timeout: isTimeout(err), Err: err}
	}

	var envelope Response
	decodeErr := json.Unmarshal(raw, &envelope)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		rerr := &RemoteServiceError{Method: method, StatusCode: res.StatusCode}
		if decodeErr == nil {
			rerr.Message = remoteMessage(envelope.Data)
		}
		return nil, rerr
	}
	if decodeErr != nil {
		return nil, &DecodeError{Method: method, Body: raw, Err: decodeErr}
	}
	if !envelope.Success {
		return nil, &RemoteServiceError{
			Method:     method,
			StatusCode: res.StatusCode,
			Message:    remoteMessage(envelope.Data),
		}
	}
	return raw, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// remoteMessage digs the human readable reason out of a failed response.
func remoteMessage(data json.RawMessage) string {
	var withMessage struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &withMessage) == nil && withMessage.Message != "" {
		return withMessage.Message
	}
	var plain string
	if json.Unmarshal(data, &plain) == nil {
		return plain
	}
	return ""
}

// call posts and decodes the data member of the envelope into out.
func (c *Client) call(ctx context.Context, req request, out interface{}) error {
	raw, err := c.post(ctx, req)
	if err != nil {
		return err
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &DecodeError{Method: req.params.Get("method"), Body: raw, Err: err}
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &DecodeError{Method: req.params.Get("method"), Body: raw, Err: err}
	}
	return nil
}

func listRequest(algorithm string, filters *ListFilters) (request, error) {
	if err := filters.Validate(); err != nil {
		return request{}, err
	}
	p := NewParams("list")
	p.Set("type", algorithm)
	filters.apply(p)
	return request{params: p}, nil
}

// ListRigsRaw returns the whole list response as MRR sent it.
func (c *Client) ListRigsRaw(ctx context.Context, algorithm string, filters *ListFilters) (json.RawMessage, error) {
	req, err := listRequest(algorithm, filters)
	if err != nil {
		return nil, err
	}
	return c.post(ctx, req)
}

// ListRigs gets the rigs offered for an algorithm.
func (c *Client) ListRigs(ctx context.Context, algorithm string, filters *ListFilters) (*RigList, error) {
	req, err := listRequest(algorithm, filters)
	if err != nil {
		return nil, err
	}
	list := new(RigList)
	if err := c.call(ctx, req, list); err != nil {
		return nil, err
	}
	return list, nil
}

// byPrice asks MRR to order the list cheapest first. The result is used in
// the order it arrives.
func byPrice() *ListFilters {
	return &ListFilters{Order: "price", OrderDir: "asc"}
}

// CheapestRig returns the first record of the price ordered list.
func (c *Client) CheapestRig(ctx context.Context, algorithm string) (Rig, error) {
	list, err := c.ListRigs(ctx, algorithm, byPrice())
	if err != nil {
		return nil, err
	}
	if len(list.Records) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrEmptyResult, algorithm)
	}
	return list.Records[0], nil
}

// CheapestRigList returns up to quantity records of the price ordered list.
// A shorter list is returned whole.
func (c *Client) CheapestRigList(ctx context.Context, algorithm string, quantity int) ([]Rig, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	list, err := c.ListRigs(ctx, algorithm, byPrice())
	if err != nil {
		return nil, err
	}
	if len(list.Records) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrEmptyResult, algorithm)
	}
	if len(list.Records) < quantity {
		c.log.WithFields(logrus.Fields{
			"algorithm": algorithm,
			"wanted":    quantity,
			"got":       len(list.Records),
		}).Debug("Fewer rigs than requested")
		quantity = len(list.Records)
	}
	return list.Records[:quantity], nil
}

func (c *Client) RigDetail(ctx context.Context, id int) (Rig, error) {
	p := NewParams("detail")
	p.Set("id", strconv.Itoa(id))
	var rig Rig
	err := c.call(ctx, request{params: p}, &rig)
	return rig, err
}

func (c *Client) RentalDetail(ctx context.Context, id int) (json.RawMessage, error) {
	p := NewParams("detail")
	p.Set("id", strconv.Itoa(id))
	var rental json.RawMessage
	err := c.call(ctx, request{params: p, rental: true}, &rental)
	return rental, err
}

func (c *Client) MyRigs(ctx context.Context) (json.RawMessage, error) {
	var rigs json.RawMessage
	err := c.call(ctx, request{params: NewParams("myrigs")}, &rigs)
	return rigs, err
}

func (c *Client) MyRentals(ctx context.Context) (json.RawMessage, error) {
	var rentals json.RawMessage
	err := c.call(ctx, request{params: NewParams("myrentals")}, &rentals)
	return rentals, err
}

// UpdateRig changes the details of one of your rigs.
func (c *Client) UpdateRig(ctx context.Context, u UpdateRigParams) (json.RawMessage, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	p := NewParams("update")
	u.apply(p)
	var out json.RawMessage
	err := c.call(ctx, request{params: p}, &out)
	return out, err
}

// Rent rents rig id for length hours using a saved pool profile.
func (c *Client) Rent(ctx context.Context, id int, length float64, profileID int) (json.RawMessage, error) {
	p := NewParams("rent")
	p.Set("id", strconv.Itoa(id))
	p.setFloat("length", &length)
	p.Set("profileid", strconv.Itoa(profileID))
	var out json.RawMessage
	err := c.call(ctx, request{params: p}, &out)
	return out, err
}

// Balance grabs the confirmed and unconfirmed BTC balance of the account.
func (c *Client) Balance(ctx context.Context) (Balance, error) {
	var b Balance
	err := c.call(ctx, request{params: NewParams("balance")}, &b)
	return b, err
}

func (c *Client) FavoritePools(ctx context.Context) ([]Pool, error) {
	var pools []Pool
	err := c.call(ctx, request{params: NewParams("pools")}, &pools)
	return pools, err
}

func (c *Client) Profiles(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	err := c.call(ctx, request{params: NewParams("profiles")}, &profiles)
	return profiles, err
}
