package api

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

var (
	RigMethods     = []string{"list", "detail", "update", "rent"}
	RentalMethods  = []string{"detail"}
	AccountMethods = []string{"myrigs", "myrentals", "balance", "pools", "profiles"}
)

// Algorithms lists the algorithm names MRR knows about. It is informational:
// no method checks its argument against it.
var Algorithms = []string{
	"scrypt", "sha256", "x11", "lbry", "hashimotos", "groestl",
	"equihash", "lyra2re", "qubit", "cryptonote",
	"nscrypt", "neoscrypt", "nist5", "pluck", "quark", "timetravel10",
	"scryptjane", "sha3", "whirlpoolx", "m7m", "x13", "x14", "x15", "blake2s",
	"blake256", "lyra2rev2", "lyra2z", "sia", "x17", "c11", "skunk", "hashimotog",
	"hmq1725",
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ResolvePath maps a method name to its resource path, e.g. "rig?method=list".
// detail exists on both rigs and rentals; rental picks the latter.
func ResolvePath(method string, rental bool) (string, error) {
	switch {
	case rental && contains(RentalMethods, method):
		return "rental?method=" + method, nil
	case contains(RigMethods, method):
		return "rig?method=" + method, nil
	case contains(RentalMethods, method):
		return "rental?method=" + method, nil
	case contains(AccountMethods, method):
		return "account?method=" + method, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
}

// Params is the form sent to MRR. Encode sorts by key so equal params always
// produce the same string.
type Params struct {
	url.Values
}

func NewParams(method string) Params {
	p := Params{url.Values{}}
	p.Set("method", method)
	return p
}

func (p Params) setFloat(key string, v *float64) {
	if v != nil {
		p.Set(key, strconv.FormatFloat(*v, 'f', -1, 64))
	}
}

// Nonce renders t as integer milliseconds with ten fixed decimals.
func Nonce(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano()/int64(time.Millisecond)), 'f', 10, 64)
}

// Sign returns the hex HMAC-SHA1 of payload keyed by secret.
func Sign(secret, payload string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
