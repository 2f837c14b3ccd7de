package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rigscout/api"
)

// RigSource is the part of the MRR client the front door needs.
type RigSource interface {
	CheapestRig(ctx context.Context, algorithm string) (api.Rig, error)
	CheapestRigList(ctx context.Context, algorithm string, quantity int) ([]api.Rig, error)
	ListRigsRaw(ctx context.Context, algorithm string, filters *api.ListFilters) (json.RawMessage, error)
}

type Server struct {
	rigs  RigSource
	algos map[string]bool
	log   *logrus.Logger
}

func NewServer(rigs RigSource, algos []string, log *logrus.Logger) *Server {
	allowed := make(map[string]bool, len(algos))
	for _, algo := range algos {
		allowed[algo] = true
	}
	return &Server{rigs: rigs, algos: allowed, log: log}
}

const requestIDKey = "request_id"

// statusClientClosedRequest is nginx's code for a caller that went away.
const statusClientClosedRequest = 499

// Router builds the gin engine. Both read endpoints are served at the root
// and under /api.
func (s *Server) Router() *gin.Engine {
	engine := gin.New()
	engine.Use(requestID(), s.accessLog(), gin.Recovery())

	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Hello from rigscout!")
	})
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for _, group := range []*gin.RouterGroup{&engine.RouterGroup, engine.Group("/api")} {
		group.GET("/cheapest/:algo", s.cheapest)
		group.GET("/list", s.list)
	}
	return engine
}

// Handler wraps the router with CORS when origins are configured.
func (s *Server) Handler(corsOrigins []string) http.Handler {
	router := s.Router()
	if len(corsOrigins) == 0 {
		return router
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})(router)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start),
		}).Info("Request handled")
	}
}

func (s *Server) checkAlgo(algo string) error {
	if !s.algos[algo] {
		return fmt.Errorf("%w: %s", api.ErrUnsupportedAlgorithm, algo)
	}
	return nil
}

func (s *Server) supported(c *gin.Context, algo string) bool {
	if err := s.checkAlgo(algo); err != nil {
		s.fail(c, algo, err)
		return false
	}
	return true
}

// cheapest answers GET /cheapest/:algo, or up to ?quantity=N records.
func (s *Server) cheapest(c *gin.Context) {
	algo := c.Param("algo")
	if !s.supported(c, algo) {
		return
	}

	if q, ok := c.GetQuery("quantity"); ok {
		quantity, err := strconv.Atoi(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("Invalid quantity %q", q)})
			return
		}
		rigs, err := s.rigs.CheapestRigList(c.Request.Context(), algo, quantity)
		if err != nil {
			s.fail(c, algo, err)
			return
		}
		c.JSON(http.StatusOK, rigs)
		return
	}

	rig, err := s.rigs.CheapestRig(c.Request.Context(), algo)
	if err != nil {
		s.fail(c, algo, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", rig)
}

// list answers GET /list?algo=..., relaying MRR's response as is.
func (s *Server) list(c *gin.Context) {
	algo := c.Query("algo")
	if algo == "" {
		algo = c.Query("algorithm")
	}
	if !s.supported(c, algo) {
		return
	}

	var filters api.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		s.fail(c, algo, fmt.Errorf("%w: %v", api.ErrInvalidFilter, err))
		return
	}

	raw, err := s.rigs.ListRigsRaw(c.Request.Context(), algo, &filters)
	if err != nil {
		s.fail(c, algo, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (s *Server) fail(c *gin.Context, algo string, err error) {
	status := http.StatusBadGateway
	message := "Upstream request failed"

	var remote *api.RemoteServiceError
	switch {
	case errors.Is(err, api.ErrUnsupportedAlgorithm):
		status, message = http.StatusNotFound, fmt.Sprintf("Algo %s isn't supported", algo)
	case errors.Is(err, context.Canceled):
		status, message = statusClientClosedRequest, "Request cancelled"
	case errors.Is(err, api.ErrEmptyResult):
		status, message = http.StatusNotFound, fmt.Sprintf("No rigs available for algo %s", algo)
	case errors.Is(err, api.ErrInvalidFilter):
		status, message = http.StatusBadRequest, "Invalid list filters"
	case errors.Is(err, api.ErrInvalidQuantity):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, api.ErrTimeout):
		status, message = http.StatusGatewayTimeout, "Upstream request timed out"
	case errors.As(err, &remote) && remote.Message != "":
		message = "Upstream error: " + remote.Message
	}

	entry := s.log.WithFields(logrus.Fields{
		"request_id": c.GetString(requestIDKey),
		"algo":       algo,
		"status":     status,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("MRR call failed")
	} else {
		entry.Debug("Request rejected")
	}
	c.JSON(status, gin.H{"message": message})
}
