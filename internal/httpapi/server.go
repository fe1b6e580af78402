// Package httpapi exposes a broker.Registry over HTTP/JSON and WebSocket.
//
// Every handler is a thin adapter: it decodes the request, calls exactly one
// registry operation and encodes the result. Authorization and retention
// rules live entirely in the registry.
//
// Basic usage:
//
//	srv := httpapi.New(reg, nil)
//	log.Fatal(http.ListenAndServe(":8080", srv.Handler()))
package httpapi

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/vnykmshr/topiclog/internal/broker"
	"github.com/vnykmshr/topiclog/internal/logging"
	"github.com/vnykmshr/topiclog/internal/metrics"
)

// Snapshotter provides a metrics snapshot for GET /metrics.
type Snapshotter interface {
	GetSnapshot() *metrics.Snapshot
}

// Options configures the HTTP transport.
type Options struct {
	// PollTimeout is used when a poll request carries no timeout
	// Default: 30s
	PollTimeout time.Duration

	// MaxPollTimeout caps requested poll timeouts; polls that ask to wait
	// forever are capped too (0 = no cap)
	// Default: 60s
	MaxPollTimeout time.Duration

	// MaxBodyBytes limits request body size
	// Default: 4 MB
	MaxBodyBytes int64

	// WriteTimeout bounds each WebSocket frame write
	// Default: 10s
	WriteTimeout time.Duration

	// Logger for request logging (nil = no logging)
	Logger logging.Logger

	// Metrics backs GET /metrics (nil = endpoint returns 404)
	Metrics Snapshotter
}

// DefaultOptions returns sensible defaults for the HTTP transport.
func DefaultOptions() *Options {
	return &Options{
		PollTimeout:    30 * time.Second,
		MaxPollTimeout: 60 * time.Second,
		MaxBodyBytes:   4 << 20,
		WriteTimeout:   10 * time.Second,
		Logger:         logging.NoopLogger{},
	}
}

// Server serves the registry API.
type Server struct {
	reg  *broker.Registry
	opts *Options
	mux  *http.ServeMux
}

// New creates a Server for reg. A nil opts uses DefaultOptions.
func New(reg *broker.Registry, opts *Options) *Server {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoopLogger{}
	}

	s := &Server{
		reg:  reg,
		opts: opts,
		mux:  http.NewServeMux(),
	}
	s.routes()

	return s
}

// Handler returns the root handler with request logging applied.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /topics", s.handleCreateTopic)
	s.mux.HandleFunc("GET /topics", s.handleListTopics)
	s.mux.HandleFunc("GET /topics/{topic}", s.handleTopicStats)
	s.mux.HandleFunc("DELETE /topics/{topic}", s.handleRemoveTopic)

	s.mux.HandleFunc("POST /topics/{topic}/producers", s.handleRegisterProducer)
	s.mux.HandleFunc("DELETE /topics/{topic}/producers/{id}", s.handleUnregisterProducer)
	s.mux.HandleFunc("POST /topics/{topic}/subscribers", s.handleRegisterSubscriber)
	s.mux.HandleFunc("DELETE /topics/{topic}/subscribers/{id}", s.handleUnregisterSubscriber)

	s.mux.HandleFunc("POST /topics/{topic}/messages", s.handlePublish)
	s.mux.HandleFunc("GET /topics/{topic}/messages", s.handlePoll)
	s.mux.HandleFunc("GET /topics/{topic}/stream", s.handleStream)

	s.mux.HandleFunc("GET /metrics", s.handleMetrics)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrade take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.opts.Logger.Debug("http request",
			logging.F("method", r.Method),
			logging.F("path", r.URL.Path),
			logging.F("status", rec.status),
			logging.F("duration", time.Since(start)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Metrics == nil {
		writeError(w, errNotFound.withMessage("metrics are not enabled"))
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Metrics.GetSnapshot())
}
