package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// QueryTimeout bounds the total duration of a single /api/query request.
	QueryTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Documents describes the loaded corpus, served by GET /api/corpus.
	Documents []DocumentInfo
	// MetricsRegistry receives the server's Prometheus metrics.
	// If nil, prometheus.DefaultRegisterer is used.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs the GET /metrics endpoint.
	// If nil, prometheus.DefaultGatherer is used.
	MetricsGatherer prometheus.Gatherer
}

// DocumentInfo is one corpus document as reported by GET /api/corpus.
type DocumentInfo struct {
	// ID is the stable document identifier.
	ID string `json:"id"`
	// Title is the human-readable document title.
	Title string `json:"title"`
	// Synopsis is the one-paragraph document summary used for tool routing.
	Synopsis string `json:"synopsis"`
	// Chunks is the number of indexed chunks for this document.
	Chunks int `json:"chunks"`
}

// querier is the interface handleQuery calls to stream a response.
// *agent.Agent satisfies it; tests inject a fake.
type querier interface {
	// Query streams the answer for question to w.
	Query(ctx context.Context, question string, w io.Writer) error
}

// Server is the HTTP server that wraps the top-level document agent.
type Server struct {
	// querier answers /api/query requests; the production agent in serve mode,
	// a fake in tests.
	querier querier
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// docs is the corpus listing served by GET /api/corpus.
	docs []DocumentInfo
	// metrics holds the server's Prometheus instruments.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// Question is the user's natural language question about the corpus.
	Question string `json:"question"`
}

// corpusResponse is the JSON response for GET /api/corpus.
type corpusResponse struct {
	// Documents lists every loaded corpus document in ingestion order.
	Documents []DocumentInfo `json:"documents"`
	// Chunks is the total chunk count across all documents.
	Chunks int `json:"chunks"`
}
