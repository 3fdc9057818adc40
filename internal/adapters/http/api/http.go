// Package api declares the recommendation service's HTTP contract and
// route registration.
package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/okian/inferd/internal/adapters/http/middleware"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Recommend returns the ordered top-N titles for user.
	Recommend(ctx context.Context, user int64) ([]string, error)

	// Ready reports whether the artifacts are loaded.
	Ready() bool
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithServiceName sets the name reported by the root health check.
func WithServiceName(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.serviceName = name
		}
	}
}

// Server wires HTTP routes for the recommendation API.
type Server struct {
	serviceName string

	healthHandler          *HealthHandler
	statsHandler           *StatsHandler
	recommendationsHandler *RecommendationsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{serviceName: "GoodReads Recommender API"}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler(s.serviceName)
	s.statsHandler = NewStatsHandler(statsProvider)
	s.recommendationsHandler = NewRecommendationsHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", middleware.Metrics(s.healthHandler.HandleRoot, "root"))
	mux.HandleFunc("GET /metrics", middleware.Metrics(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("GET /stats", middleware.Metrics(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /recommendations/{user_id}",
		middleware.Metrics(s.recommendationsHandler.HandleGetRecommendations, "recommendations"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends a client-safe message. Internal error text never goes
// on the wire.
func writeError(w http.ResponseWriter, status int, code, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
