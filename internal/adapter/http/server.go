// Package http exposes the polling daemon's operational endpoints.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusReporter describes the poll loop to the operational endpoints.
// Implemented by poller.Poller.
type StatusReporter interface {
	// CheckReadiness returns nil once the loop has completed a poll.
	CheckReadiness(ctx context.Context) error

	// Site is the station ID the loop polls.
	Site() string

	// LastObserved is the observation time of the newest published row,
	// zero before the first publish.
	LastObserved() time.Time
}

// statusResponse is the JSON body served by /healthz and /readyz.
type statusResponse struct {
	Status       string `json:"status"`
	Site         string `json:"site"`
	LastObserved string `json:"last_observed,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Server exposes health, readiness, and metrics HTTP endpoints for the
// polling daemon.
type Server struct {
	httpServer *http.Server
	poll       StatusReporter
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, and /metrics routes
// reporting on the given poll loop.
func NewServer(addr string, poll StatusReporter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		poll:   poll,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status: "healthy",
		Site:   s.poll.Site(),
	})
}

// handleReady reports readiness plus the poll cursor, so an operator can see
// at a glance how far behind the station feed the daemon is.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := statusResponse{Site: s.poll.Site()}
	if last := s.poll.LastObserved(); !last.IsZero() {
		resp.LastObserved = last.UTC().Format(time.RFC3339)
	}

	if err := s.poll.CheckReadiness(ctx); err != nil {
		resp.Status = "not ready"
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Status = "ready"
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort status response
}
