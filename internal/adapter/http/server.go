// Package http exposes the ops surface for long harvest runs: health and
// readiness probes, prometheus metrics, and a live view of the unknown
// tokens collected so far.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marshbird/sightings-etl/internal/pipeline"
)

// ReadinessChecker reports whether the pipeline has processed at least one
// page and is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// UnknownReporter exposes the pipeline's unknown-token collectors.
type UnknownReporter interface {
	UnknownSpecies() *pipeline.UnknownTokens
	UnknownLocations() *pipeline.UnknownTokens
}

// Server exposes health, readiness, metrics, and unknown-token endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /unknowns routes. unknowns may be nil when the pipeline is not running.
func NewServer(addr string, ready ReadinessChecker, unknowns UnknownReporter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.HandleFunc("GET /unknowns", handleUnknowns(unknowns))
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
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func handleUnknowns(reporter UnknownReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if reporter == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "pipeline not running",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]map[string]int{
			"species":   reporter.UnknownSpecies().Counts(),
			"locations": reporter.UnknownLocations().Counts(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort probe response
}
