// Package api exposes the narration service over HTTP: job creation and
// status, audio and metadata retrieval, a WebSocket progress stream, provider
// discovery, and Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxline/narravox/internal/config"
	"github.com/voxline/narravox/internal/jobs"
	"github.com/voxline/narravox/internal/tts"
)

// Server handles HTTP API requests.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	server   *http.Server
	manager  *jobs.Manager
	registry *tts.Registry
}

// New creates a new API server.
func New(cfg *config.Config, logger *slog.Logger, manager *jobs.Manager, registry *tts.Registry) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		manager:  manager,
		registry: registry,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/generate", s.withAuth(s.handleGenerate))
	mux.HandleFunc("GET /v1/jobs/{id}", s.withAuth(s.handleJobStatus))
	mux.HandleFunc("GET /v1/jobs/{id}/audio", s.withAuth(s.handleJobAudio))
	mux.HandleFunc("GET /v1/jobs/{id}/metadata", s.withAuth(s.handleJobMetadata))
	mux.HandleFunc("GET /v1/jobs/{id}/events", s.withAuth(s.handleJobEvents))
	mux.HandleFunc("GET /v1/providers", s.withAuth(s.handleProviders))
	mux.HandleFunc("GET /v1/providers/{name}/voices", s.withAuth(s.handleProviderVoices))

	s.server = &http.Server{
		Addr:        cfg.Server.ListenAddr,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: the events endpoint holds a WebSocket open for
		// the lifetime of a job.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the server's HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
