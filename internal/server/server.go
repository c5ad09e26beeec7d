// Package server exposes the current snapshot and the manual refresh
// trigger over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coinfeed/internal/ratelimit"
	"coinfeed/internal/refresh"
	"coinfeed/internal/snapshot"
)

// Source is the part of the refresh trigger the server reads and drives
type Source interface {
	State() refresh.LoadState
	LastError() error
	Current() snapshot.Snapshot
	RequestRefresh(ctx context.Context) bool
}

// Config holds the HTTP server configuration.
type Config struct {
	Addr string
	// Limiter gates POST /api/refresh; nil means unlimited
	Limiter *ratelimit.Limiter
	// Gatherer backs /metrics; nil uses the default registry
	Gatherer prometheus.Gatherer
	// OnCoalesced is called when a manual refresh is dropped
	OnCoalesced func(source string)
}

// Server serves the read and trigger API
type Server struct {
	httpServer *http.Server
	source     Source
	cfg        Config
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered.
func NewServer(cfg Config, source Source, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		source: source,
		cfg:    cfg,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/prices", s.handlePrices)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	var h http.Handler = mux
	h = recoverPanic(logger)(h)
	h = logging(logger)(h)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
