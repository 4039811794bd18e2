// Package server provides the HTTP API for doctext.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/doctext/internal/config"
	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/storage"
)

// Server is the HTTP server for the doctext API.
type Server struct {
	extractor *extract.Extractor
	storage   storage.Storage
	config    *config.ServerConfig
	logger    *zap.Logger
	diskPaths []string
	server    *http.Server
}

// NewServer creates a server with the given dependencies. diskPaths are
// reported as disk usage on the status endpoint.
func NewServer(
	extractor *extract.Extractor,
	store storage.Storage,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	diskPaths ...string,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		extractor: extractor,
		storage:   store,
		config:    cfg,
		logger:    logger,
		diskPaths: diskPaths,
	}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/extract", s.handleExtract)
	r.Get("/api/v1/extractions", s.handleListExtractions)
	r.Get("/api/v1/extractions/{id}", s.handleGetExtraction)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
