// Package server provides the HTTP API for Meibo.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/meibo/internal/config"
	"github.com/hyperjump/meibo/internal/directory"
	"github.com/hyperjump/meibo/internal/orchestrator"
)

// Server is the HTTP server for the Meibo API.
type Server struct {
	orch   *orchestrator.Orchestrator
	store  directory.Store
	config *config.ServerConfig
	appCfg *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies. appCfg may be nil;
// it only enriches the status endpoint.
func NewServer(
	orch *orchestrator.Orchestrator,
	store directory.Store,
	cfg *config.ServerConfig,
	appCfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		orch:   orch,
		store:  store,
		config: cfg,
		appCfg: appCfg,
		logger: logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/search/more", s.handleSearchMore)
	r.Post("/api/v1/cancel", s.handleCancel)
	r.Get("/api/v1/important", s.handleImportant)
	r.Get("/api/v1/coverage", s.handleCoverage)
	r.Post("/api/v1/entries", s.handleAddEntries)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
