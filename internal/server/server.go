// Package server provides the HTTP API for the knowledge engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/brendanmarry/withwilma-sub001/internal/config"
	"github.com/brendanmarry/withwilma-sub001/internal/dedup"
	"github.com/brendanmarry/withwilma-sub001/internal/ingest"
	"github.com/brendanmarry/withwilma-sub001/internal/search"
	"github.com/brendanmarry/withwilma-sub001/internal/storage"
)

// Server is the HTTP server for the knowledge engine API.
type Server struct {
	ingest    *ingest.Service
	retriever *search.Retriever
	dedup     *dedup.Deduplicator
	storage   storage.Storage
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	ing *ingest.Service,
	retriever *search.Retriever,
	d *dedup.Deduplicator,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		ingest:    ing,
		retriever: retriever,
		dedup:     d,
		storage:   store,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/organisations", s.handleCreateOrganisation)
		r.Get("/organisations/{id}", s.handleGetOrganisation)
		r.Post("/organisations/{id}/crawl", s.handleCrawl)
		r.Post("/organisations/{id}/documents", s.handleIngestDocument)
		r.Post("/organisations/{id}/search", s.handleSearch)
		r.Post("/organisations/{id}/dedupe", s.handleDedupe)
		r.Get("/organisations/{id}/jobs", s.handleListJobs)
		r.Post("/organisations/{id}/faqs", s.handleCreateFAQ)
		r.Get("/organisations/{id}/faqs", s.handleListFAQs)
		r.Delete("/documents/{id}", s.handleDeleteDocument)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
