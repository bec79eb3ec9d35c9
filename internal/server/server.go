// Package server provides the HTTP API for kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/schema"
	"github.com/hyperjump/kotae/internal/sqlcheck"
)

// SchemaManager is the schema snapshot owner the server reloads through.
type SchemaManager interface {
	Catalog() *schema.Catalog
	Reload() error
}

// CorpusManager is the corpus snapshot owner the server reloads through.
type CorpusManager interface {
	Snapshot() *corpus.Snapshot
	Reload(ctx context.Context) error
}

// Server is the HTTP server for the kotae API.
type Server struct {
	assistant *pipeline.Assistant
	retriever *retrieval.Retriever
	validator *sqlcheck.Validator
	schemaMgr SchemaManager
	corpusMgr CorpusManager
	sessions  *pipeline.SessionStore
	registry  *prometheus.Registry
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. registry may be nil
// when metrics are not exposed.
func NewServer(
	assistant *pipeline.Assistant,
	retriever *retrieval.Retriever,
	validator *sqlcheck.Validator,
	schemaMgr SchemaManager,
	corpusMgr CorpusManager,
	registry *prometheus.Registry,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		assistant: assistant,
		retriever: retriever,
		validator: validator,
		schemaMgr: schemaMgr,
		corpusMgr: corpusMgr,
		sessions:  pipeline.NewSessionStore(),
		registry:  registry,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Post("/api/v1/retrieve", s.handleRetrieve)
	r.Post("/api/v1/validate", s.handleValidate)
	r.Post("/api/v1/reload", s.handleReload)
	r.Get("/api/v1/status", s.handleStatus)

	r.Post("/api/v1/fix", s.handleFixOpen)
	r.Get("/api/v1/fix/{id}", s.handleFixGet)
	r.Post("/api/v1/fix/{id}/propose", s.handleFixPropose)
	r.Post("/api/v1/fix/{id}/apply", s.handleFixApply)
	r.Post("/api/v1/fix/{id}/reject", s.handleFixReject)

	r.Get("/health", s.handleHealth)
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
