// Package server provides the HTTP API for matomeru.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/matomeru/internal/config"
	"github.com/hyperjump/matomeru/internal/engine"
	"github.com/hyperjump/matomeru/pkg/utils"
)

// WatchService reports the watched directories (implemented by watcher.Watcher).
type WatchService interface {
	Directories() []string
}

// Server is the HTTP server for the clustering API.
type Server struct {
	engine     *engine.Engine
	config     *config.Config
	configPath string
	configMu   sync.Mutex
	watch      WatchService
	kinds      *kindIndex
	logger     *zap.Logger
	instanceID string
	started    time.Time
	server     *http.Server
}

// NewServer creates a server for eng. When configPath is non-empty, threshold
// changes are written back to it. watch may be nil.
func NewServer(eng *engine.Engine, cfg *config.Config, configPath string, logger *zap.Logger, watch WatchService) *Server {
	return &Server{
		engine:     eng,
		config:     cfg,
		configPath: configPath,
		watch:      watch,
		kinds:      newKindIndex(),
		logger:     utils.OrNop(logger),
		instanceID: uuid.NewString(),
		started:    time.Now(),
	}
}

// reservedID reports whether id belongs to the watched-file range, which API
// clients may not add, replace or remove.
func (s *Server) reservedID(id int) bool {
	if s.watch == nil || s.config == nil || s.config.Watch.IDBase <= 0 {
		return false
	}
	return id >= s.config.Watch.IDBase
}

func (s *Server) titleOnlyHosts() []string {
	if s.config == nil {
		return nil
	}
	return s.config.Clustering.TitleOnlyHosts
}

// InstanceID identifies this server process in status responses and logs.
func (s *Server) InstanceID() string {
	return s.instanceID
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/items", s.handleAddItem)
		r.Put("/items/{id}", s.handleReplaceItem)
		r.Delete("/items/{id}", s.handleRemoveItem)
		r.Get("/clusters", s.handleClusters)
		r.Get("/threshold", s.handleGetThreshold)
		r.Put("/threshold", s.handleSetThreshold)
		r.Get("/similarities", s.handleSimilarities)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	handler := s.Router()
	if s.config.Debug {
		handler = middleware.Logger(handler)
	}
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr), zap.String("instance", s.instanceID))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
