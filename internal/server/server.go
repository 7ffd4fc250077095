// Package server provides the HTTP API for pagesift.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/pagesift/internal/config"
	"github.com/hyperjump/pagesift/internal/keyword"
	"github.com/hyperjump/pagesift/internal/models"
	"github.com/hyperjump/pagesift/pkg/utils"
)

// Ingester ingests batches of URLs.
type Ingester interface {
	IngestBatch(ctx context.Context, urls []string) []*models.IngestResult
}

// Retriever answers semantic and keyword queries.
type Retriever interface {
	Retrieve(ctx context.Context, text string, limit int) ([]*models.SearchResult, error)
	SearchPages(ctx context.Context, query string, limit int, opts *keyword.SearchOptions) ([]*models.PageHit, error)
}

// StatusFunc reports store status.
type StatusFunc func(ctx context.Context) (*models.Status, error)

// WatchService manages watched URL list directories.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the pagesift API.
type Server struct {
	ingester  Ingester
	retriever Retriever
	status    StatusFunc
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server

	watch         WatchService
	configPath    string
	watchConfig   *config.Config
	watchConfigMu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithWatch enables the watch directory endpoints. When configPath is set,
// directory changes are persisted to it through cfg.
func WithWatch(w WatchService, configPath string, cfg *config.Config) Option {
	return func(s *Server) {
		s.watch = w
		s.configPath = configPath
		s.watchConfig = cfg
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(
	ingester Ingester,
	retriever Retriever,
	status StatusFunc,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	logger = utils.OrNop(logger)
	s := &Server{
		ingester:  ingester,
		retriever: retriever,
		status:    status,
		config:    cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/scrape", s.handleScrape)
	r.Post("/search", s.handleSearch)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scrape", s.handleScrape)
		r.Post("/search", s.handleSearch)
		r.Get("/pages/search", s.handlePageSearch)
		r.Get("/status", s.handleStatus)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
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
