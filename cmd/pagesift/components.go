package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/pagesift/internal/cache"
	"github.com/hyperjump/pagesift/internal/classify"
	"github.com/hyperjump/pagesift/internal/config"
	"github.com/hyperjump/pagesift/internal/embedding"
	"github.com/hyperjump/pagesift/internal/extract"
	"github.com/hyperjump/pagesift/internal/indexer"
	"github.com/hyperjump/pagesift/internal/keyword"
	"github.com/hyperjump/pagesift/internal/models"
	"github.com/hyperjump/pagesift/internal/search"
	"github.com/hyperjump/pagesift/internal/storage"
	"github.com/hyperjump/pagesift/internal/vectorstore"
	"github.com/hyperjump/pagesift/pkg/utils"
)

// Components holds the wired ingestion and retrieval pipeline.
type Components struct {
	Config     *config.Config
	Cache      *cache.TTLCache
	Extractor  *extract.Extractor
	Embedder   embedding.Embedder
	Classifier *classify.Classifier
	Store      *vectorstore.Store
	Pages      *keyword.PageIndex
	Indexer    *indexer.Indexer
	Engine     *search.Engine

	logger *zap.Logger
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debugMode bool) (*Components, error) {
	ctx := context.Background()
	c := &Components{Config: cfg, logger: logger}

	c.Cache = cache.New(cfg.Fetch.CacheTTL)
	extractOpts := []extract.ExtractorOption{
		extract.WithTimeout(cfg.Fetch.Timeout),
		extract.WithMaxBodyBytes(cfg.Fetch.MaxBodyBytes),
	}
	if cfg.Fetch.UserAgent != "" {
		extractOpts = append(extractOpts, extract.WithUserAgent(cfg.Fetch.UserAgent))
	}
	if debugMode {
		extractOpts = append(extractOpts, extract.WithLogger(logger))
	}
	c.Extractor = extract.NewExtractor(c.Cache, extractOpts...)

	embedder, err := embedding.New(embedding.Options{
		Provider:   cfg.Embedding.Provider,
		ModelPath:  cfg.Embedding.ModelPath,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		OllamaURL:  cfg.Ollama.URL,
		CacheSize:  cfg.Embedding.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	c.Embedder = embedder

	model, err := classify.NewModel(cfg.Classifier.Model, embedder, cfg.Ollama.URL, cfg.Classifier.OllamaModel)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}
	c.Classifier = classify.NewClassifier(model,
		classify.WithMaxTokens(cfg.Classifier.MaxTokens),
		classify.WithLogger(logger),
	)

	dedup, err := vectorstore.ParseDedupMode(cfg.Store.Dedup)
	if err != nil {
		c.Close()
		return nil, err
	}
	backend, err := vectorstore.OpenBackend(ctx, vectorstore.BackendConfig{
		Kind:         cfg.Storage.Backend,
		DatabasePath: cfg.Storage.DatabasePath,
		IndexPath:    cfg.Storage.IndexPath,
		PostgresDSN:  cfg.Storage.PostgresDSN,
		Collection:   cfg.Storage.Collection,
	}, embedder.Dimensions(), logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	store, err := vectorstore.New(backend, embedder,
		vectorstore.WithDedupMode(dedup),
		vectorstore.WithLogger(logger),
	)
	if err != nil {
		_ = backend.Close()
		c.Close()
		return nil, err
	}
	c.Store = store

	if cfg.Storage.TextIndexPath != "" {
		pages, err := keyword.NewPageIndex(cfg.Storage.TextIndexPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to open page index: %w", err)
		}
		c.Pages = pages
	}

	idxOpts := []indexer.IndexerOption{
		indexer.WithLogger(logger),
		indexer.WithWorkers(cfg.Ingest.Workers),
	}
	engineOpts := []search.EngineOption{}
	if c.Pages != nil {
		idxOpts = append(idxOpts, indexer.WithPageIndex(c.Pages))
		engineOpts = append(engineOpts, search.WithPageIndex(c.Pages))
	}
	c.Indexer = indexer.NewIndexer(c.Extractor, c.Classifier, embedder, store, idxOpts...)
	c.Engine = search.NewEngine(c.Classifier, embedder, store, engineOpts...)

	logger.Debug("components initialized",
		zap.String("backend", store.Backend()),
		zap.String("dedup", string(dedup)),
		zap.Int("dimensions", embedder.Dimensions()),
		zap.String("classifier", cfg.Classifier.Model),
	)
	return c, nil
}

// Status reports the store, cache and page index state.
func (c *Components) Status(ctx context.Context) (*models.Status, error) {
	n, err := c.Store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	coll := c.Store.Collection()
	st := &models.Status{
		Collection:   coll.Name,
		Records:      n,
		Dimensions:   coll.Dimensions,
		Distance:     coll.Distance,
		Backend:      c.Store.Backend(),
		DedupMode:    string(c.Store.DedupMode()),
		CacheEntries: c.Cache.Len(),
	}
	if c.Pages != nil {
		docs, err := c.Pages.DocCount()
		if err != nil {
			return nil, fmt.Errorf("count page index: %w", err)
		}
		st.TextIndexDocs = docs
	}
	if c.Store.Backend() == "local" {
		if size, err := storage.DiskUsageBytes(
			c.Config.Storage.DatabasePath,
			c.Config.Storage.IndexPath,
			c.Config.Storage.TextIndexPath,
		); err == nil {
			st.DiskUsageBytes = size
		}
	}
	return st, nil
}

// Close releases the page index, store and embedder. Failures are logged.
func (c *Components) Close() {
	logger := utils.OrNop(c.logger)
	if c.Pages != nil {
		if err := c.Pages.Close(); err != nil {
			logger.Warn("page index close failed", zap.Error(err))
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			logger.Warn("vector store close failed", zap.Error(err))
		}
	}
	if c.Embedder != nil {
		if err := c.Embedder.Close(); err != nil {
			logger.Warn("embedder close failed", zap.Error(err))
		}
	}
}
