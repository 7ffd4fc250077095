// Package indexer runs the ingestion pipeline: fetch, classify, embed and
// store each page once per URL.
package indexer

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/pagesift/internal/embedding"
	"github.com/hyperjump/pagesift/internal/keyword"
	"github.com/hyperjump/pagesift/internal/models"
)

// DefaultWorkers bounds batch concurrency when no option is given.
const DefaultWorkers = 4

// Fetcher returns the visible text of a page.
type Fetcher interface {
	FetchAndExtract(ctx context.Context, url string) (string, error)
}

// Classifier assigns a category to page text.
type Classifier interface {
	Classify(ctx context.Context, text string) (models.Category, error)
}

// Store persists one record per URL.
type Store interface {
	Upsert(ctx context.Context, vec []float32, url string, category models.Category) (id string, created bool, err error)
}

// Indexer ingests URLs into the vector store.
type Indexer struct {
	fetcher    Fetcher
	classifier Classifier
	embedder   embedding.Embedder
	store      Store
	pages      keyword.Index
	workers    int
	logger     *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithWorkers sets how many URLs of a batch are ingested at once.
func WithWorkers(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.workers = n
		}
	}
}

// WithPageIndex also indexes the text of newly stored pages for keyword search.
func WithPageIndex(p keyword.Index) IndexerOption {
	return func(idx *Indexer) { idx.pages = p }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(fetcher Fetcher, classifier Classifier, embedder embedding.Embedder, store Store, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		fetcher:    fetcher,
		classifier: classifier,
		embedder:   embedder,
		store:      store,
		workers:    DefaultWorkers,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Ingest fetches, classifies and stores one URL. A URL that is already stored
// returns the existing record ID and category of this fetch without writing.
func (idx *Indexer) Ingest(ctx context.Context, url string) (*models.IngestResult, error) {
	idx.logger.Debug("ingesting url", zap.String("url", url))

	text, err := idx.fetcher.FetchAndExtract(ctx, url)
	if err != nil {
		return nil, err
	}
	category, err := idx.classifier.Classify(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", url, err)
	}
	vec, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", url, err)
	}
	id, created, err := idx.store.Upsert(ctx, vec, url, category)
	if err != nil {
		return nil, err
	}

	if created && idx.pages != nil {
		if err := idx.pages.Index(ctx, id, url, category, text); err != nil {
			idx.logger.Warn("page text index failed", zap.String("url", url), zap.Error(err))
		}
	}
	idx.logger.Debug("url ingested",
		zap.String("url", url),
		zap.String("id", id),
		zap.String("category", string(category)),
		zap.Bool("created", created),
	)
	return &models.IngestResult{URL: url, Category: category, RecordID: id}, nil
}

// IngestBatch ingests urls with bounded concurrency. The result slice matches
// urls one to one; a failed URL yields an entry carrying its error message.
// URLs not yet started when ctx is done fail with the context error.
func (idx *Indexer) IngestBatch(ctx context.Context, urls []string) []*models.IngestResult {
	results := make([]*models.IngestResult, len(urls))
	sem := make(chan struct{}, idx.workers)
	var wg sync.WaitGroup
	for i, url := range urls {
		if ctx.Err() == nil {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
			}
		}
		if err := ctx.Err(); err != nil {
			results[i] = &models.IngestResult{URL: url, Error: err.Error()}
			continue
		}
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := idx.Ingest(ctx, url)
			if err != nil {
				idx.logger.Warn("ingest failed", zap.String("url", url), zap.Error(err))
				res = &models.IngestResult{URL: url, Error: err.Error()}
			}
			results[i] = res
		}(i, url)
	}
	wg.Wait()
	return results
}
