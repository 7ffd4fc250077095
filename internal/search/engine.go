// Package search runs retrieval: classify the query, find similar pages and
// keep those of the query's category.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hyperjump/pagesift/internal/embedding"
	"github.com/hyperjump/pagesift/internal/keyword"
	"github.com/hyperjump/pagesift/internal/models"
)

// ErrNoPageIndex is returned by SearchPages when no page index is configured.
var ErrNoPageIndex = errors.New("page text index not configured")

// Classifier assigns a category to query text.
type Classifier interface {
	Classify(ctx context.Context, text string) (models.Category, error)
}

// Searcher answers nearest-neighbor queries.
type Searcher interface {
	Search(ctx context.Context, query []float32, limit int) ([]*models.SearchHit, error)
}

// Engine runs retrieval over the vector store.
type Engine struct {
	classifier Classifier
	embedder   embedding.Embedder
	store      Searcher
	pages      keyword.Index
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPageIndex enables SearchPages.
func WithPageIndex(p keyword.Index) EngineOption {
	return func(e *Engine) { e.pages = p }
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(classifier Classifier, embedder embedding.Embedder, store Searcher, opts ...EngineOption) *Engine {
	e := &Engine{
		classifier: classifier,
		embedder:   embedder,
		store:      store,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve returns up to limit stored pages whose category matches the
// query's, by descending similarity. The store is asked for limit hits and
// filtering happens afterwards, so fewer than limit results may come back
// even when more matching pages exist.
func (e *Engine) Retrieve(ctx context.Context, text string, limit int) ([]*models.SearchResult, error) {
	if limit <= 0 {
		return []*models.SearchResult{}, nil
	}

	var (
		category models.Category
		hits     []*models.SearchHit
		errChan  = make(chan error, 2)
		wg       sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		c, err := e.classifier.Classify(ctx, text)
		if err != nil {
			errChan <- fmt.Errorf("classify query: %w", err)
			return
		}
		category = c
	}()
	go func() {
		defer wg.Done()
		vec, err := e.embedder.Embed(ctx, text)
		if err != nil {
			errChan <- fmt.Errorf("embed query: %w", err)
			return
		}
		h, err := e.store.Search(ctx, vec, limit)
		if err != nil {
			errChan <- fmt.Errorf("vector search failed: %w", err)
			return
		}
		hits = h
	}()

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	results := make([]*models.SearchResult, 0, len(hits))
	for _, h := range hits {
		if h.Record.Category != category {
			continue
		}
		results = append(results, &models.SearchResult{
			URL:      h.Record.URL,
			Category: h.Record.Category,
			Score:    h.Score,
		})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// SearchPages runs a keyword query over ingested page text.
func (e *Engine) SearchPages(ctx context.Context, query string, limit int, opts *keyword.SearchOptions) ([]*models.PageHit, error) {
	if e.pages == nil {
		return nil, ErrNoPageIndex
	}
	hits, err := e.pages.Search(ctx, query, limit, opts)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	return hits, nil
}
