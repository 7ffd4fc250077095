// Package vectorstore stores page embeddings with their URL and category and
// answers nearest-neighbor queries over them.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/pagesift/internal/embedding"
	"github.com/hyperjump/pagesift/internal/models"
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "websites"

// DedupMode selects how Upsert recognizes an already stored URL.
type DedupMode string

const (
	// DedupNearest embeds the URL string, takes the single nearest record and
	// accepts it only when its URL is identical. A record for the URL that is
	// not the top hit is missed; this keeps dedup on the one vector index.
	DedupNearest DedupMode = "nearest"
	// DedupExact looks the URL up in the backend's URL column.
	DedupExact DedupMode = "exact"
)

// ParseDedupMode validates a configured mode; empty means DedupNearest.
func ParseDedupMode(s string) (DedupMode, error) {
	switch DedupMode(s) {
	case "", DedupNearest:
		return DedupNearest, nil
	case DedupExact:
		return DedupExact, nil
	default:
		return "", fmt.Errorf("unknown dedup mode: %s (supported: nearest, exact)", s)
	}
}

// Store wraps a Backend with URL deduplication. Upserts of the same URL are
// serialized within the process, so concurrent ingestion of one new URL
// writes a single record.
type Store struct {
	backend  Backend
	embedder embedding.Embedder
	dedup    DedupMode
	locks    *keyedMutex
	logger   *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithDedupMode sets the dedup strategy.
func WithDedupMode(m DedupMode) Option {
	return func(s *Store) {
		if m != "" {
			s.dedup = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Store over backend. The embedder is used for URL lookups and
// must produce vectors of the collection's dimension.
func New(backend Backend, embedder embedding.Embedder, opts ...Option) (*Store, error) {
	if got, want := embedder.Dimensions(), backend.Collection().Dimensions; got != want {
		return nil, fmt.Errorf("embedder dimension %d does not match collection %s dimension %d",
			got, backend.Collection().Name, want)
	}
	s := &Store{
		backend:  backend,
		embedder: embedder,
		dedup:    DedupNearest,
		locks:    newKeyedMutex(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// FindByURL returns the stored record for url, or nil when none is found.
func (s *Store) FindByURL(ctx context.Context, url string) (*models.Record, error) {
	if s.dedup == DedupExact {
		rec, err := s.backend.LookupURL(ctx, url)
		if err != nil {
			return nil, &models.StoreError{Op: "lookup", Err: err}
		}
		return rec, nil
	}

	vec, err := s.embedder.Embed(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("embed url: %w", err)
	}
	hits, err := s.backend.Search(ctx, vec, 1)
	if err != nil {
		return nil, &models.StoreError{Op: "search", Err: err}
	}
	if len(hits) == 0 || hits[0].Record.URL != url {
		return nil, nil
	}
	return hits[0].Record, nil
}

// Upsert returns the ID of the record already stored for url, or stores a new
// record and returns its fresh ID. created reports whether a write happened.
func (s *Store) Upsert(ctx context.Context, vec []float32, url string, category models.Category) (id string, created bool, err error) {
	if dims := s.backend.Collection().Dimensions; len(vec) != dims {
		return "", false, &models.StoreError{Op: "upsert",
			Err: fmt.Errorf("vector dimension %d, collection expects %d", len(vec), dims)}
	}

	unlock := s.locks.Lock(url)
	defer unlock()

	existing, err := s.FindByURL(ctx, url)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		s.logger.Debug("url already stored", zap.String("url", url), zap.String("id", existing.ID))
		return existing.ID, false, nil
	}

	rec := &models.Record{
		ID:       uuid.New().String(),
		URL:      url,
		Category: category,
		Vector:   vec,
	}
	if err := s.backend.Insert(ctx, rec); err != nil {
		return "", false, &models.StoreError{Op: "insert", Err: err}
	}
	s.logger.Debug("record stored",
		zap.String("url", url),
		zap.String("id", rec.ID),
		zap.String("category", string(category)),
	)
	return rec.ID, true, nil
}

// Search returns up to limit records by descending cosine similarity.
func (s *Store) Search(ctx context.Context, query []float32, limit int) ([]*models.SearchHit, error) {
	if limit <= 0 {
		return []*models.SearchHit{}, nil
	}
	if dims := s.backend.Collection().Dimensions; len(query) != dims {
		return nil, &models.StoreError{Op: "search",
			Err: fmt.Errorf("query dimension %d, collection expects %d", len(query), dims)}
	}
	hits, err := s.backend.Search(ctx, query, limit)
	if err != nil {
		return nil, &models.StoreError{Op: "search", Err: err}
	}
	return hits, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.backend.Count(ctx)
	if err != nil {
		return 0, &models.StoreError{Op: "count", Err: err}
	}
	return n, nil
}

// Collection describes the backing collection.
func (s *Store) Collection() models.Collection {
	return s.backend.Collection()
}

// Backend returns the backend kind, "local" or "postgres".
func (s *Store) Backend() string {
	return s.backend.Kind()
}

// DedupMode returns the active dedup strategy.
func (s *Store) DedupMode() DedupMode {
	return s.dedup
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
