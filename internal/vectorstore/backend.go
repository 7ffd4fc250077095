package vectorstore

import (
	"context"

	"github.com/hyperjump/pagesift/internal/models"
)

// Backend persists records of one collection and answers similarity queries.
// It has no notion of deduplication; Store layers that on top.
type Backend interface {
	Insert(ctx context.Context, rec *models.Record) error
	// Search returns up to limit hits by descending cosine similarity, ties in
	// insertion order.
	Search(ctx context.Context, query []float32, limit int) ([]*models.SearchHit, error)
	// LookupURL returns the earliest record with exactly this URL, or nil.
	LookupURL(ctx context.Context, url string) (*models.Record, error)
	Count(ctx context.Context) (int64, error)
	Collection() models.Collection
	Kind() string
	Close() error
}
