// Package keyword keeps a full-text index of ingested page text.
package keyword

import (
	"context"

	"github.com/hyperjump/pagesift/internal/models"
)

// SearchOptions are optional parameters for page search. Nil means defaults.
type SearchOptions struct {
	// Category restricts hits to one category when set.
	Category models.Category
	// URLBoost multiplies matches in the URL field. Values <= 1 disable it.
	URLBoost float64
	// FuzzyEnabled matches terms within Fuzziness edits for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance (1 or 2); 0 means 1.
	Fuzziness int
}

// Index is the page text index used by ingestion and page search.
type Index interface {
	Index(ctx context.Context, id, url string, category models.Category, text string) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*models.PageHit, error)
	DocCount() (uint64, error)
	Close() error
}
