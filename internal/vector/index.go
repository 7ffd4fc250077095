// Package vector provides an in-process cosine nearest-neighbor index.
package vector

import "context"

// Index stores vectors under string IDs and answers top-k similarity queries.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// Result is a single search hit. Score is the cosine similarity in [-1, 1].
type Result struct {
	ID    string
	Score float64
}
