// Package embedding maps text to fixed-dimension vectors.
package embedding

import (
	"context"
	"fmt"
)

// Embedder produces vector embeddings for text. Implementations are safe for
// concurrent use once constructed.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Options selects and configures an embedder.
type Options struct {
	// Provider is "mock", "onnx" or "ollama".
	Provider   string
	ModelPath  string
	Model      string
	Dimensions int
	MaxTokens  int
	OllamaURL  string
	// CacheSize wraps the embedder in an LRU of that many entries when positive.
	CacheSize int
}

// New builds the embedder named by opts.Provider.
func New(opts Options) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch opts.Provider {
	case "", "mock":
		e = NewMockEmbedder(opts.Dimensions)
	case "onnx":
		e, err = NewONNXEmbedder(opts.ModelPath, opts.Dimensions, opts.MaxTokens)
	case "ollama":
		e, err = NewOllamaEmbedder(opts.OllamaURL, opts.Model, opts.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	if opts.CacheSize > 0 {
		e = NewCachedEmbedder(e, opts.CacheSize)
	}
	return e, nil
}

// embedEach runs embed over texts in order, stopping at the first error.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
