package classify

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/pagesift/internal/embedding"
	"github.com/hyperjump/pagesift/internal/models"
	"github.com/hyperjump/pagesift/pkg/utils"
)

// hypothesis turns a label into the sentence its embedding is taken from.
const hypothesis = "This page is about %s."

// EmbeddingModel is a zero-shot scorer: cosine similarity between the text
// embedding and the embedding of a hypothesis sentence for each label.
type EmbeddingModel struct {
	embedder embedding.Embedder

	mu     sync.Mutex
	labels map[models.Category][]float32
}

// NewEmbeddingModel returns a scorer backed by e. Label embeddings are
// computed on first use and kept.
func NewEmbeddingModel(e embedding.Embedder) *EmbeddingModel {
	return &EmbeddingModel{embedder: e, labels: make(map[models.Category][]float32)}
}

// Scores returns cosine similarities in label order.
func (m *EmbeddingModel) Scores(ctx context.Context, text string, labels []models.Category) ([]float64, error) {
	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	scores := make([]float64, len(labels))
	for i, l := range labels {
		lv, err := m.labelVector(ctx, l)
		if err != nil {
			return nil, err
		}
		scores[i] = utils.Cosine(vec, lv)
	}
	return scores, nil
}

func (m *EmbeddingModel) labelVector(ctx context.Context, label models.Category) ([]float32, error) {
	m.mu.Lock()
	v, ok := m.labels[label]
	m.mu.Unlock()
	if ok {
		return v, nil
	}
	// Embed unlocked; concurrent misses for one label may both compute it.
	v, err := m.embedder.Embed(ctx, fmt.Sprintf(hypothesis, label))
	if err != nil {
		return nil, fmt.Errorf("embed label %q: %w", label, err)
	}
	m.mu.Lock()
	if cached, ok := m.labels[label]; ok {
		v = cached
	} else {
		m.labels[label] = v
	}
	m.mu.Unlock()
	return v, nil
}
