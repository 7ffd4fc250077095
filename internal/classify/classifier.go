// Package classify assigns one topic category from a closed set to a text.
package classify

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/hyperjump/pagesift/internal/models"
	"github.com/hyperjump/pagesift/pkg/utils"
)

// DefaultMaxTokens is the number of leading whitespace tokens a text is cut to before scoring.
const DefaultMaxTokens = 1024

// Model scores a text against every label, returning one score per label in
// the same order. Higher means more likely.
type Model interface {
	Scores(ctx context.Context, text string, labels []models.Category) ([]float64, error)
}

// Classifier picks the best-scoring category for a text. It never abstains:
// even a flat score vector yields the first label.
type Classifier struct {
	model     Model
	labels    []models.Category
	maxTokens int
	logger    *zap.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithMaxTokens sets how many leading tokens are kept.
func WithMaxTokens(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClassifier returns a classifier over Categories backed by model.
func NewClassifier(model Model, opts ...Option) *Classifier {
	c := &Classifier{
		model:     model,
		labels:    Categories,
		maxTokens: DefaultMaxTokens,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the category with the highest model score for the first
// maxTokens tokens of text.
func (c *Classifier) Classify(ctx context.Context, text string) (models.Category, error) {
	input, truncated := utils.FirstWords(text, c.maxTokens)
	if truncated {
		c.logger.Debug("classifier input truncated", zap.Int("max_tokens", c.maxTokens))
	}

	scores, err := c.model.Scores(ctx, input, c.labels)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	if len(scores) != len(c.labels) {
		return "", fmt.Errorf("classify: model returned %d scores for %d labels", len(scores), len(c.labels))
	}
	return c.labels[argmax(scores)], nil
}

// argmax returns the index of the largest score, preferring the earliest on
// ties. NaN never wins.
func argmax(scores []float64) int {
	best, bestScore := 0, math.Inf(-1)
	for i, s := range scores {
		if math.IsNaN(s) {
			continue
		}
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}
