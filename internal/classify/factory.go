package classify

import (
	"fmt"

	"github.com/hyperjump/pagesift/internal/embedding"
)

// NewModel builds the scoring model named by name: "keywords", "embedding" or "ollama".
func NewModel(name string, e embedding.Embedder, ollamaURL, ollamaModel string) (Model, error) {
	switch name {
	case "", "keywords":
		return NewKeywordModel(), nil
	case "embedding":
		if e == nil {
			return nil, fmt.Errorf("embedding classifier needs an embedder")
		}
		return NewEmbeddingModel(e), nil
	case "ollama":
		m, err := NewOllamaModel(ollamaURL, ollamaModel)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown classifier model: %s", name)
	}
}
