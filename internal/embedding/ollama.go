package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/hyperjump/pagesift/pkg/utils"
)

// DefaultOllamaEmbedModel is used when no model is configured.
const DefaultOllamaEmbedModel = "all-minilm"

// embeddingClient is the part of langchaingo's Ollama client used here.
type embeddingClient interface {
	CreateEmbedding(ctx context.Context, inputTexts []string) ([][]float32, error)
}

// OllamaEmbedder embeds text through an Ollama server.
type OllamaEmbedder struct {
	client     embeddingClient
	dimensions int
}

// NewOllamaEmbedder connects to the Ollama server at serverURL using model.
// Vectors whose length differs from dimensions are rejected.
func NewOllamaEmbedder(serverURL, model string, dimensions int) (*OllamaEmbedder, error) {
	if model == "" {
		model = DefaultOllamaEmbedModel
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init ollama embedder: %w", err)
	}
	return newOllamaEmbedder(llm, dimensions), nil
}

func newOllamaEmbedder(client embeddingClient, dimensions int) *OllamaEmbedder {
	return &OllamaEmbedder{client: client, dimensions: dimensions}
}

// Embed returns the normalized embedding of text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.client.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d texts", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != e.dimensions {
			return nil, fmt.Errorf("ollama embed: dimension %d, want %d", len(v), e.dimensions)
		}
		utils.NormalizeL2(vecs[i])
	}
	return vecs, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the client holds no resources.
func (e *OllamaEmbedder) Close() error {
	return nil
}
