package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/hyperjump/pagesift/internal/models"
)

// DefaultOllamaModel is the chat model asked to pick a label.
const DefaultOllamaModel = "llama3.2"

// caller is the part of langchaingo's Ollama client used here.
type caller interface {
	Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error)
}

// LLMModel asks a language model to choose one label, in JSON mode. A reply
// that names no known label falls back to the keyword scores.
type LLMModel struct {
	llm      caller
	fallback Model
}

// NewOllamaModel connects to the Ollama server at serverURL.
func NewOllamaModel(serverURL, model string) (*LLMModel, error) {
	if model == "" {
		model = DefaultOllamaModel
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	l, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init ollama classifier: %w", err)
	}
	return newLLMModel(l), nil
}

func newLLMModel(l caller) *LLMModel {
	return &LLMModel{llm: l, fallback: NewKeywordModel()}
}

type llmAnswer struct {
	Category string `json:"category"`
}

// Scores returns a one-hot vector for the label the model picked.
func (m *LLMModel) Scores(ctx context.Context, text string, labels []models.Category) ([]float64, error) {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = string(l)
	}
	prompt := fmt.Sprintf(
		"Classify the web page text into exactly one of these categories: %s.\n"+
			"Return ONLY JSON { \"category\": \"string\" } using one category verbatim.\nText: %s",
		strings.Join(names, "; "), text)

	res, err := m.llm.Call(ctx, prompt, llms.WithJSONMode(), llms.WithTemperature(0))
	if err != nil {
		return nil, fmt.Errorf("ollama classify: %w", err)
	}

	var ans llmAnswer
	if err := json.Unmarshal([]byte(strings.TrimSpace(res)), &ans); err == nil {
		for i, l := range labels {
			if strings.EqualFold(strings.TrimSpace(ans.Category), string(l)) {
				scores := make([]float64, len(labels))
				scores[i] = 1
				return scores, nil
			}
		}
	}
	return m.fallback.Scores(ctx, text, labels)
}
