package classify

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/hyperjump/pagesift/internal/embedding"
	"github.com/hyperjump/pagesift/internal/models"
)

type fixedModel struct {
	scores   []float64
	err      error
	lastText string
}

func (f *fixedModel) Scores(_ context.Context, text string, labels []models.Category) ([]float64, error) {
	f.lastText = text
	return f.scores, f.err
}

func TestCategories(t *testing.T) {
	if len(Categories) != 26 {
		t.Fatalf("len(Categories) = %d, want 26", len(Categories))
	}
	for _, c := range Categories {
		if !IsCategory(c) {
			t.Errorf("IsCategory(%q) = false", c)
		}
		if _, ok := lexicon[c]; !ok {
			t.Errorf("no cue words for %q", c)
		}
	}
	if IsCategory("Unknown") || IsCategory("") {
		t.Error("out-of-set labels must not be categories")
	}
}

func TestClassify_Argmax(t *testing.T) {
	scores := make([]float64, len(Categories))
	scores[6] = 0.9
	scores[23] = 0.5
	c := NewClassifier(&fixedModel{scores: scores})
	got, err := c.Classify(context.Background(), "anything")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Finance" {
		t.Errorf("got %q, want Finance", got)
	}
}

func TestClassify_TiesPickFirstLabel(t *testing.T) {
	c := NewClassifier(&fixedModel{scores: make([]float64, len(Categories))})
	got, err := c.Classify(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if got != Categories[0] {
		t.Errorf("got %q, want %q", got, Categories[0])
	}
}

func TestClassify_NaNNeverWins(t *testing.T) {
	scores := make([]float64, len(Categories))
	for i := range scores {
		scores[i] = math.NaN()
	}
	scores[3] = -5
	got, err := NewClassifier(&fixedModel{scores: scores}).Classify(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if got != Categories[3] {
		t.Errorf("got %q", got)
	}
}

func TestClassify_ModelErrors(t *testing.T) {
	c := NewClassifier(&fixedModel{err: errors.New("model down")})
	if _, err := c.Classify(context.Background(), "x"); err == nil {
		t.Error("expected model error")
	}
	short := NewClassifier(&fixedModel{scores: []float64{1}})
	if _, err := short.Classify(context.Background(), "x"); err == nil {
		t.Error("expected score count mismatch error")
	}
}

func TestClassify_TruncatesToFirstTokens(t *testing.T) {
	text := strings.Repeat("football ", 1024) + strings.Repeat("bank ", 3976)
	ctx := context.Background()

	got, err := NewClassifier(NewKeywordModel()).Classify(ctx, text)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Sports" {
		t.Errorf("got %q, want Sports from the first 1024 tokens", got)
	}

	head, err := NewClassifier(NewKeywordModel()).Classify(ctx, strings.Repeat("football ", 1024))
	if err != nil {
		t.Fatal(err)
	}
	if head != got {
		t.Errorf("full text %q differs from its first 1024 tokens %q", got, head)
	}

	untruncated, err := NewClassifier(NewKeywordModel(), WithMaxTokens(10000)).Classify(ctx, text)
	if err != nil {
		t.Fatal(err)
	}
	if untruncated != "Finance" {
		t.Errorf("without truncation got %q, want Finance", untruncated)
	}
}

func TestClassify_ModelSeesTruncatedText(t *testing.T) {
	m := &fixedModel{scores: make([]float64, len(Categories))}
	c := NewClassifier(m, WithMaxTokens(3))
	if _, err := c.Classify(context.Background(), "a b c d e"); err != nil {
		t.Fatal(err)
	}
	if m.lastText != "a b c" {
		t.Errorf("model saw %q", m.lastText)
	}
}

func TestClassify_Closure(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"The quarterback threw a touchdown in the championship match",
		"Best mortgage rates and stock investing tips",
		"日本語のテキスト",
		strings.Repeat("lorem ipsum ", 3000),
		"<html><script>",
	}
	e := embedding.NewMockEmbedder(32)
	for name, m := range map[string]Model{
		"keywords":  NewKeywordModel(),
		"embedding": NewEmbeddingModel(e),
	} {
		c := NewClassifier(m)
		for _, in := range inputs {
			got, err := c.Classify(context.Background(), in)
			if err != nil {
				t.Fatalf("%s: Classify(%q): %v", name, in, err)
			}
			if !IsCategory(got) {
				t.Errorf("%s: Classify(%q) = %q, not in the category set", name, in, got)
			}
		}
	}
}

func TestKeywordModel(t *testing.T) {
	tests := []struct {
		text string
		want models.Category
	}{
		{"Adopt a puppy: dogs and cats looking for a home with pets", "Pets & Animals"},
		{"Cheap flights and hotel booking for your next vacation trip", "Travel & Transportation"},
		{"Software developer writes Golang code on Linux", "Computers & Electronics"},
		{"The court ruled the new legislation violates constitutional rights", "Law & Government"},
		{"Easy baking recipes from our chef", "Food & Drink"},
	}
	c := NewClassifier(NewKeywordModel())
	for _, tt := range tests {
		got, err := c.Classify(context.Background(), tt.text)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestKeywordModel_Deterministic(t *testing.T) {
	c := NewClassifier(NewKeywordModel())
	text := "football bank football bank"
	first, _ := c.Classify(context.Background(), text)
	for i := 0; i < 10; i++ {
		if got, _ := c.Classify(context.Background(), text); got != first {
			t.Fatalf("run %d: got %q, first %q", i, got, first)
		}
	}
}

type stubCaller struct {
	reply  string
	err    error
	prompt string
}

func (s *stubCaller) Call(_ context.Context, prompt string, _ ...llms.CallOption) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func TestLLMModel(t *testing.T) {
	ctx := context.Background()

	picked := NewClassifier(newLLMModel(&stubCaller{reply: `{"category": "science"}`}))
	got, err := picked.Classify(ctx, "anything")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Science" {
		t.Errorf("got %q, want Science", got)
	}

	stub := &stubCaller{reply: `{"category": "Astrology"}`}
	fallback := NewClassifier(newLLMModel(stub))
	got, err = fallback.Classify(ctx, "football league match")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Sports" {
		t.Errorf("out-of-set reply should fall back to keywords, got %q", got)
	}
	if !strings.Contains(stub.prompt, "World Localities") {
		t.Error("prompt should list every category")
	}

	garbage := NewClassifier(newLLMModel(&stubCaller{reply: "not json"}))
	if got, err := garbage.Classify(ctx, "x"); err != nil || !IsCategory(got) {
		t.Errorf("garbage reply: got %q, %v", got, err)
	}

	failing := NewClassifier(newLLMModel(&stubCaller{err: errors.New("connection refused")}))
	if _, err := failing.Classify(ctx, "x"); err == nil {
		t.Error("expected call error to propagate")
	}
}

func TestNewModel(t *testing.T) {
	if _, err := NewModel("keywords", nil, "", ""); err != nil {
		t.Error(err)
	}
	if _, err := NewModel("embedding", nil, "", ""); err == nil {
		t.Error("embedding model without embedder should fail")
	}
	if _, err := NewModel("embedding", embedding.NewMockEmbedder(8), "", ""); err != nil {
		t.Error(err)
	}
	if _, err := NewModel("bogus", nil, "", ""); err == nil {
		t.Error("expected error for unknown model")
	}
}

// gatedEmbedder blocks embedding of any text containing block until release
// is closed.
type gatedEmbedder struct {
	block   string
	started chan struct{}
	release chan struct{}
}

func (g *gatedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, g.block) {
		close(g.started)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []float32{1, 0}, nil
}

func (g *gatedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := g.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (g *gatedEmbedder) Dimensions() int { return 2 }
func (g *gatedEmbedder) Close() error    { return nil }

func TestEmbeddingModel_SlowLabelDoesNotBlockOthers(t *testing.T) {
	g := &gatedEmbedder{block: "Sports", started: make(chan struct{}), release: make(chan struct{})}
	defer close(g.release)
	m := NewEmbeddingModel(g)
	ctx := context.Background()

	go func() { _, _ = m.Scores(ctx, "text", []models.Category{"Sports"}) }()
	<-g.started

	done := make(chan error, 1)
	go func() {
		_, err := m.Scores(ctx, "text", []models.Category{"Finance"})
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Scores: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Scores for another label blocked behind a slow label embedding")
	}
}
