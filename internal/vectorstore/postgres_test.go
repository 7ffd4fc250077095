package vectorstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/hyperjump/pagesift/internal/embedding"
)

func TestVectorLiteral(t *testing.T) {
	tests := []struct {
		in   []float32
		want string
	}{
		{nil, "[]"},
		{[]float32{1}, "[1]"},
		{[]float32{0.5, -2, 0.25}, "[0.5,-2,0.25]"},
	}
	for _, tt := range tests {
		if got := vectorLiteral(tt.in); got != tt.want {
			t.Errorf("vectorLiteral(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewPostgresBackend_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	if _, err := NewPostgresBackend(ctx, "postgres://unused", "Bad-Name;", 4); err == nil {
		t.Error("expected error for invalid collection name")
	}
	if _, err := NewPostgresBackend(ctx, "postgres://unused", "websites", 0); err == nil {
		t.Error("expected error for zero dimensions")
	}
}

// TestPostgresBackend runs against a pgvector database when
// PAGESIFT_TEST_POSTGRES_DSN is set.
func TestPostgresBackend(t *testing.T) {
	dsn := os.Getenv("PAGESIFT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PAGESIFT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	name := "test_" + uuid.New().String()[:8]

	b, err := NewPostgresBackend(ctx, dsn, name, dims)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_, _ = b.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+b.table)
		_, _ = b.db.ExecContext(ctx, "DELETE FROM pagesift_collections WHERE name = $1", name)
		_ = b.Close()
	}()

	s, err := New(b, embedding.NewMockEmbedder(dims), WithDedupMode(DedupExact))
	if err != nil {
		t.Fatal(err)
	}
	id, created, err := s.Upsert(ctx, []float32{1, 0, 0, 0}, "https://pg.example", "News")
	if err != nil || !created {
		t.Fatalf("upsert: %v created=%v", err, created)
	}
	again, created, err := s.Upsert(ctx, []float32{1, 0, 0, 0}, "https://pg.example", "News")
	if err != nil || created || again != id {
		t.Fatalf("second upsert: id=%s created=%v err=%v", again, created, err)
	}
	hits, err := s.Search(ctx, []float32{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Record.URL != "https://pg.example" {
		t.Errorf("hits = %+v", hits)
	}
}
