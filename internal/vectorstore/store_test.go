package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hyperjump/pagesift/internal/embedding"
	"github.com/hyperjump/pagesift/internal/models"
	"github.com/hyperjump/pagesift/internal/storage"
)

const dims = 4

// mapEmbedder returns fixed vectors for known texts and mock vectors otherwise.
type mapEmbedder struct {
	*embedding.MockEmbedder
	vecs map[string][]float32
}

func newMapEmbedder(vecs map[string][]float32) *mapEmbedder {
	return &mapEmbedder{MockEmbedder: embedding.NewMockEmbedder(dims), vecs: vecs}
}

func (m *mapEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := m.vecs[text]; ok {
		return v, nil
	}
	return m.MockEmbedder.Embed(ctx, text)
}

func newLocal(t *testing.T, dbPath, indexPath string) *LocalBackend {
	t.Helper()
	st, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewLocalBackend(context.Background(), st, DefaultCollection, dims, indexPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func newTestStore(t *testing.T, e embedding.Embedder, opts ...Option) *Store {
	t.Helper()
	s, err := New(newLocal(t, ":memory:", ""), e, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	s := newTestStore(t, embedding.NewMockEmbedder(dims))
	ctx := context.Background()
	vec := []float32{1, 0, 0, 0}

	id1, created, err := s.Upsert(ctx, vec, "https://a.example", "News")
	if err != nil {
		t.Fatal(err)
	}
	if !created || id1 == "" {
		t.Fatalf("first upsert: id=%q created=%v", id1, created)
	}

	id2, created, err := s.Upsert(ctx, []float32{0, 1, 0, 0}, "https://a.example", "Sports")
	if err != nil {
		t.Fatal(err)
	}
	if created || id2 != id1 {
		t.Errorf("second upsert: id=%q created=%v, want %q and no write", id2, created, id1)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	rec, err := s.FindByURL(ctx, "https://a.example")
	if err != nil || rec == nil {
		t.Fatalf("FindByURL: %v, %v", rec, err)
	}
	if rec.Category != "News" {
		t.Errorf("existing record must not be overwritten, category = %q", rec.Category)
	}
}

func TestStore_FindByURLRequiresExactURL(t *testing.T) {
	e := newMapEmbedder(map[string][]float32{
		"https://a.example/page":  {1, 0, 0, 0},
		"https://a.example/page2": {1, 0, 0, 0},
	})
	s := newTestStore(t, e)
	ctx := context.Background()
	if _, _, err := s.Upsert(ctx, []float32{1, 0, 0, 0}, "https://a.example/page", "News"); err != nil {
		t.Fatal(err)
	}

	rec, err := s.FindByURL(ctx, "https://a.example/page2")
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Errorf("near neighbor with a different URL must not match, got %s", rec.URL)
	}
	if rec, _ := s.FindByURL(ctx, "https://a.example/page"); rec == nil {
		t.Error("exact URL should match")
	}
}

func TestStore_NearestDedupMissesNonTopRecord(t *testing.T) {
	// The URL embeds close to another page's content, so the nearest-neighbor
	// lookup sees that page first and misses the stored record.
	vecs := map[string][]float32{
		"https://a.example": {0, 1, 0, 0},
	}
	ctx := context.Background()

	nearest := newTestStore(t, newMapEmbedder(vecs))
	idA, _, _ := nearest.Upsert(ctx, []float32{1, 0, 0, 0}, "https://a.example", "News")
	_, _, _ = nearest.Upsert(ctx, []float32{0, 1, 0, 0}, "https://b.example", "News")
	again, created, err := nearest.Upsert(ctx, []float32{1, 0, 0, 0}, "https://a.example", "News")
	if err != nil {
		t.Fatal(err)
	}
	if !created || again == idA {
		t.Errorf("nearest mode: expected a second record, got id=%s created=%v", again, created)
	}

	exact := newTestStore(t, newMapEmbedder(vecs), WithDedupMode(DedupExact))
	idA, _, _ = exact.Upsert(ctx, []float32{1, 0, 0, 0}, "https://a.example", "News")
	_, _, _ = exact.Upsert(ctx, []float32{0, 1, 0, 0}, "https://b.example", "News")
	again, created, err = exact.Upsert(ctx, []float32{1, 0, 0, 0}, "https://a.example", "News")
	if err != nil {
		t.Fatal(err)
	}
	if created || again != idA {
		t.Errorf("exact mode: got id=%s created=%v, want %s", again, created, idA)
	}
}

func TestStore_ConcurrentUpsertSameURL(t *testing.T) {
	s := newTestStore(t, embedding.NewMockEmbedder(dims))
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 16)
	errs := make([]error, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], _, errs[i] = s.Upsert(ctx, []float32{1, float32(i), 0, 0}, "https://same.example", "News")
		}(i)
	}
	wg.Wait()

	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("upsert %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("upsert %d returned %s, want %s", i, ids[i], ids[0])
		}
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
	if s.locks.size() != 0 {
		t.Errorf("url locks leaked: %d", s.locks.size())
	}
}

func TestStore_Search(t *testing.T) {
	s := newTestStore(t, embedding.NewMockEmbedder(dims))
	ctx := context.Background()
	docs := []struct {
		url string
		vec []float32
		cat models.Category
	}{
		{"https://a", []float32{1, 0, 0, 0}, "News"},
		{"https://b", []float32{0.8, 0.2, 0, 0}, "Sports"},
		{"https://c", []float32{0, 0, 1, 0}, "News"},
	}
	for _, d := range docs {
		if _, _, err := s.Upsert(ctx, d.vec, d.url, d.cat); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := s.Search(ctx, []float32{1, 0, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 || hits[0].Record.URL != "https://a" || hits[1].Record.URL != "https://b" {
		t.Fatalf("hits = %+v", hits)
	}
	if hits[0].Score < hits[1].Score {
		t.Error("hits must be ordered by descending score")
	}
	if hits[1].Record.Category != "Sports" {
		t.Errorf("category = %q", hits[1].Record.Category)
	}

	empty, err := s.Search(ctx, []float32{1, 0, 0, 0}, 0)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("limit 0: %v, %v", empty, err)
	}
}

func TestStore_DimensionErrors(t *testing.T) {
	s := newTestStore(t, embedding.NewMockEmbedder(dims))
	ctx := context.Background()

	_, _, err := s.Upsert(ctx, []float32{1, 2}, "https://x", "News")
	var se *models.StoreError
	if !errors.As(err, &se) {
		t.Errorf("upsert: expected StoreError, got %v", err)
	}
	if _, err := s.Search(ctx, []float32{1}, 3); !errors.As(err, &se) {
		t.Errorf("search: expected StoreError, got %v", err)
	}

	if _, err := New(newLocal(t, ":memory:", ""), embedding.NewMockEmbedder(dims+1)); err == nil {
		t.Error("expected embedder/collection dimension mismatch")
	}
}

func TestLocalBackend_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "pagesift.db")
	idxPath := filepath.Join(dir, "vectors.idx")
	ctx := context.Background()

	s, err := New(newLocal(t, dbPath, idxPath), embedding.NewMockEmbedder(dims))
	if err != nil {
		t.Fatal(err)
	}
	id, _, _ := s.Upsert(ctx, []float32{0, 0, 0, 1}, "https://kept", "Science")
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := New(newLocal(t, dbPath, idxPath), embedding.NewMockEmbedder(dims))
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	hits, err := reopened.Search(ctx, []float32{0, 0, 0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Record.ID != id {
		t.Errorf("hits after reopen = %+v", hits)
	}
}

func TestLocalBackend_RebuildsStaleSnapshot(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "pagesift.db")
	idxPath := filepath.Join(dir, "vectors.idx")
	ctx := context.Background()

	b := newLocal(t, dbPath, idxPath)
	_ = b.Insert(ctx, &models.Record{ID: "one", URL: "https://1", Category: "News", Vector: []float32{1, 0, 0, 0}})
	_ = b.Close()

	// a record written without saving the snapshot leaves it one entry short
	st, _ := storage.NewSQLiteStorage(dbPath)
	_ = st.InsertRecord(ctx, DefaultCollection, &models.Record{ID: "two", URL: "https://2", Category: "News", Vector: []float32{0, 1, 0, 0}})
	_ = st.Close()

	b = newLocal(t, dbPath, idxPath)
	defer b.Close()
	hits, err := b.Search(ctx, []float32{0, 1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 || hits[0].Record.ID != "two" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	b, err := OpenBackend(ctx, BackendConfig{DatabasePath: ":memory:"}, dims, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if b.Kind() != "local" || b.Collection().Name != DefaultCollection {
		t.Errorf("got %s/%s", b.Kind(), b.Collection().Name)
	}
	if _, err := OpenBackend(ctx, BackendConfig{Kind: "postgres"}, dims, nil); err == nil {
		t.Error("expected error for postgres without DSN")
	}
	if _, err := OpenBackend(ctx, BackendConfig{Kind: "qdrant"}, dims, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestParseDedupMode(t *testing.T) {
	for in, want := range map[string]DedupMode{"": DedupNearest, "nearest": DedupNearest, "exact": DedupExact} {
		got, err := ParseDedupMode(in)
		if err != nil || got != want {
			t.Errorf("ParseDedupMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseDedupMode("fuzzy"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	if k.size() != 2 {
		t.Errorf("size = %d", k.size())
	}

	done := make(chan struct{})
	go func() {
		unlock := k.Lock("a")
		unlock()
		close(done)
	}()
	unlockB()
	select {
	case <-done:
		t.Fatal("second Lock(a) should block while a is held")
	default:
	}
	unlockA()
	<-done
	if k.size() != 0 {
		t.Errorf("size after unlock = %d", k.size())
	}
}

func ExampleStore_Upsert() {
	b, _ := OpenBackend(context.Background(), BackendConfig{DatabasePath: ":memory:"}, dims, nil)
	s, _ := New(b, embedding.NewMockEmbedder(dims))
	defer s.Close()

	ctx := context.Background()
	id1, _, _ := s.Upsert(ctx, []float32{1, 0, 0, 0}, "https://example.com", "News")
	id2, created, _ := s.Upsert(ctx, []float32{1, 0, 0, 0}, "https://example.com", "News")
	fmt.Println(id1 == id2, created)
	// Output: true false
}
