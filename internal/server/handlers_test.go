package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/pagesift/internal/classify"
	"github.com/hyperjump/pagesift/internal/config"
	"github.com/hyperjump/pagesift/internal/embedding"
	"github.com/hyperjump/pagesift/internal/extract"
	"github.com/hyperjump/pagesift/internal/indexer"
	"github.com/hyperjump/pagesift/internal/keyword"
	"github.com/hyperjump/pagesift/internal/models"
	"github.com/hyperjump/pagesift/internal/search"
	"github.com/hyperjump/pagesift/internal/vectorstore"
)

type fakeIngester struct {
	got []string
}

func (f *fakeIngester) IngestBatch(_ context.Context, urls []string) []*models.IngestResult {
	f.got = urls
	out := make([]*models.IngestResult, len(urls))
	for i, u := range urls {
		if strings.Contains(u, "bad") {
			out[i] = &models.IngestResult{URL: u, Error: "Content not found"}
			continue
		}
		out[i] = &models.IngestResult{URL: u, Category: "News", RecordID: "id-" + u}
	}
	return out
}

type fakeRetriever struct {
	gotLimit int
	err      error
	pages    []*models.PageHit
	pagesErr error
	pageOpts *keyword.SearchOptions
}

func (f *fakeRetriever) Retrieve(_ context.Context, text string, limit int) ([]*models.SearchResult, error) {
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	out := []*models.SearchResult{}
	for i := 0; i < limit && i < 2; i++ {
		out = append(out, &models.SearchResult{URL: "https://r" + string(rune('0'+i)), Category: "News", Score: 0.9})
	}
	return out, nil
}

func (f *fakeRetriever) SearchPages(_ context.Context, q string, limit int, opts *keyword.SearchOptions) ([]*models.PageHit, error) {
	f.gotLimit = limit
	f.pageOpts = opts
	return f.pages, f.pagesErr
}

func fixedStatus(_ context.Context) (*models.Status, error) {
	return &models.Status{Collection: "websites", Records: 3, Dimensions: 384, Backend: "local"}, nil
}

func newTestServer(ing Ingester, ret Retriever, opts ...Option) http.Handler {
	srv := NewServer(ing, ret, fixedStatus, &config.ServerConfig{Port: 8080}, zap.NewNop(), opts...)
	return srv.Handler()
}

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleRootAndHealth(t *testing.T) {
	h := newTestServer(&fakeIngester{}, &fakeRetriever{})

	w := doRequest(h, http.MethodGet, "/", "")
	var root map[string]string
	_ = json.NewDecoder(w.Body).Decode(&root)
	if w.Code != http.StatusOK || root["message"] != "Web Classification and Search API" {
		t.Errorf("root: %d %v", w.Code, root)
	}

	w = doRequest(h, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}
}

func TestHandleScrape(t *testing.T) {
	for _, path := range []string{"/api/v1/scrape", "/scrape"} {
		ing := &fakeIngester{}
		h := newTestServer(ing, &fakeRetriever{})

		w := doRequest(h, http.MethodPost, path, `{"urls": ["https://a", "https://bad", "https://a"]}`)
		if w.Code != http.StatusOK {
			t.Fatalf("%s status: got %d", path, w.Code)
		}
		var out []map[string]string
		if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		if len(out) != 3 {
			t.Fatalf("%s: got %d results", path, len(out))
		}
		if out[0]["vector_id"] != "id-https://a" || out[0]["category"] != "News" {
			t.Errorf("ok entry = %v", out[0])
		}
		if out[1]["error"] != "Content not found" || out[1]["vector_id"] != "" {
			t.Errorf("error entry = %v", out[1])
		}
		if out[2]["url"] != "https://a" {
			t.Errorf("order not kept: %v", out[2])
		}
	}
}

func TestHandleScrape_BadRequests(t *testing.T) {
	h := newTestServer(&fakeIngester{}, &fakeRetriever{})
	tests := []struct {
		name string
		body string
	}{
		{"empty list", `{"urls": []}`},
		{"missing field", `{}`},
		{"malformed", `{"urls": `},
	}
	for _, tt := range tests {
		if w := doRequest(h, http.MethodPost, "/api/v1/scrape", tt.body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", tt.name, w.Code)
		}
	}
}

func TestHandleSearch(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantLimit int
		wantLen   int
	}{
		{"default limit", `{"text": "news today"}`, http.StatusOK, 5, 2},
		{"explicit limit", `{"text": "news today", "limit": 1}`, http.StatusOK, 1, 1},
		{"capped limit", `{"text": "news today", "limit": 1000}`, http.StatusOK, 100, 2},
		{"zero limit", `{"text": "news today", "limit": 0}`, http.StatusOK, 0, 0},
		{"negative limit", `{"text": "news today", "limit": -1}`, http.StatusBadRequest, -1, 0},
		{"empty text", `{"text": ""}`, http.StatusBadRequest, -1, 0},
		{"malformed", `not json`, http.StatusBadRequest, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ret := &fakeRetriever{gotLimit: -1}
			h := newTestServer(&fakeIngester{}, ret)
			w := doRequest(h, http.MethodPost, "/api/v1/search", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d", w.Code, tt.wantCode)
			}
			if ret.gotLimit != tt.wantLimit {
				t.Errorf("retriever limit = %d, want %d", ret.gotLimit, tt.wantLimit)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var out []models.SearchResult
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
				t.Fatal(err)
			}
			if out == nil || len(out) != tt.wantLen {
				t.Errorf("results = %v, want %d", out, tt.wantLen)
			}
		})
	}
}

func TestHandleSearch_AliasAndFailure(t *testing.T) {
	h := newTestServer(&fakeIngester{}, &fakeRetriever{err: errors.New("store down")})
	w := doRequest(h, http.MethodPost, "/search", `{"text": "x"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", w.Code)
	}
}

func TestHandlePageSearch(t *testing.T) {
	ret := &fakeRetriever{pages: []*models.PageHit{{ID: "1", URL: "https://a", Category: "News", Score: 1.5}}}
	h := newTestServer(&fakeIngester{}, ret)

	w := doRequest(h, http.MethodGet, "/api/v1/pages/search?q=election&limit=3&category=News&fuzzy=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if ret.gotLimit != 3 || ret.pageOpts.Category != "News" || !ret.pageOpts.FuzzyEnabled {
		t.Errorf("limit=%d opts=%+v", ret.gotLimit, ret.pageOpts)
	}
	var out []models.PageHit
	_ = json.NewDecoder(w.Body).Decode(&out)
	if len(out) != 1 || out[0].URL != "https://a" {
		t.Errorf("hits = %v", out)
	}

	for _, path := range []string{"/api/v1/pages/search", "/api/v1/pages/search?q=x&limit=-2", "/api/v1/pages/search?q=x&limit=abc"} {
		if w := doRequest(h, http.MethodGet, path, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", path, w.Code)
		}
	}

	h = newTestServer(&fakeIngester{}, &fakeRetriever{pagesErr: search.ErrNoPageIndex})
	if w := doRequest(h, http.MethodGet, "/api/v1/pages/search?q=x", ""); w.Code != http.StatusNotImplemented {
		t.Errorf("no index: status %d, want 501", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	h := newTestServer(&fakeIngester{}, &fakeRetriever{})
	w := doRequest(h, http.MethodGet, "/api/v1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var st models.Status
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Collection != "websites" || st.Records != 3 || st.Dimensions != 384 {
		t.Errorf("status = %+v", st)
	}
}

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func (m *mockWatchService) AddDirectory(path string, _ bool) error {
	for _, d := range m.dirs {
		if d == path {
			return nil
		}
	}
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockWatchService) RemoveDirectory(path string) error {
	for i, d := range m.dirs {
		if d == path {
			m.dirs = append(m.dirs[:i], m.dirs[i+1:]...)
			return nil
		}
	}
	return nil
}

func TestHandleWatchDirectories_NotEnabled(t *testing.T) {
	h := newTestServer(&fakeIngester{}, &fakeRetriever{})
	if w := doRequest(h, http.MethodGet, "/api/v1/watch/directories", ""); w.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d, want 501", w.Code)
	}
}

func TestHandleWatchDirectories_AddListRemove(t *testing.T) {
	dir := t.TempDir()
	listDir := filepath.Join(dir, "lists")
	if err := os.Mkdir(listDir, 0755); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := &config.Config{}
	mock := &mockWatchService{}
	h := newTestServer(&fakeIngester{}, &fakeRetriever{}, WithWatch(mock, cfgPath, cfg))

	body, _ := json.Marshal(map[string]string{"path": listDir})
	if w := doRequest(h, http.MethodPost, "/api/v1/watch/directories", string(body)); w.Code != http.StatusCreated {
		t.Fatalf("add: status %d (%s)", w.Code, w.Body.String())
	}
	saved, err := config.Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved.Watch.Directories) != 1 || saved.Watch.Directories[0] != listDir {
		t.Errorf("persisted directories = %v", saved.Watch.Directories)
	}

	w := doRequest(h, http.MethodGet, "/api/v1/watch/directories", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), listDir) {
		t.Errorf("list: %d %s", w.Code, w.Body.String())
	}

	if w := doRequest(h, http.MethodDelete, "/api/v1/watch/directories?path="+listDir, ""); w.Code != http.StatusOK {
		t.Errorf("remove: status %d", w.Code)
	}
	if len(mock.dirs) != 0 {
		t.Errorf("dirs after remove = %v", mock.dirs)
	}
}

func TestHandleWatchDirectoriesAdd_InvalidPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "urls.txt")
	if err := os.WriteFile(file, []byte("https://a\n"), 0600); err != nil {
		t.Fatal(err)
	}
	h := newTestServer(&fakeIngester{}, &fakeRetriever{}, WithWatch(&mockWatchService{}, "", nil))

	tests := []struct {
		body string
		want int
	}{
		{`{}`, http.StatusBadRequest},
		{`{"path": "` + filepath.Join(dir, "missing") + `"}`, http.StatusNotFound},
		{`{"path": "` + file + `"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if w := doRequest(h, http.MethodPost, "/api/v1/watch/directories", tt.body); w.Code != tt.want {
			t.Errorf("body %s: status %d, want %d", tt.body, w.Code, tt.want)
		}
	}
}

// TestScrapeThenSearch runs the real pipeline behind the router.
func TestScrapeThenSearch(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/football":
			_, _ = w.Write([]byte("<p>The football team won the league match.</p>"))
		case "/bank":
			_, _ = w.Write([]byte("<p>Bank stocks and mortgage credit interest.</p>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer site.Close()

	ctx := context.Background()
	emb := embedding.NewMockEmbedder(16)
	backend, err := vectorstore.OpenBackend(ctx, vectorstore.BackendConfig{DatabasePath: ":memory:"}, 16, nil)
	if err != nil {
		t.Fatal(err)
	}
	store, err := vectorstore.New(backend, emb, vectorstore.WithDedupMode(vectorstore.DedupExact))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	classifier := classify.NewClassifier(classify.NewKeywordModel())
	idx := indexer.NewIndexer(extract.NewExtractor(nil), classifier, emb, store)
	engine := search.NewEngine(classifier, emb, store)
	h := newTestServer(idx, engine)

	body, _ := json.Marshal(map[string][]string{"urls": {site.URL + "/football", site.URL + "/bank", site.URL + "/gone"}})
	w := doRequest(h, http.MethodPost, "/api/v1/scrape", string(body))
	var ingested []models.IngestResult
	if err := json.NewDecoder(w.Body).Decode(&ingested); err != nil {
		t.Fatal(err)
	}
	if len(ingested) != 3 || ingested[0].Category != "Sports" || ingested[1].Category != "Finance" || !ingested[2].Failed() {
		t.Fatalf("ingested = %+v", ingested)
	}

	w = doRequest(h, http.MethodPost, "/api/v1/search", `{"text": "football league", "limit": 5}`)
	var results []models.SearchResult
	if err := json.NewDecoder(w.Body).Decode(&results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].URL != site.URL+"/football" || results[0].Category != "Sports" {
		t.Errorf("results = %+v", results)
	}
}
