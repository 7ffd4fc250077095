package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/pagesift/internal/models"
	"github.com/hyperjump/pagesift/internal/storage"
	"github.com/hyperjump/pagesift/internal/vector"
	"github.com/hyperjump/pagesift/pkg/utils"
)

// LocalBackend keeps records in SQLite and serves similarity search from an
// in-memory cosine index. The index snapshot at indexPath is reused on open
// when it holds exactly as many vectors as SQLite holds records; otherwise
// the index is rebuilt from SQLite.
type LocalBackend struct {
	storage    storage.Storage
	index      *vector.MemoryIndex
	collection models.Collection
	indexPath  string
	logger     *zap.Logger

	// mu keeps SQLite and the index in the same insertion order.
	mu sync.Mutex
}

// NewLocalBackend ensures the collection exists in st and loads its index.
// The backend takes ownership of st.
func NewLocalBackend(ctx context.Context, st storage.Storage, name string, dimensions int, indexPath string, logger *zap.Logger) (*LocalBackend, error) {
	logger = utils.OrNop(logger)
	col, err := st.EnsureCollection(ctx, name, dimensions)
	if err != nil {
		return nil, &models.StoreError{Op: "ensure collection", Err: err}
	}
	idx, err := vector.NewMemoryIndex(dimensions)
	if err != nil {
		return nil, err
	}
	b := &LocalBackend{
		storage:    st,
		index:      idx,
		collection: *col,
		indexPath:  indexPath,
		logger:     logger,
	}
	if err := b.loadIndex(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *LocalBackend) loadIndex(ctx context.Context) error {
	count, err := b.storage.CountRecords(ctx, b.collection.Name)
	if err != nil {
		return &models.StoreError{Op: "count", Err: err}
	}
	if err := b.index.Load(b.indexPath); err != nil {
		b.logger.Warn("discarding unreadable index snapshot", zap.String("path", b.indexPath), zap.Error(err))
		b.index.Reset()
	}
	if int64(b.index.Size()) == count {
		return nil
	}

	b.logger.Info("rebuilding vector index from storage",
		zap.Int("snapshot", b.index.Size()), zap.Int64("records", count))
	b.index.Reset()
	return b.storage.EachRecord(ctx, b.collection.Name, func(r *models.Record) error {
		return b.index.Add(ctx, []string{r.ID}, [][]float32{r.Vector})
	})
}

// Insert writes rec to SQLite, then adds its vector to the index.
func (b *LocalBackend) Insert(ctx context.Context, rec *models.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.storage.InsertRecord(ctx, b.collection.Name, rec); err != nil {
		return err
	}
	return b.index.Add(ctx, []string{rec.ID}, [][]float32{rec.Vector})
}

// Search queries the index and resolves hits to their stored records.
func (b *LocalBackend) Search(ctx context.Context, query []float32, limit int) ([]*models.SearchHit, error) {
	results, err := b.index.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	hits := make([]*models.SearchHit, 0, len(results))
	for _, r := range results {
		rec, err := b.storage.GetRecord(ctx, b.collection.Name, r.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve hit %s: %w", r.ID, err)
		}
		hits = append(hits, &models.SearchHit{Record: rec, Score: r.Score})
	}
	return hits, nil
}

// LookupURL returns the earliest record stored for url, or nil.
func (b *LocalBackend) LookupURL(ctx context.Context, url string) (*models.Record, error) {
	rec, err := b.storage.FindRecordByURL(ctx, b.collection.Name, url)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// Count returns the number of stored records.
func (b *LocalBackend) Count(ctx context.Context) (int64, error) {
	return b.storage.CountRecords(ctx, b.collection.Name)
}

// Collection describes the collection.
func (b *LocalBackend) Collection() models.Collection {
	return b.collection
}

// Kind returns "local".
func (b *LocalBackend) Kind() string {
	return "local"
}

// Close saves the index snapshot and closes storage.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	saveErr := b.index.Save(b.indexPath)
	if err := b.storage.Close(); err != nil {
		return err
	}
	return saveErr
}
