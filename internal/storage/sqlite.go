package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/pagesift/internal/models"
)

// SQLiteStorage implements Storage on a single SQLite file.
type SQLiteStorage struct {
	db *sqlx.DB
}

type recordRow struct {
	Seq        int64     `db:"seq"`
	ID         string    `db:"id"`
	Collection string    `db:"collection"`
	URL        string    `db:"url"`
	Category   string    `db:"category"`
	Vector     []byte    `db:"vector"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r *recordRow) toRecord() (*models.Record, error) {
	vec, err := DecodeVector(r.Vector)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return &models.Record{
		ID:        r.ID,
		URL:       r.URL,
		Category:  models.Category(r.Category),
		Vector:    vec,
		CreatedAt: r.CreatedAt,
	}, nil
}

// NewSQLiteStorage opens or creates the database at dbPath and initializes the
// schema. Parent directories are created as needed; ":memory:" is accepted.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		dimensions INTEGER NOT NULL,
		distance TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		collection TEXT NOT NULL REFERENCES collections(name),
		url TEXT NOT NULL,
		category TEXT NOT NULL,
		vector BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_collection_url ON records(collection, url);
	`
	_, err := db.Exec(schema)
	return err
}

// EnsureCollection creates the collection with cosine distance when absent.
func (s *SQLiteStorage) EnsureCollection(ctx context.Context, name string, dimensions int) (*models.Collection, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("collection %s: dimensions must be positive", name)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, dimensions, distance, created_at)
		 VALUES (?, ?, ?, ?) ON CONFLICT(name) DO NOTHING`,
		name, dimensions, models.DistanceCosine, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}
	col, err := s.GetCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	if col.Dimensions != dimensions {
		return nil, fmt.Errorf("collection %s has dimension %d, embedder produces %d", name, col.Dimensions, dimensions)
	}
	return col, nil
}

// GetCollection returns the named collection or models.ErrNotFound.
func (s *SQLiteStorage) GetCollection(ctx context.Context, name string) (*models.Collection, error) {
	var col models.Collection
	err := s.db.GetContext(ctx, &col,
		`SELECT name, dimensions, distance, created_at FROM collections WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("collection %s: %w", name, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get collection %s: %w", name, err)
	}
	return &col, nil
}

// InsertRecord stores rec. CreatedAt is set when zero.
func (s *SQLiteStorage) InsertRecord(ctx context.Context, collection string, rec *models.Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, collection, url, category, vector, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, collection, rec.URL, string(rec.Category), EncodeVector(rec.Vector), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", rec.ID, err)
	}
	return nil
}

// GetRecord returns a record by ID or models.ErrNotFound.
func (s *SQLiteStorage) GetRecord(ctx context.Context, collection, id string) (*models.Record, error) {
	return s.getOne(ctx,
		`SELECT * FROM records WHERE collection = ? AND id = ?`, collection, id)
}

// FindRecordByURL returns the earliest record for url or models.ErrNotFound.
func (s *SQLiteStorage) FindRecordByURL(ctx context.Context, collection, url string) (*models.Record, error) {
	return s.getOne(ctx,
		`SELECT * FROM records WHERE collection = ? AND url = ? ORDER BY seq LIMIT 1`, collection, url)
}

func (s *SQLiteStorage) getOne(ctx context.Context, query string, args ...interface{}) (*models.Record, error) {
	var row recordRow
	err := s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return row.toRecord()
}

// EachRecord streams the collection's records ordered by insertion.
func (s *SQLiteStorage) EachRecord(ctx context.Context, collection string, fn func(*models.Record) error) error {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT * FROM records WHERE collection = ? ORDER BY seq`, collection)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row recordRow
		if err := rows.StructScan(&row); err != nil {
			return fmt.Errorf("scan record: %w", err)
		}
		rec, err := row.toRecord()
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountRecords returns the number of records in the collection.
func (s *SQLiteStorage) CountRecords(ctx context.Context, collection string) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM records WHERE collection = ?`, collection); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
