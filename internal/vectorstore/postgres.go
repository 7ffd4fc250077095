package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hyperjump/pagesift/internal/models"
)

var collectionName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,40}$`)

// PostgresBackend stores one collection in a pgvector table.
type PostgresBackend struct {
	db         *sqlx.DB
	table      string
	collection models.Collection
}

type pgHitRow struct {
	ID        string    `db:"id"`
	URL       string    `db:"url"`
	Category  string    `db:"category"`
	CreatedAt time.Time `db:"created_at"`
	Score     float64   `db:"score"`
}

// NewPostgresBackend connects to dsn, installs the vector extension and
// creates the collection table when absent.
func NewPostgresBackend(ctx context.Context, dsn, name string, dimensions int) (*PostgresBackend, error) {
	if !collectionName.MatchString(name) {
		return nil, fmt.Errorf("invalid collection name %q", name)
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("collection %s: dimensions must be positive", name)
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, &models.StoreError{Op: "connect", Err: err}
	}
	b := &PostgresBackend{db: db, table: pq.QuoteIdentifier("pagesift_" + name)}
	if err := b.ensureCollection(ctx, name, dimensions); err != nil {
		_ = db.Close()
		return nil, &models.StoreError{Op: "ensure collection", Err: err}
	}
	return b, nil
}

func (b *PostgresBackend) ensureCollection(ctx context.Context, name string, dimensions int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS pagesift_collections (
			name TEXT PRIMARY KEY,
			dimensions INTEGER NOT NULL,
			distance TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, s := range stmts {
		if _, err := b.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	if _, err := b.db.ExecContext(ctx,
		`INSERT INTO pagesift_collections (name, dimensions, distance) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO NOTHING`,
		name, dimensions, models.DistanceCosine); err != nil {
		return err
	}
	if err := b.db.GetContext(ctx, &b.collection,
		`SELECT name, dimensions, distance, created_at FROM pagesift_collections WHERE name = $1`, name); err != nil {
		return err
	}
	if b.collection.Dimensions != dimensions {
		return fmt.Errorf("collection %s has dimension %d, embedder produces %d", name, b.collection.Dimensions, dimensions)
	}

	table := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		seq BIGSERIAL PRIMARY KEY,
		id UUID NOT NULL UNIQUE,
		url TEXT NOT NULL,
		category TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, b.table, dimensions)
	if _, err := b.db.ExecContext(ctx, table); err != nil {
		return err
	}
	urlIndex := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (url)`,
		pq.QuoteIdentifier("pagesift_"+name+"_url_idx"), b.table)
	_, err := b.db.ExecContext(ctx, urlIndex)
	return err
}

// Insert writes rec.
func (b *PostgresBackend) Insert(ctx context.Context, rec *models.Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := b.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, url, category, embedding, created_at) VALUES ($1, $2, $3, $4::vector, $5)`, b.table),
		rec.ID, rec.URL, string(rec.Category), vectorLiteral(rec.Vector), rec.CreatedAt)
	return err
}

// Search orders by cosine distance, then by insertion.
func (b *PostgresBackend) Search(ctx context.Context, query []float32, limit int) ([]*models.SearchHit, error) {
	var rows []pgHitRow
	err := b.db.SelectContext(ctx, &rows, fmt.Sprintf(
		`SELECT id, url, category, created_at, 1 - (embedding <=> $1::vector) AS score
		 FROM %s ORDER BY embedding <=> $1::vector, seq LIMIT $2`, b.table),
		vectorLiteral(query), limit)
	if err != nil {
		return nil, err
	}
	hits := make([]*models.SearchHit, len(rows))
	for i, r := range rows {
		hits[i] = &models.SearchHit{
			Record: &models.Record{ID: r.ID, URL: r.URL, Category: models.Category(r.Category), CreatedAt: r.CreatedAt},
			Score:  r.Score,
		}
	}
	return hits, nil
}

// LookupURL returns the earliest record stored for url, or nil.
func (b *PostgresBackend) LookupURL(ctx context.Context, url string) (*models.Record, error) {
	var rec models.Record
	err := b.db.GetContext(ctx, &rec, fmt.Sprintf(
		`SELECT id, url, category, created_at FROM %s WHERE url = $1 ORDER BY seq LIMIT 1`, b.table), url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Count returns the number of stored records.
func (b *PostgresBackend) Count(ctx context.Context) (int64, error) {
	var n int64
	err := b.db.GetContext(ctx, &n, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, b.table))
	return n, err
}

// Collection describes the collection.
func (b *PostgresBackend) Collection() models.Collection {
	return b.collection
}

// Kind returns "postgres".
func (b *PostgresBackend) Kind() string {
	return "postgres"
}

// Close closes the connection pool.
func (b *PostgresBackend) Close() error {
	return b.db.Close()
}

// vectorLiteral formats v in pgvector's text form, e.g. "[0.1,0.2]".
func vectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
