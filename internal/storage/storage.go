// Package storage persists collections and page records.
package storage

import (
	"context"

	"github.com/hyperjump/pagesift/internal/models"
)

// Storage is the record of truth for the local vector store backend.
type Storage interface {
	// EnsureCollection creates the collection when absent and returns it.
	// An existing collection with a different dimension is an error.
	EnsureCollection(ctx context.Context, name string, dimensions int) (*models.Collection, error)
	GetCollection(ctx context.Context, name string) (*models.Collection, error)

	InsertRecord(ctx context.Context, collection string, rec *models.Record) error
	GetRecord(ctx context.Context, collection, id string) (*models.Record, error)
	// FindRecordByURL returns the earliest record stored for url.
	FindRecordByURL(ctx context.Context, collection, url string) (*models.Record, error)
	// EachRecord calls fn for every record of the collection in insertion order.
	EachRecord(ctx context.Context, collection string, fn func(*models.Record) error) error
	CountRecords(ctx context.Context, collection string) (int64, error)

	Close() error
}
