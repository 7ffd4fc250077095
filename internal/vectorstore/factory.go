package vectorstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/pagesift/internal/storage"
)

// BackendConfig selects and locates a backend.
type BackendConfig struct {
	// Kind is "local" (default) or "postgres".
	Kind         string
	DatabasePath string
	IndexPath    string
	PostgresDSN  string
	Collection   string
}

// OpenBackend opens the configured backend for a collection of the given dimension.
func OpenBackend(ctx context.Context, cfg BackendConfig, dimensions int, logger *zap.Logger) (Backend, error) {
	name := cfg.Collection
	if name == "" {
		name = DefaultCollection
	}
	switch cfg.Kind {
	case "", "local":
		st, err := storage.NewSQLiteStorage(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		b, err := NewLocalBackend(ctx, st, name, dimensions, cfg.IndexPath, logger)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		return b, nil
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres backend needs a DSN")
		}
		b, err := NewPostgresBackend(ctx, cfg.PostgresDSN, name, dimensions)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s (supported: local, postgres)", cfg.Kind)
	}
}
