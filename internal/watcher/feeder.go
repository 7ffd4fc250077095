package watcher

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/pagesift/internal/models"
	"github.com/hyperjump/pagesift/pkg/utils"
)

// Ingester ingests batches of URLs.
type Ingester interface {
	IngestBatch(ctx context.Context, urls []string) []*models.IngestResult
}

// ReadURLs returns the URLs listed in a file, one per line. Blank lines and
// lines starting with '#' are skipped.
func ReadURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}

// Feeder ingests URLs from list files, each URL at most once per process.
// A URL whose ingestion failed is forgotten so a later change retries it.
type Feeder struct {
	ingester Ingester
	logger   *zap.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewFeeder returns a feeder that hands new URLs to ingester.
func NewFeeder(ingester Ingester, logger *zap.Logger) *Feeder {
	logger = utils.OrNop(logger)
	return &Feeder{
		ingester: ingester,
		logger:   logger,
		seen:     make(map[string]struct{}),
	}
}

// HandleFile ingests the URLs of path not seen before and returns their results.
func (f *Feeder) HandleFile(ctx context.Context, path string) ([]*models.IngestResult, error) {
	urls, err := ReadURLs(path)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	fresh := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := f.seen[u]; ok {
			continue
		}
		f.seen[u] = struct{}{}
		fresh = append(fresh, u)
	}
	f.mu.Unlock()

	if len(fresh) == 0 {
		return nil, nil
	}
	f.logger.Info("ingesting urls from list", zap.String("path", path), zap.Int("urls", len(fresh)))
	results := f.ingester.IngestBatch(ctx, fresh)

	f.mu.Lock()
	for _, r := range results {
		if r.Failed() {
			delete(f.seen, r.URL)
			f.logger.Warn("ingest failed", zap.String("url", r.URL), zap.String("error", r.Error))
		}
	}
	f.mu.Unlock()
	return results, nil
}
