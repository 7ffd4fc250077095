// Package extract fetches web pages and reduces them to normalized plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/pagesift/internal/cache"
	"github.com/hyperjump/pagesift/internal/models"
)

const (
	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent with every fetch.
	DefaultUserAgent = "pagesift/1.0 (+https://github.com/hyperjump/pagesift)"
	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes int64 = 10 << 20
)

// Extractor fetches URLs and returns their visible text, consulting a TTL
// cache keyed by URL before touching the network.
type Extractor struct {
	cache     *cache.TTLCache
	client    *http.Client
	timeout   time.Duration
	userAgent string
	maxBody   int64
	logger    *zap.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithHTTPClient sets the client used for fetches.
func WithHTTPClient(c *http.Client) ExtractorOption {
	return func(e *Extractor) {
		if c != nil {
			e.client = c
		}
	}
}

// WithTimeout sets the per-fetch timeout. It applies to a client passed with
// WithHTTPClient too, without modifying that client.
func WithTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ExtractorOption {
	return func(e *Extractor) {
		if ua != "" {
			e.userAgent = ua
		}
	}
}

// WithMaxBodyBytes caps the number of body bytes read per fetch.
func WithMaxBodyBytes(n int64) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.maxBody = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor returns an Extractor backed by c. A nil cache gets a fresh
// cache with the default TTL.
func NewExtractor(c *cache.TTLCache, opts ...ExtractorOption) *Extractor {
	if c == nil {
		c = cache.New(cache.DefaultTTL)
	}
	e := &Extractor{
		cache:     c,
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
		maxBody:   DefaultMaxBodyBytes,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.timeout > 0 && e.client.Timeout != e.timeout {
		c := *e.client
		c.Timeout = e.timeout
		e.client = &c
	}
	return e
}

// Cache returns the content cache.
func (e *Extractor) Cache() *cache.TTLCache {
	return e.cache
}

// FetchAndExtract returns the normalized visible text of url. A cached value
// short-circuits the fetch. Only successful, non-empty extractions are cached.
// Errors are *models.FetchError or *models.EmptyContentError.
func (e *Extractor) FetchAndExtract(ctx context.Context, url string) (string, error) {
	if text, ok := e.cache.Get(url); ok {
		e.logger.Debug("content cache hit", zap.String("url", url))
		return text, nil
	}

	start := time.Now()
	body, contentType, err := e.fetch(ctx, url)
	if err != nil {
		return "", err
	}

	text, err := ExtractBytes(body, contentType)
	if err != nil {
		if errors.Is(err, errUnsupported) {
			return "", &models.EmptyContentError{URL: url}
		}
		return "", fmt.Errorf("extract %s: %w", url, err)
	}
	if text == "" {
		return "", &models.EmptyContentError{URL: url}
	}

	e.cache.Set(url, text)
	e.logger.Debug("page extracted",
		zap.String("url", url),
		zap.String("content_type", contentType),
		zap.Int("chars", len(text)),
		zap.Duration("took", time.Since(start)),
	)
	return text, nil
}

func (e *Extractor) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", &models.FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", &models.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &models.FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody))
	if err != nil {
		return nil, "", &models.FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, resp.Header.Get("Content-Type"), nil
}
