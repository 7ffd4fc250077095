// Package cache provides a time-bounded key/value cache for fetched page content.
package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

// DefaultTTL is how long an entry stays visible when no TTL is configured.
const DefaultTTL = time.Hour

const shardCount = 32

// TTLCache maps keys to string values that expire TTL after they were set.
// Expired entries are removed lazily by the next Get on that key; nothing
// sweeps in the background, so memory grows with the number of distinct keys.
//
// Keys are spread over shards, each with its own mutex, so every operation on
// one key is atomic with respect to other operations on the same key.
type TTLCache struct {
	ttl    time.Duration
	now    func() time.Time
	shards [shardCount]*shard
}

type shard struct {
	mu      sync.Mutex
	entries map[string]entry
}

type entry struct {
	value     string
	createdAt time.Time
}

// Option configures a TTLCache.
type Option func(*TTLCache)

// WithClock sets the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a cache whose entries expire after ttl. A non-positive ttl uses DefaultTTL.
func New(ttl time.Duration, opts ...Option) *TTLCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &TTLCache{ttl: ttl, now: time.Now}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]entry)}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *TTLCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the value for key while it is younger than the TTL. An expired
// entry is deleted and reported as absent.
func (c *TTLCache) Get(key string) (string, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return "", false
	}
	if c.now().Sub(e.createdAt) < c.ttl {
		return e.value, true
	}
	delete(s.entries, key)
	return "", false
}

// Set stores value under key, replacing any existing entry and resetting its age.
func (c *TTLCache) Set(key, value string) {
	s := c.shardFor(key)
	s.mu.Lock()
	s.entries[key] = entry{value: value, createdAt: c.now()}
	s.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet touched.
func (c *TTLCache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

func (c *TTLCache) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum32()%shardCount]
}
