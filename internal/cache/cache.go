// Package cache provides the optional TTL result cache composed in front of
// the request path for read-heavy integrations (search APIs and the like).
// Cache state is independent of limiter state: clearing the cache never
// touches rate accounting.
package cache

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"saasbridge-go/internal/constants"
	"saasbridge-go/internal/monitoring"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// TTL is a key→(value, expiry) store with opportunistic sweeping.
type TTL struct {
	provider   string
	ttl        time.Duration
	maxEntries int

	mu        sync.Mutex
	items     map[string]entry
	lastSweep time.Time
}

// New creates a cache for provider with the given entry TTL.
func New(provider string, ttl time.Duration, maxEntries int) *TTL {
	if ttl <= 0 {
		ttl = constants.ResultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = constants.ResultCacheMaxEntries
	}
	return &TTL{
		provider:   provider,
		ttl:        ttl,
		maxEntries: maxEntries,
		items:      make(map[string]entry),
	}
}

// Key builds the cache key for a request: method, path, and encoded query.
func Key(method, path string, query url.Values) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(' ')
	b.WriteString(path)
	if len(query) > 0 {
		b.WriteByte('?')
		b.WriteString(query.Encode())
	}
	return b.String()
}

// Get returns the cached value for key if present and unexpired.
func (c *TTL) Get(key string) ([]byte, bool) {
	now := time.Now()
	c.mu.Lock()
	e, ok := c.items[key]
	if ok && now.After(e.expiresAt) {
		delete(c.items, key)
		ok = false
	}
	c.mu.Unlock()

	if ok {
		monitoring.RecordCacheHit(c.provider)
		return e.value, true
	}
	monitoring.RecordCacheMiss(c.provider)
	return nil, false
}

// Set stores value under key. When the cache is full, expired entries are
// swept first; if still full, the write is dropped rather than evicting a
// live entry at random.
func (c *TTL) Set(key string, value []byte) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastSweep.IsZero() || now.Sub(c.lastSweep) > constants.CacheSweepInterval {
		c.sweepLocked(now)
		c.lastSweep = now
	}
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		c.sweepLocked(now)
		if len(c.items) >= c.maxEntries {
			return
		}
	}
	c.items[key] = entry{value: value, expiresAt: now.Add(c.ttl)}
}

// Clear empties the cache.
func (c *TTL) Clear() {
	c.mu.Lock()
	c.items = make(map[string]entry)
	c.mu.Unlock()
}

// Len reports live (possibly expired but unswept) entries.
func (c *TTL) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTL) sweepLocked(now time.Time) {
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
		}
	}
}
