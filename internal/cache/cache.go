// Package cache is a time-boxed memo for validation and roster-listing
// results. Entries live in process memory for the session; there is no
// background sweeper; expiry is checked lazily on each read.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

// Cache is safe for concurrent use. The zero value is not usable; call New.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func New() *Cache {
	return &Cache{entries: make(map[string]entry), now: time.Now}
}

// NewWithClock lets tests drive expiry without sleeping.
func NewWithClock(now func() time.Time) *Cache {
	c := New()
	c.now = now
	return c
}

// Key builds the composite cache key: event scope, then operation-specific
// parts (code or page, mode).
func Key(parts ...string) string { return strings.Join(parts, "|") }

// Get returns the live value for key. An expired entry is dropped on the
// spot and reported as a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		missesTotal.Inc()
		return nil, false
	}
	if c.now().Sub(e.storedAt) > e.ttl {
		delete(c.entries, key)
		evictionsTotal.Inc()
		missesTotal.Inc()
		return nil, false
	}
	hitsTotal.Inc()
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl disables caching
// for that call.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, storedAt: c.now(), ttl: ttl}
}

// Invalidate removes every entry whose key starts with prefix. Used after a
// confirmed scan so the next roster read reflects it.
func (c *Cache) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			evictionsTotal.Inc()
		}
	}
}

// Clear drops everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len reports live entry count without pruning.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
