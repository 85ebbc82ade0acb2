// Package cache is an in-memory stale-while-revalidate store for rating
// responses, keyed by the strongest available entity identifier. Entries are
// served stale after the freshness window and evicted lazily once the TTL has
// passed; the caller decides whether a stale hit triggers a refresh.
package cache

import (
	"sync"
	"time"

	"github.com/sells-group/ratings-engine/internal/model"
)

// Entry is one cached response.
type Entry struct {
	Data      model.Response
	Timestamp time.Time
	Key       string
}

// Cache is safe for concurrent use from overlapping requests. It is bounded
// by process lifetime; no write-time eviction is performed.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]Entry
	ttl        time.Duration
	staleAfter time.Duration

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// New creates a cache with the given TTL and freshness window.
func New(ttl, staleAfter time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	if staleAfter <= 0 || staleAfter > ttl {
		staleAfter = 2 * time.Hour
	}
	return &Cache{
		entries:    make(map[string]Entry),
		ttl:        ttl,
		staleAfter: staleAfter,
		nowFunc:    time.Now,
	}
}

// WithNow replaces the cache clock. Test use only.
func (c *Cache) WithNow(now func() time.Time) *Cache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowFunc = now
	return c
}

// Get returns the cached response for key. stale is true when the entry is
// older than the freshness window but still within its TTL. Entries past the
// TTL are evicted and reported as a miss.
func (c *Cache) Get(key string) (data model.Response, stale bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.entries[key]
	if !found {
		return model.Response{}, false, false
	}

	age := c.nowFunc().Sub(entry.Timestamp)
	if age > c.ttl {
		delete(c.entries, key)
		return model.Response{}, false, false
	}
	return entry.Data, age > c.staleAfter, true
}

// Set stores a response under key, replacing any previous entry.
func (c *Cache) Set(key string, data model.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Data: data, Timestamp: c.nowFunc(), Key: key}
}

// Len returns the number of live entries, counting expired-but-unevicted ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
