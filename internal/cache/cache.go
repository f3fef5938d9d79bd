// Package cache memoizes the prepared fact table by input fingerprint.
//
// The cache holds one entry: the table built for the most recent
// fingerprint. A lookup with the same fingerprint is a hit; any other
// fingerprint is a miss that builds, publishes and replaces the entry.
// Concurrent misses for the same fingerprint share one build. Published
// tables are never mutated, so readers need no further locking.
package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/debastene/f1-psda-dashboard/internal/fact"
	"github.com/debastene/f1-psda-dashboard/internal/metrics"
)

// BuildFunc produces the table for a fingerprint.
type BuildFunc func(ctx context.Context) (*fact.Table, error)

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Builds      int64
	BuildErrors int64
	// Key is the fingerprint of the current entry, "" when empty.
	Key string
}

// Cache is safe for concurrent use. The zero value is not usable; call New.
type Cache struct {
	job string

	mu    sync.RWMutex
	key   string
	table *fact.Table

	group singleflight.Group

	hits, misses, builds, buildErrs atomic.Int64
}

// New returns an empty cache. job labels metrics.
func New(job string) *Cache { return &Cache{job: job} }

// Get returns the table for key, calling build on a miss. Build errors are
// returned to every waiting caller and are not cached.
func (c *Cache) Get(ctx context.Context, key string, build BuildFunc) (*fact.Table, error) {
	if t, ok := c.lookup(key); ok {
		c.hits.Add(1)
		metrics.RecordCache(c.job, "hit")
		return t, nil
	}
	c.misses.Add(1)
	metrics.RecordCache(c.job, "miss")

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A flight for key may have finished between lookup and Do.
		if t, ok := c.lookup(key); ok {
			return t, nil
		}
		c.builds.Add(1)
		t, err := build(ctx)
		if err != nil {
			c.buildErrs.Add(1)
			return nil, err
		}
		c.mu.Lock()
		c.key, c.table = key, t
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*fact.Table), nil
}

func (c *Cache) lookup(key string) (*fact.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.table != nil && c.key == key {
		return c.table, true
	}
	return nil, false
}

// Invalidate drops the current entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.key, c.table = "", nil
	c.mu.Unlock()
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	key := c.key
	c.mu.RUnlock()
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Builds:      c.builds.Load(),
		BuildErrors: c.buildErrs.Load(),
		Key:         key,
	}
}
