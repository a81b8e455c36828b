package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cordpulse/internal/dataprocessing"
)

// DefaultTTL bounds how long a cleaned table is reused.
const DefaultTTL = time.Hour

// ErrNilLoader is returned when Get is called without a loader.
var ErrNilLoader = errors.New("cache: nil loader")

// LoadFunc produces the cleaned table for a path.
type LoadFunc func(ctx context.Context, path string) (*dataprocessing.Table, error)

// Entry is one memoized load result.
type Entry struct {
	Table     *dataprocessing.Table `json:"-"`
	Path      string                `json:"path"`
	CachedAt  time.Time             `json:"cached_at"`
	ExpiresAt time.Time             `json:"expires_at"`
	HitCount  int                   `json:"hit_count"`
}

// Expired reports whether the entry is stale at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries    int     `json:"entries"`
	HitCount   int64   `json:"hit_count"`
	MissCount  int64   `json:"miss_count"`
	HitRatio   float64 `json:"hit_ratio"`
	TTLSeconds float64 `json:"ttl_seconds"`
}

// DatasetCache memoizes cleaned tables keyed by source path. Failed loads
// are never stored.
type DatasetCache struct {
	entries   map[string]Entry
	mutex     sync.RWMutex
	ttl       time.Duration
	hitCount  int64
	missCount int64
	group     singleflight.Group
	now       func() time.Time
}

// Option configures a DatasetCache.
type Option func(*DatasetCache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *DatasetCache) { c.now = now }
}

// NewDatasetCache creates a cache whose entries live for ttl. A non-positive
// ttl falls back to DefaultTTL.
func NewDatasetCache(ttl time.Duration, opts ...Option) *DatasetCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &DatasetCache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the table cached for path, calling load on a miss. hit
// reports whether the table came from the cache. Concurrent misses for the
// same path share a single load.
func (c *DatasetCache) Get(ctx context.Context, path string, load LoadFunc) (table *dataprocessing.Table, hit bool, err error) {
	if load == nil {
		return nil, false, ErrNilLoader
	}
	if t, ok := c.lookup(path); ok {
		return t, true, nil
	}

	v, err, _ := c.group.Do(path, func() (interface{}, error) {
		// another caller may have filled the entry while we waited
		if t, ok := c.peek(path); ok {
			return t, nil
		}
		// shared by every waiter; detached from the first caller's cancellation
		t, err := load(context.WithoutCancel(ctx), path)
		if err != nil {
			return nil, err
		}
		c.set(path, t)
		return t, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*dataprocessing.Table), false, nil
}

// Entry returns the live entry for path without touching the counters.
func (c *DatasetCache) Entry(path string) (Entry, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	e, ok := c.entries[path]
	if !ok || e.Expired(c.now()) {
		return Entry{}, false
	}
	return e, true
}

// Invalidate drops the entry for path.
func (c *DatasetCache) Invalidate(path string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, path)
}

// Stats returns the current counters.
func (c *DatasetCache) Stats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	total := c.hitCount + c.missCount
	ratio := float64(0)
	if total > 0 {
		ratio = float64(c.hitCount) / float64(total)
	}
	return Stats{
		Entries:    len(c.entries),
		HitCount:   c.hitCount,
		MissCount:  c.missCount,
		HitRatio:   ratio,
		TTLSeconds: c.ttl.Seconds(),
	}
}

// TTL returns the configured lifetime.
func (c *DatasetCache) TTL() time.Duration { return c.ttl }

func (c *DatasetCache) lookup(path string) (*dataprocessing.Table, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.entries[path]
	if ok && e.Expired(c.now()) {
		delete(c.entries, path)
		ok = false
	}
	if !ok {
		c.missCount++
		return nil, false
	}
	e.HitCount++
	c.entries[path] = e
	c.hitCount++
	return e.Table, true
}

func (c *DatasetCache) peek(path string) (*dataprocessing.Table, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	e, ok := c.entries[path]
	if !ok || e.Expired(c.now()) {
		return nil, false
	}
	return e.Table, true
}

func (c *DatasetCache) set(path string, t *dataprocessing.Table) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := c.now()
	c.entries[path] = Entry{
		Table:     t,
		Path:      path,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
}
