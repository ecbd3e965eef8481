// Package framecache keeps recently generated illustration frames keyed by a
// fingerprint of their prompt.
package framecache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Defaults applied when Config fields are unset.
const (
	defaultCapacity  = 100
	defaultThreshold = 0.8
	defaultBatch     = 20
)

// Config sizes the cache.
type Config struct {
	// Capacity is the hard bound on entries.
	Capacity int
	// Threshold is the fraction of Capacity above which eviction starts.
	Threshold float64
	// Batch is how many of the oldest entries one eviction round removes.
	Batch int
	Now   func() time.Time
}

type entry struct {
	image string
	ts    time.Time
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Entries  int    `json:"entries"`
	Capacity int    `json:"capacity"`
	Hits     int64  `json:"hits"`
	Misses   int64  `json:"misses"`
	Evicted  uint64 `json:"evicted"`
}

// Cache maps prompt fingerprints to generated images.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	capacity  int
	threshold int
	batch     int
	now       func() time.Time

	hits    atomic.Int64
	misses  atomic.Int64
	evicted atomic.Uint64
}

// Fingerprint derives the cache key for prompt.
func Fingerprint(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// New builds a cache, applying package defaults to unset fields.
func New(cfg Config) *Cache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCapacity
	}
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = defaultThreshold
	}
	if cfg.Batch <= 0 {
		cfg.Batch = defaultBatch
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	threshold := int(float64(cfg.Capacity) * cfg.Threshold)
	if threshold < 1 {
		threshold = 1
	}
	return &Cache{
		entries:   make(map[string]*entry),
		capacity:  cfg.Capacity,
		threshold: threshold,
		batch:     cfg.Batch,
		now:       cfg.Now,
	}
}

// Lookup returns the cached image for key and marks it as recently used.
func (c *Cache) Lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return "", false
	}
	e.ts = c.now()
	c.hits.Add(1)
	return e.image, true
}

// Insert stores image under key with the current timestamp and evicts the
// oldest entries if the cleanup threshold is exceeded.
func (c *Cache) Insert(key, image string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.image = image
		e.ts = c.now()
	} else {
		c.entries[key] = &entry{image: image, ts: c.now()}
	}
	c.evictLocked()
}

// EvictIfNeeded runs an eviction pass and returns how many entries were removed.
func (c *Cache) EvictIfNeeded() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictLocked()
}

func (c *Cache) evictLocked() int {
	if len(c.entries) <= c.threshold {
		return 0
	}
	type aged struct {
		key string
		ts  time.Time
	}
	order := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		order = append(order, aged{key: k, ts: e.ts})
	}
	// oldest first; equal timestamps fall back to key order
	sort.Slice(order, func(i, j int) bool {
		if order[i].ts.Equal(order[j].ts) {
			return order[i].key < order[j].key
		}
		return order[i].ts.Before(order[j].ts)
	})
	removed := 0
	for len(c.entries) > c.threshold {
		for n := 0; n < c.batch && removed < len(order); n++ {
			delete(c.entries, order[removed].key)
			removed++
		}
	}
	c.evicted.Add(uint64(removed))
	return removed
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns counters and size.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries:  c.Len(),
		Capacity: c.capacity,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Evicted:  c.evicted.Load(),
	}
}
