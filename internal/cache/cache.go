// Package cache memoizes internal/engine.ParseDiff results keyed by a stable
// hash of (filename, previousFilename, patch), with batch eviction of the
// oldest ~20% of entries on overflow rather than per-insertion LRU
// bookkeeping — the same tradeoff the teacher's cachedStorage.doClean makes
// for its on-disk blob cache, applied here to an in-memory result cache.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/thehowl/prdiff/internal/diffmodel"
)

// DefaultCap is spec.md's default cache size.
const DefaultCap = 500

// evictFraction is the share of entries dropped once the cache overflows its
// cap, matching spec.md's "evict the oldest ~20%" (batch, not per-insertion).
const evictFraction = 0.20

type entry struct {
	result     *diffmodel.ParsedDiff
	lastAccess time.Time
}

// Cache is a bounded, in-memory store of ParsedDiff results.
type Cache struct {
	cap int

	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates a cache with the given capacity. A cap of 0 uses DefaultCap.
func New(cap int) *Cache {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Cache{cap: cap, entries: make(map[string]*entry)}
}

// Key hashes the fields that determine a ParseDiff result.
func Key(filename, previousFilename, patch string) string {
	h := sha256.New()
	h.Write([]byte(filename))
	h.Write([]byte{0})
	h.Write([]byte(previousFilename))
	h.Write([]byte{0})
	h.Write([]byte(patch))
	return hex.EncodeToString(h.Sum(nil))
}

// Get looks up key, bumping its last-access time on hit.
func (c *Cache) Get(key string) (*diffmodel.ParsedDiff, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	c.mu.Lock()
	e.lastAccess = time.Now()
	c.mu.Unlock()
	return e.result, true
}

// Store records result under key. Per spec.md, the cache never stores an
// error result or one produced without full old/new content — both are the
// caller's responsibility to filter before calling Store; Store itself just
// rejects a nil result.
func (c *Cache) Store(key string, result *diffmodel.ParsedDiff) {
	if result == nil {
		return
	}
	c.mu.Lock()
	c.entries[key] = &entry{result: result, lastAccess: time.Now()}
	overflow := len(c.entries) > c.cap
	c.mu.Unlock()

	if overflow {
		c.evictOldest()
	}
}

// evictOldest drops the oldest ~20% of entries by last-access time, in one
// batch pass rather than maintaining per-access LRU order.
func (c *Cache) evictOldest() {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.entries[keys[i]].lastAccess.Before(c.entries[keys[j]].lastAccess)
	})

	n := int(float64(len(keys)) * evictFraction)
	if n < 1 {
		n = 1
	}
	for _, k := range keys[:n] {
		delete(c.entries, k)
	}
}

// Len reports the current entry count, for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
