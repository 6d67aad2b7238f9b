// Package texcache bounds decoded-texture memory while maximizing reuse
// of recently viewed pages. It is a pure synchronized key→value store:
// no decode logic, no I/O.
package texcache

import (
	"sync"

	"go.uber.org/zap"

	"github.com/pageturn/pageturn/internal/decode"
	"github.com/pageturn/pageturn/internal/logging"
	"github.com/pageturn/pageturn/internal/metrics"
)

// Key identifies one decode result: a media item plus the resolution tier
// it was decoded at. Manga mode may hold a downsampled preview and a
// full-resolution decode of the same item under different tiers.
type Key struct {
	Ordinal int
	Tier    int
}

type entry struct {
	key        Key
	frame      *decode.Frame
	sizeBytes  int64
	lastAccess uint64
	oversized  bool
}

// Cache is a byte-budget bounded LRU store of decoded frames. Recency is
// tracked with a frame tick rather than wall time: the render loop calls
// Tick once per frame, so all touches within one frame share a tick and
// eviction ties are broken by ordinal distance from the viewport center.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	budget  int64
	size    int64
	tick    uint64
}

// New creates a cache with the given byte budget.
func New(budgetBytes int64) *Cache {
	return &Cache{
		entries: make(map[Key]*entry),
		budget:  budgetBytes,
	}
}

// Tick advances the recency clock. Call once per rendered frame.
func (c *Cache) Tick() {
	c.mu.Lock()
	c.tick++
	c.mu.Unlock()
}

// Get returns the cached frame for key and marks it touched. It never
// evicts and never blocks on anything but the cache mutex, so it is safe
// on the render path. A miss creates no side effects; jobs are only
// created by the scheduler.
func (c *Cache) Get(key Key) (*decode.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		metrics.RecordCacheMiss()
		return nil, false
	}
	e.lastAccess = c.tick
	metrics.RecordCacheHit()
	return e.frame, true
}

// Contains reports residency without touching the entry.
func (c *Cache) Contains(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Touch marks an entry as used this frame without returning it. The
// scheduler calls this on cache hits so resident items stay warm.
func (c *Cache) Touch(key Key) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.lastAccess = c.tick
	}
	c.mu.Unlock()
}

// Put inserts or replaces the frame for key and evicts back to budget.
// center is the viewport's current ordinal, used to break recency ties in
// favor of spatially near content. Returns the keys evicted to make room.
//
// A single frame larger than the entire budget is retained (the viewer
// must still show the page) but flagged so the next insertion evicts it
// first.
func (c *Cache) Put(key Key, frame *decode.Frame, sizeBytes int64, center int) []Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		// Replace in place; accounting is not duplicated.
		c.size += sizeBytes - old.sizeBytes
		old.frame = frame
		old.sizeBytes = sizeBytes
		old.lastAccess = c.tick
		old.oversized = sizeBytes > c.budget
	} else {
		c.entries[key] = &entry{
			key:        key,
			frame:      frame,
			sizeBytes:  sizeBytes,
			lastAccess: c.tick,
			oversized:  sizeBytes > c.budget,
		}
		c.size += sizeBytes
	}

	var evicted []Key
	for c.size > c.budget && len(c.entries) > 1 {
		victim := c.pickVictim(key, center)
		if victim == nil {
			break
		}
		c.size -= victim.sizeBytes
		delete(c.entries, victim.key)
		evicted = append(evicted, victim.key)
	}

	if len(evicted) > 0 {
		metrics.RecordEviction(len(evicted))
		logging.Debug("texture cache evicted",
			zap.Int("count", len(evicted)),
			zap.Int64("size", c.size))
	}
	metrics.SetCacheBytes(c.size)
	return evicted
}

// pickVictim selects the next entry to evict: flagged oversized entries
// first, then lowest lastAccess, ties broken by greatest ordinal distance
// from center. The just-inserted key is never the victim while other
// entries remain.
func (c *Cache) pickVictim(justInserted Key, center int) *entry {
	var victim *entry
	for _, e := range c.entries {
		if e.key == justInserted {
			continue
		}
		if e.oversized {
			return e
		}
		if victim == nil {
			victim = e
			continue
		}
		if e.lastAccess < victim.lastAccess {
			victim = e
			continue
		}
		if e.lastAccess == victim.lastAccess && distance(e.key.Ordinal, center) > distance(victim.key.Ordinal, center) {
			victim = e
		}
	}
	return victim
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// Remove drops a single entry.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.size -= e.sizeBytes
		delete(c.entries, key)
		metrics.SetCacheBytes(c.size)
	}
	c.mu.Unlock()
}

// Clear drops every entry (session teardown).
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[Key]*entry)
	c.size = 0
	metrics.SetCacheBytes(0)
	c.mu.Unlock()
}

// Stats returns current byte usage, the configured budget, and the entry
// count.
func (c *Cache) Stats() (size, budget int64, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size, c.budget, len(c.entries)
}

// Keys returns the keys of all resident entries.
func (c *Cache) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}
