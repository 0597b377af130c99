package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wtthornton/HomeIQ-sub003/pkg/synergy"
)

// MemoryCache is a thread-safe in-process LRU cache for chain records.
//
// The cache uses:
//   - Hash map for O(1) lookups
//   - Doubly-linked list for LRU ordering
//   - Optional TTL for automatic expiration
//
// Stored and returned records are clones, so neither the detector nor the
// caller can mutate a cached entry in place.
//
// Example:
//
//	c := cache.NewMemoryCache(1000, 10*time.Minute)
//
//	key := cache.ChainKey("motion", "light", "fan")
//	if chain, err := c.GetChainResult(ctx, key); err == nil {
//		return chain // Cache hit
//	}
//	c.SetChainResult(ctx, key, chain)
type MemoryCache struct {
	mu sync.RWMutex

	// Configuration
	maxEntries int
	ttl        time.Duration
	enabled    bool

	// LRU list and map
	list  *list.List
	items map[string]*list.Element

	// Statistics
	hits   uint64
	misses uint64
}

var _ Cache = (*MemoryCache)(nil)

// memoryEntry holds a cached record with metadata.
type memoryEntry struct {
	key       string
	value     *synergy.Synergy
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory chain cache.
//
// Parameters:
//   - maxEntries: Maximum number of cached records (LRU eviction when
//     exceeded). Values <= 0 fall back to 1000.
//   - ttl: Time-to-live for cached entries (0 = no expiration)
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		enabled:    true,
		list:       list.New(),
		items:      make(map[string]*list.Element, maxEntries),
	}
}

// GetChainResult returns a clone of the cached record, or ErrNotFound on a
// miss. A hit promotes the entry to most recently used.
//
// The whole lookup runs under the write lock: a hit reorders the LRU list,
// and the entry's value and deadline may be replaced by a concurrent set,
// so there is no read-only fast path.
func (c *MemoryCache) GetChainResult(ctx context.Context, key string) (*synergy.Synergy, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		atomic.AddUint64(&c.misses, 1)
		return nil, ErrNotFound
	}

	elem, ok := c.items[key]
	if !ok {
		atomic.AddUint64(&c.misses, 1)
		return nil, ErrNotFound
	}

	entry := elem.Value.(*memoryEntry)

	// Check TTL
	if c.ttl > 0 && time.Now().After(entry.expiresAt) {
		c.removeElement(elem)
		atomic.AddUint64(&c.misses, 1)
		return nil, ErrNotFound
	}

	// Move to front (most recently used)
	c.list.MoveToFront(elem)

	atomic.AddUint64(&c.hits, 1)
	return entry.value.Clone(), nil
}

// SetChainResult stores a clone of value under key.
//
// If the cache is full, the least recently used entry is evicted. If the
// key already exists, the value is replaced and its TTL refreshed.
func (c *MemoryCache) SetChainResult(ctx context.Context, key string, value *synergy.Synergy) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return nil
	}

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.value = value.Clone()
		if c.ttl > 0 {
			entry.expiresAt = time.Now().Add(c.ttl)
		}
		c.list.MoveToFront(elem)
		return nil
	}

	// Evict if at capacity
	for c.list.Len() >= c.maxEntries {
		c.evictOldest()
	}

	entry := &memoryEntry{
		key:   key,
		value: value.Clone(),
	}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}

	elem := c.list.PushFront(entry)
	c.items[key] = elem
	return nil
}

// Remove removes an entry from the cache.
func (c *MemoryCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries from the cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.list.Init()
	c.items = make(map[string]*list.Element, c.maxEntries)
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Len()
}

// SetEnabled enables or disables the cache. Disabling clears it.
func (c *MemoryCache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled

	if !enabled {
		c.list.Init()
		c.items = make(map[string]*list.Element, c.maxEntries)
	}
}

// Stats returns cache performance statistics.
func (c *MemoryCache) Stats() CacheStats {
	hits := atomic.LoadUint64(&c.hits)
	misses := atomic.LoadUint64(&c.misses)

	c.mu.RLock()
	size := c.list.Len()
	c.mu.RUnlock()

	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return CacheStats{
		Size:       size,
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

// CacheStats holds cache performance statistics.
type CacheStats struct {
	Size       int     // Current number of entries
	MaxEntries int     // Maximum capacity (0 = unbounded)
	Hits       uint64  // Number of cache hits
	Misses     uint64  // Number of cache misses
	HitRate    float64 // Hit rate percentage (0-100)
}

// evictOldest removes the least recently used entry.
// Caller must hold the lock.
func (c *MemoryCache) evictOldest() {
	elem := c.list.Back()
	if elem != nil {
		c.removeElement(elem)
	}
}

// removeElement removes an element from the cache.
// Caller must hold the lock.
func (c *MemoryCache) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	entry := elem.Value.(*memoryEntry)
	delete(c.items, entry.key)
}
