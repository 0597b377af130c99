package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wtthornton/HomeIQ-sub003/pkg/synergy"
)

func chainRecord(id string) *synergy.Synergy {
	return &synergy.Synergy{
		SynergyID:    id,
		SynergyType:  synergy.TypeDeviceChain,
		Devices:      []string{"a", "b", "c"},
		Confidence:   0.8,
		ImpactScore:  0.55,
		SynergyDepth: 3,
	}
}

// =============================================================================
// NewMemoryCache Tests
// =============================================================================

func TestNewMemoryCache(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		c := NewMemoryCache(100, 5*time.Minute)

		if c.maxEntries != 100 {
			t.Errorf("maxEntries = %d, want 100", c.maxEntries)
		}
		if c.ttl != 5*time.Minute {
			t.Errorf("ttl = %v, want 5m", c.ttl)
		}
		if !c.enabled {
			t.Error("cache should be enabled by default")
		}
	})

	t.Run("zero maxEntries uses default", func(t *testing.T) {
		c := NewMemoryCache(0, time.Minute)

		if c.maxEntries != 1000 {
			t.Errorf("maxEntries = %d, want 1000 (default)", c.maxEntries)
		}
	})
}

// =============================================================================
// Get/Set Tests
// =============================================================================

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		c := NewMemoryCache(100, time.Minute)
		key := ChainKey("a", "b", "c")

		if err := c.SetChainResult(ctx, key, chainRecord("chain-1")); err != nil {
			t.Fatalf("SetChainResult err = %v", err)
		}

		got, err := c.GetChainResult(ctx, key)
		if err != nil {
			t.Fatalf("GetChainResult err = %v", err)
		}
		if got.SynergyID != "chain-1" {
			t.Errorf("SynergyID = %s, want chain-1", got.SynergyID)
		}
	})

	t.Run("miss returns ErrNotFound", func(t *testing.T) {
		c := NewMemoryCache(100, time.Minute)

		_, err := c.GetChainResult(ctx, ChainKey("x", "y", "z"))
		if err != ErrNotFound {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("overwrite existing key", func(t *testing.T) {
		c := NewMemoryCache(100, time.Minute)
		key := ChainKey("a", "b", "c")

		c.SetChainResult(ctx, key, chainRecord("chain-1"))
		c.SetChainResult(ctx, key, chainRecord("chain-2"))

		got, err := c.GetChainResult(ctx, key)
		if err != nil {
			t.Fatalf("GetChainResult err = %v", err)
		}
		if got.SynergyID != "chain-2" {
			t.Errorf("SynergyID = %s, want chain-2", got.SynergyID)
		}
		if c.Len() != 1 {
			t.Errorf("Len = %d, want 1", c.Len())
		}
	})

	t.Run("entries are isolated from callers", func(t *testing.T) {
		c := NewMemoryCache(100, time.Minute)
		key := ChainKey("a", "b", "c")

		original := chainRecord("chain-1")
		c.SetChainResult(ctx, key, original)

		// Mutating what we stored must not touch the cache.
		original.Devices[0] = "mutated"
		original.SynergyID = "mutated"

		got, _ := c.GetChainResult(ctx, key)
		if got.Devices[0] != "a" || got.SynergyID != "chain-1" {
			t.Error("cache entry changed via caller's record")
		}

		// Mutating what we read must not touch the cache either.
		got.Devices[1] = "mutated"

		again, _ := c.GetChainResult(ctx, key)
		if again.Devices[1] != "b" {
			t.Error("cache entry changed via returned record")
		}
	})
}

// =============================================================================
// TTL Tests
// =============================================================================

func TestMemoryCache_TTL(t *testing.T) {
	ctx := context.Background()

	t.Run("entry expires after TTL", func(t *testing.T) {
		c := NewMemoryCache(100, 50*time.Millisecond)
		key := ChainKey("a", "b", "c")

		c.SetChainResult(ctx, key, chainRecord("chain-1"))

		if _, err := c.GetChainResult(ctx, key); err != nil {
			t.Error("entry should exist before TTL")
		}

		time.Sleep(100 * time.Millisecond)

		if _, err := c.GetChainResult(ctx, key); err != ErrNotFound {
			t.Error("entry should be expired after TTL")
		}
	})

	t.Run("zero TTL means no expiration", func(t *testing.T) {
		c := NewMemoryCache(100, 0)
		key := ChainKey("a", "b", "c")

		c.SetChainResult(ctx, key, chainRecord("chain-1"))
		time.Sleep(50 * time.Millisecond)

		if _, err := c.GetChainResult(ctx, key); err != nil {
			t.Error("entry should not expire with zero TTL")
		}
	})
}

// =============================================================================
// LRU Eviction Tests
// =============================================================================

func TestMemoryCache_LRUEviction(t *testing.T) {
	ctx := context.Background()

	t.Run("evicts oldest when full", func(t *testing.T) {
		c := NewMemoryCache(3, time.Hour)

		for i := 1; i <= 3; i++ {
			c.SetChainResult(ctx, fmt.Sprintf("chain:%d", i), chainRecord("chain"))
		}
		c.SetChainResult(ctx, "chain:4", chainRecord("chain"))

		if c.Len() != 3 {
			t.Errorf("Len = %d, want 3", c.Len())
		}
		if _, err := c.GetChainResult(ctx, "chain:1"); err != ErrNotFound {
			t.Error("oldest entry should have been evicted")
		}
		if _, err := c.GetChainResult(ctx, "chain:4"); err != nil {
			t.Error("newest entry should exist")
		}
	})

	t.Run("access promotes entry", func(t *testing.T) {
		c := NewMemoryCache(3, time.Hour)

		for i := 1; i <= 3; i++ {
			c.SetChainResult(ctx, fmt.Sprintf("chain:%d", i), chainRecord("chain"))
		}

		// Promote the oldest, then overflow.
		c.GetChainResult(ctx, "chain:1")
		c.SetChainResult(ctx, "chain:4", chainRecord("chain"))

		if _, err := c.GetChainResult(ctx, "chain:1"); err != nil {
			t.Error("promoted entry should survive eviction")
		}
		if _, err := c.GetChainResult(ctx, "chain:2"); err != ErrNotFound {
			t.Error("unpromoted entry should have been evicted")
		}
	})
}

// =============================================================================
// SetEnabled and Stats Tests
// =============================================================================

func TestMemoryCache_SetEnabled(t *testing.T) {
	ctx := context.Background()

	t.Run("disable clears cache and misses", func(t *testing.T) {
		c := NewMemoryCache(100, time.Hour)
		c.SetChainResult(ctx, "chain:a:b:c", chainRecord("chain-1"))

		c.SetEnabled(false)

		if c.Len() != 0 {
			t.Errorf("disabled cache Len = %d, want 0", c.Len())
		}
		if _, err := c.GetChainResult(ctx, "chain:a:b:c"); err != ErrNotFound {
			t.Error("disabled cache should miss")
		}
	})

	t.Run("disabled set is a no-op", func(t *testing.T) {
		c := NewMemoryCache(100, time.Hour)
		c.SetEnabled(false)

		c.SetChainResult(ctx, "chain:a:b:c", chainRecord("chain-1"))

		c.SetEnabled(true)
		if _, err := c.GetChainResult(ctx, "chain:a:b:c"); err != ErrNotFound {
			t.Error("set while disabled should not store")
		}
	})
}

func TestMemoryCache_Stats(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(100, time.Hour)

	c.SetChainResult(ctx, "chain:a:b:c", chainRecord("chain-1"))

	c.GetChainResult(ctx, "chain:a:b:c") // hit
	c.GetChainResult(ctx, "chain:x:y:z") // miss

	stats := c.Stats()
	if stats.Size != 1 {
		t.Errorf("Size = %d, want 1", stats.Size)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Hits/Misses = %d/%d, want 1/1", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 50.0 {
		t.Errorf("HitRate = %.2f, want 50.00", stats.HitRate)
	}
}

// =============================================================================
// Concurrent Access Tests
// =============================================================================

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("disjoint keys", func(t *testing.T) {
		c := NewMemoryCache(1000, time.Hour)

		const goroutines = 50
		const iterations = 100

		var wg sync.WaitGroup
		wg.Add(goroutines * 2)

		for i := 0; i < goroutines; i++ {
			go func(id int) {
				defer wg.Done()
				for j := 0; j < iterations; j++ {
					key := fmt.Sprintf("chain:%d:%d", id, j)
					c.SetChainResult(ctx, key, chainRecord("chain"))
				}
			}(i)
		}
		for i := 0; i < goroutines; i++ {
			go func(id int) {
				defer wg.Done()
				for j := 0; j < iterations; j++ {
					key := fmt.Sprintf("chain:%d:%d", id, j)
					c.GetChainResult(ctx, key)
				}
			}(i)
		}

		wg.Wait()

		stats := c.Stats()
		if stats.Hits+stats.Misses == 0 {
			t.Error("expected some operations")
		}
	})

	// Readers race writers on a single key so every get takes the replace
	// path. Run with -race; a torn read would also surface as a record
	// with mixed-up fields.
	t.Run("same key get and replace", func(t *testing.T) {
		c := NewMemoryCache(100, time.Hour)
		key := ChainKey("motion", "light", "fan")
		c.SetChainResult(ctx, key, chainRecord("chain-0"))

		const goroutines = 8
		const iterations = 200

		var wg sync.WaitGroup
		wg.Add(goroutines * 2)

		for i := 0; i < goroutines; i++ {
			go func(id int) {
				defer wg.Done()
				for j := 0; j < iterations; j++ {
					c.SetChainResult(ctx, key, chainRecord(fmt.Sprintf("chain-%d", id)))
				}
			}(i)
		}
		for i := 0; i < goroutines; i++ {
			go func() {
				defer wg.Done()
				for j := 0; j < iterations; j++ {
					got, err := c.GetChainResult(ctx, key)
					if err != nil {
						t.Errorf("GetChainResult err = %v", err)
						return
					}
					if got.SynergyID == "" || len(got.Devices) != 3 {
						t.Errorf("read a torn record: %+v", got)
						return
					}
				}
			}()
		}

		wg.Wait()

		if c.Len() != 1 {
			t.Errorf("Len = %d, want 1", c.Len())
		}
	})
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkMemoryCache_Set(b *testing.B) {
	ctx := context.Background()
	c := NewMemoryCache(10000, time.Hour)
	record := chainRecord("chain-bench")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.SetChainResult(ctx, fmt.Sprintf("chain:%d", i), record)
	}
}

func BenchmarkMemoryCache_Get_Hit(b *testing.B) {
	ctx := context.Background()
	c := NewMemoryCache(10000, time.Hour)
	record := chainRecord("chain-bench")

	for i := 0; i < 1000; i++ {
		c.SetChainResult(ctx, fmt.Sprintf("chain:%d", i), record)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.GetChainResult(ctx, fmt.Sprintf("chain:%d", i%1000))
	}
}
