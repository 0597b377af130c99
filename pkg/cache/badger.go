package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/wtthornton/HomeIQ-sub003/pkg/synergy"
)

// Key prefix separating chain records from anything else sharing the store.
var badgerKeyPrefix = []byte("sc:")

// BadgerCache is a persistent chain cache backed by BadgerDB.
//
// Records survive process restarts, which matters for the chain detector:
// the same home produces largely the same chains every discovery run, so a
// warm cache turns the expensive second pass into lookups.
//
// Records are stored as JSON under the canonical string keys from
// ChainKey/Chain4Key, so an external tool can inspect or prime the store.
//
// Example:
//
//	c, err := cache.NewBadgerCache(cache.BadgerOptions{
//		DataDir: "./data/chain-cache",
//		TTL:     24 * time.Hour,
//	})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
type BadgerCache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *zap.Logger

	mu     sync.RWMutex // Protects closed
	closed bool

	// Statistics
	hits   uint64
	misses uint64
}

var _ Cache = (*BadgerCache)(nil)

// BadgerOptions configures the persistent chain cache.
type BadgerOptions struct {
	// DataDir is the directory for storing data files.
	// Required unless InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode.
	// Useful for testing. Data is not persisted.
	InMemory bool

	// SyncWrites forces fsync after each write.
	// Slower but more durable.
	SyncWrites bool

	// TTL expires entries after the given duration (0 = keep forever).
	// Badger tracks expiry with one-second granularity.
	TTL time.Duration

	// Logger receives BadgerDB internal logging at the corresponding zap
	// levels. If nil, Badger runs silent.
	Logger *zap.Logger
}

// NewBadgerCache opens (or creates) a persistent chain cache.
func NewBadgerCache(opts BadgerOptions) (*BadgerCache, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)

	if opts.InMemory {
		// Badger refuses disk-less mode with directories set; DataDir is
		// documented as ignored here.
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(badgerZapLogger{sugar: opts.Logger.Sugar()})
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	// Chain records are small JSON blobs; shrink Badger's buffers well
	// below their server-grade defaults.
	badgerOpts = badgerOpts.
		WithMemTableSize(8 << 20).
		WithValueLogFileSize(32 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithBlockCacheSize(16 << 20).
		WithIndexCacheSize(8 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open chain cache: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BadgerCache{
		db:     db,
		ttl:    opts.TTL,
		logger: logger,
	}, nil
}

// NewBadgerCacheInMemory creates an in-memory BadgerCache for testing.
//
// Data is not persisted and is lost when the cache is closed. Useful for
// tests that need persistent-cache semantics without disk I/O.
func NewBadgerCacheInMemory() (*BadgerCache, error) {
	return NewBadgerCache(BadgerOptions{InMemory: true})
}

// GetChainResult returns the stored record for key, ErrNotFound on a miss,
// or ErrClosed after Close.
func (b *BadgerCache) GetChainResult(ctx context.Context, key string) (*synergy.Synergy, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, ErrClosed
	}
	b.mu.RUnlock()

	var result *synergy.Synergy
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(key))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			var s synergy.Synergy
			if err := json.Unmarshal(val, &s); err != nil {
				return fmt.Errorf("decode chain record: %w", err)
			}
			result = &s
			return nil
		})
	})
	if err != nil {
		atomic.AddUint64(&b.misses, 1)
		return nil, err
	}

	atomic.AddUint64(&b.hits, 1)
	return result, nil
}

// SetChainResult stores value under key, overwriting any prior entry. The
// entry expires after the configured TTL, if one was set.
func (b *BadgerCache) SetChainResult(ctx context.Context, key string, value *synergy.Synergy) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	b.mu.RUnlock()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode chain record: %w", err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(badgerKey(key), data)
		if b.ttl > 0 {
			entry = entry.WithTTL(b.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Len counts the stored chain records.
func (b *BadgerCache) Len() (int, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return 0, ErrClosed
	}
	b.mu.RUnlock()

	count := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = badgerKeyPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Stats returns cache performance statistics. Size is a best-effort count
// and reads as 0 if the underlying scan fails.
func (b *BadgerCache) Stats() CacheStats {
	hits := atomic.LoadUint64(&b.hits)
	misses := atomic.LoadUint64(&b.misses)

	size, _ := b.Len()

	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return CacheStats{
		Size:    size,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
}

// Close closes the underlying store. Further operations return ErrClosed.
func (b *BadgerCache) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

// badgerKey namespaces a chain key inside the store.
func badgerKey(key string) []byte {
	return append(append([]byte(nil), badgerKeyPrefix...), key...)
}

// badgerZapLogger adapts zap to badger.Logger. Badger's internal chatter
// lands at debug; real problems keep their level.
type badgerZapLogger struct {
	sugar *zap.SugaredLogger
}

func (l badgerZapLogger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

func (l badgerZapLogger) Warningf(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l badgerZapLogger) Infof(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l badgerZapLogger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}
