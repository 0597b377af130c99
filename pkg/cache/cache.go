// Package cache provides chain-result caching for the HomeIQ synergy engine.
//
// Chain detection memoizes assembled chain records across invocations: the
// same device sequence keeps showing up run after run, and rebuilding the
// record (plus re-deriving confidence and impact) is wasted work. The chain
// detector treats every cache as strictly best-effort: a failed get is a
// miss, a failed set is a no-op, and neither ever surfaces to the caller.
//
// Three implementations are provided:
//   - NullCache: no-op stand-in when caching is disabled
//   - MemoryCache: bounded in-process LRU with optional TTL
//   - BadgerCache: persistent store that survives restarts
//
// Any store reachable over the network can implement Cache as well; keys
// are deterministic strings (see ChainKey/Chain4Key) precisely so records
// stay addressable across processes and languages.
package cache

import (
	"context"
	"errors"

	"github.com/wtthornton/HomeIQ-sub003/pkg/synergy"
)

// Errors returned by cache implementations.
var (
	// ErrNotFound marks an ordinary miss. Every other error from
	// GetChainResult is an infrastructure failure.
	ErrNotFound = errors.New("chain result not found")
	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("cache is closed")
)

// Cache stores rendered chain records keyed by their device sequence.
//
// Implementations must be safe for concurrent use. Values handed out by
// GetChainResult must be private copies; callers may mutate them freely.
// Both operations may block (a distributed cache is a legal backend), so
// they accept a context.
type Cache interface {
	// GetChainResult returns the cached record for key, or ErrNotFound.
	GetChainResult(ctx context.Context, key string) (*synergy.Synergy, error)

	// SetChainResult stores value under key, overwriting any prior entry.
	SetChainResult(ctx context.Context, key string, value *synergy.Synergy) error
}

// ChainKey builds the canonical cache key for a 3-device chain.
//
// Every consumer must build keys through this function (never by hand) so
// that records written by one process are readable by another:
//
//	ChainKey("motion", "light", "fan") == "chain:motion:light:fan"
func ChainKey(a, b, c string) string {
	return "chain:" + a + ":" + b + ":" + c
}

// Chain4Key builds the canonical cache key for a 4-device chain:
//
//	Chain4Key("a", "b", "c", "d") == "chain4:a:b:c:d"
func Chain4Key(a, b, c, d string) string {
	return "chain4:" + a + ":" + b + ":" + c + ":" + d
}

// NullCache is the no-op Cache used when caching is disabled. Gets always
// miss and sets always succeed without storing anything.
type NullCache struct{}

var _ Cache = NullCache{}

// GetChainResult always returns ErrNotFound.
func (NullCache) GetChainResult(ctx context.Context, key string) (*synergy.Synergy, error) {
	return nil, ErrNotFound
}

// SetChainResult discards the value.
func (NullCache) SetChainResult(ctx context.Context, key string, value *synergy.Synergy) error {
	return nil
}
