// Package chains extends pairwise synergies into ordered 3- and 4-device
// chains.
//
// The detector reduces the pairwise pool to its strongest members, indexes
// them by trigger entity, and walks the index in two passes. The first pass
// links pairs A->B and B->C into 3-device chains; the second extends those
// chains with pairs C->D into 4-device chains. Every candidate is screened
// for cycles, repeated devices, and area agreement before it is built, and
// the search stops outright once the per-pass chain caps are hit, so the
// cost of a pass is bounded no matter how many pairs come in.
//
// ELI12: Think of each pair as a domino that says "when this device acts,
// that one follows". If one domino ends where another begins, you can line
// them up into a longer run. The detector lines up the best dominoes into
// runs of three and four, throws away runs that loop back on themselves,
// and stops collecting once it has enough.
//
// Usage:
//
//	detector := chains.New(nil)
//	detector.SetCache(chainCache)
//
//	three := detector.DetectThreeDeviceChains(ctx, pairs)
//	four := detector.DetectFourDeviceChains(ctx, three, pairs)
//
// A chain's confidence is the minimum confidence of its constituent pairs,
// and its impact is their rounded average, so a chain is never reported as
// more certain than its weakest link.
package chains

import (
	"context"
	"errors"
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wtthornton/HomeIQ-sub003/pkg/cache"
	"github.com/wtthornton/HomeIQ-sub003/pkg/synergy"
)

// Default search bounds. The caps are the only thing standing between the
// traversal and quadratic blowup on dense synergy graphs, which is why they
// apply as hard early exits rather than post-hoc truncation.
const (
	// DefaultTopPairsForChains is how many quality-ranked pairs seed the
	// traversal.
	DefaultTopPairsForChains = 1000

	// DefaultMaxThreeDeviceChains stops the 3-device pass.
	DefaultMaxThreeDeviceChains = 200

	// DefaultMaxFourDeviceChains stops the 4-device pass.
	DefaultMaxFourDeviceChains = 100
)

// Config bounds the chain search. Zero or negative values fall back to the
// package defaults.
type Config struct {
	TopPairsForChains    int `json:"top_pairs_for_chains" yaml:"top_pairs_for_chains"`
	MaxThreeDeviceChains int `json:"max_three_device_chains" yaml:"max_three_device_chains"`
	MaxFourDeviceChains  int `json:"max_four_device_chains" yaml:"max_four_device_chains"`
}

// DefaultConfig returns the default search bounds.
func DefaultConfig() *Config {
	return &Config{
		TopPairsForChains:    DefaultTopPairsForChains,
		MaxThreeDeviceChains: DefaultMaxThreeDeviceChains,
		MaxFourDeviceChains:  DefaultMaxFourDeviceChains,
	}
}

// CrossAreaValidator decides whether a chain spanning more than one area is
// acceptable. It receives the entity IDs of one chain triple in causal
// order. When no validator is configured, cross-area chains are rejected.
type CrossAreaValidator interface {
	IsValidCrossArea(triggerID, middleID, actionID string) bool
}

// CrossAreaFunc adapts a plain function to the CrossAreaValidator
// interface.
type CrossAreaFunc func(triggerID, middleID, actionID string) bool

// IsValidCrossArea calls f.
func (f CrossAreaFunc) IsValidCrossArea(triggerID, middleID, actionID string) bool {
	return f(triggerID, middleID, actionID)
}

// rejectCrossArea stands in when no validator was supplied.
type rejectCrossArea struct{}

func (rejectCrossArea) IsValidCrossArea(string, string, string) bool { return false }

// DetectorStats reports counters accumulated across detection passes.
type DetectorStats struct {
	ThreeChainsBuilt uint64 `json:"three_chains_built"`
	FourChainsBuilt  uint64 `json:"four_chains_built"`
	CacheHits        uint64 `json:"cache_hits"`
	CacheMisses      uint64 `json:"cache_misses"`
	CacheFailures    uint64 `json:"cache_failures"`
}

// Detector links pairwise synergies into device chains.
//
// Configure it with the Set methods before the first detection call; the
// setters are not synchronized. Detection itself keeps all traversal state
// local to the call, so independent requests may run concurrently.
type Detector struct {
	config    Config
	cache     cache.Cache
	validator CrossAreaValidator
	logger    *zap.Logger

	threeChainsBuilt uint64
	fourChainsBuilt  uint64
	cacheHits        uint64
	cacheMisses      uint64
	cacheFailures    uint64
}

// New creates a Detector. A nil config uses DefaultConfig.
func New(config *Config) *Detector {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.TopPairsForChains <= 0 {
		cfg.TopPairsForChains = DefaultTopPairsForChains
	}
	if cfg.MaxThreeDeviceChains <= 0 {
		cfg.MaxThreeDeviceChains = DefaultMaxThreeDeviceChains
	}
	if cfg.MaxFourDeviceChains <= 0 {
		cfg.MaxFourDeviceChains = DefaultMaxFourDeviceChains
	}

	return &Detector{
		config:    cfg,
		cache:     cache.NullCache{},
		validator: rejectCrossArea{},
		logger:    zap.NewNop(),
	}
}

// SetCache installs the chain result cache. Passing nil reverts to the
// no-op cache.
func (d *Detector) SetCache(c cache.Cache) {
	if c == nil {
		c = cache.NullCache{}
	}
	d.cache = c
}

// SetCrossAreaValidator installs the cross-area rule. Passing nil reverts
// to rejecting every cross-area chain.
func (d *Detector) SetCrossAreaValidator(v CrossAreaValidator) {
	if v == nil {
		v = rejectCrossArea{}
	}
	d.validator = v
}

// SetLogger sets the logger used for cache diagnostics.
func (d *Detector) SetLogger(logger *zap.Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// Stats returns a snapshot of the detector counters.
func (d *Detector) Stats() DetectorStats {
	return DetectorStats{
		ThreeChainsBuilt: atomic.LoadUint64(&d.threeChainsBuilt),
		FourChainsBuilt:  atomic.LoadUint64(&d.fourChainsBuilt),
		CacheHits:        atomic.LoadUint64(&d.cacheHits),
		CacheMisses:      atomic.LoadUint64(&d.cacheMisses),
		CacheFailures:    atomic.LoadUint64(&d.cacheFailures),
	}
}

// BuildActionLookup indexes pairs by their trigger entity. Continuations of
// a pair A->B are found by querying the index with B, the pair's action
// entity, which returns every pair B->C that can extend it. Pairs missing
// either endpoint or pointing at themselves can extend nothing and are
// left out of the index.
func BuildActionLookup(pairs []*synergy.Synergy) map[string][]*synergy.Synergy {
	lookup := make(map[string][]*synergy.Synergy, len(pairs))
	for _, p := range pairs {
		if p == nil || p.TriggerEntity == "" || p.ActionEntity == "" {
			continue
		}
		if p.TriggerEntity == p.ActionEntity {
			continue
		}
		lookup[p.TriggerEntity] = append(lookup[p.TriggerEntity], p)
	}
	return lookup
}

// DetectThreeDeviceChains links pairwise synergies into 3-device chains.
//
// The pairwise set is first reduced to the top TopPairsForChains by
// quality, and self-loop pairs are discarded. For every surviving pair
// A->B, each continuation B->C produces a candidate chain [A, B, C],
// which is dropped when it loops back to A or when its pairs disagree on
// area and the cross-area validator rejects (or is absent). Surviving
// candidates are served from the chain cache when possible and built
// otherwise. The pass returns as soon as MaxThreeDeviceChains chains have
// been produced.
//
// Parameters:
//   - ctx: Context passed to cache operations
//   - pairs: Pairwise synergies to link
//
// Returns:
//   - []*synergy.Synergy: 3-device chains, in traversal order
func (d *Detector) DetectThreeDeviceChains(ctx context.Context, pairs []*synergy.Synergy) []*synergy.Synergy {
	chains := make([]*synergy.Synergy, 0)
	if len(pairs) == 0 {
		return chains
	}

	top := synergy.TopByQuality(pairs, d.config.TopPairsForChains)
	lookup := BuildActionLookup(top)

	for _, ab := range top {
		if ab == nil || ab.TriggerEntity == "" || ab.ActionEntity == "" {
			continue
		}
		a, b := ab.TriggerEntity, ab.ActionEntity
		if a == b {
			continue
		}

		for _, bc := range lookup[b] {
			c := bc.ActionEntity
			if c == a || c == b {
				continue
			}
			if ab.Area != bc.Area && !d.validator.IsValidCrossArea(a, b, c) {
				continue
			}

			key := cache.ChainKey(a, b, c)
			chain := d.cacheGet(ctx, key)
			if chain == nil {
				chain = d.buildThreeChain(ab, bc)
				atomic.AddUint64(&d.threeChainsBuilt, 1)
				d.cacheSet(ctx, key, chain)
			}

			chains = append(chains, chain)
			if len(chains) >= d.config.MaxThreeDeviceChains {
				return chains
			}
		}
	}

	return chains
}

// DetectFourDeviceChains extends 3-device chains into 4-device chains.
//
// Mechanics mirror the 3-device pass one level deeper: for every chain
// [A, B, C] with three distinct devices, each continuation C->D produces
// a candidate [A, B, C, D], dropped when D repeats an earlier device or
// when the chain and the continuation disagree on area and the validator
// rejects either the (A, B, C) or the (B, C, D) triple. An empty chain
// list returns immediately without touching the cache or the pairwise
// set.
//
// Parameters:
//   - ctx: Context passed to cache operations
//   - threeChains: Chains produced by DetectThreeDeviceChains
//   - pairs: Pairwise synergies supplying the continuations
//
// Returns:
//   - []*synergy.Synergy: 4-device chains, in traversal order
func (d *Detector) DetectFourDeviceChains(ctx context.Context, threeChains, pairs []*synergy.Synergy) []*synergy.Synergy {
	chains := make([]*synergy.Synergy, 0)
	if len(threeChains) == 0 {
		return chains
	}

	top := synergy.TopByQuality(pairs, d.config.TopPairsForChains)
	lookup := BuildActionLookup(top)

	for _, chain := range threeChains {
		if chain == nil || len(chain.Devices) != 3 {
			continue
		}
		a, b, c := chain.Devices[0], chain.Devices[1], chain.Devices[2]
		if a == b || b == c || a == c {
			continue
		}

		for _, cd := range lookup[c] {
			next := cd.ActionEntity
			if next == a || next == b || next == c {
				continue
			}
			if chain.Area != cd.Area {
				if !d.validator.IsValidCrossArea(a, b, c) || !d.validator.IsValidCrossArea(b, c, next) {
					continue
				}
			}

			key := cache.Chain4Key(a, b, c, next)
			four := d.cacheGet(ctx, key)
			if four == nil {
				four = d.buildFourChain(chain, cd)
				atomic.AddUint64(&d.fourChainsBuilt, 1)
				d.cacheSet(ctx, key, four)
			}

			chains = append(chains, four)
			if len(chains) >= d.config.MaxFourDeviceChains {
				return chains
			}
		}
	}

	return chains
}

// buildThreeChain combines two linked pairs into one chain record.
func (d *Detector) buildThreeChain(ab, bc *synergy.Synergy) *synergy.Synergy {
	devices := []string{ab.TriggerEntity, ab.ActionEntity, bc.ActionEntity}

	return &synergy.Synergy{
		SynergyID:     synergy.NewID("chain"),
		SynergyType:   synergy.TypeDeviceChain,
		Devices:       devices,
		ChainDevices:  append([]string(nil), devices...),
		TriggerEntity: devices[0],
		ActionEntity:  devices[2],
		Confidence:    math.Min(ab.Confidence, bc.Confidence),
		ImpactScore:   synergy.Round2((ab.ImpactScore + bc.ImpactScore) / 2),
		Complexity:    synergy.ComplexityMedium,
		Area:          ab.Area,
		Rationale:     ab.Rationale + " then " + bc.Rationale,
		SynergyDepth:  3,
		Source:        synergy.SourceChainDetector,
	}
}

// buildFourChain extends a 3-device chain with one continuation pair.
func (d *Detector) buildFourChain(chain, cd *synergy.Synergy) *synergy.Synergy {
	devices := append(append([]string(nil), chain.Devices...), cd.ActionEntity)

	return &synergy.Synergy{
		SynergyID:     synergy.NewID("chain"),
		SynergyType:   synergy.TypeDeviceChain,
		Devices:       devices,
		ChainDevices:  append([]string(nil), devices...),
		TriggerEntity: devices[0],
		ActionEntity:  devices[3],
		Confidence:    math.Min(chain.Confidence, cd.Confidence),
		ImpactScore:   synergy.Round2((chain.ImpactScore + cd.ImpactScore) / 2),
		Complexity:    synergy.ComplexityMedium,
		Area:          chain.Area,
		Rationale:     chain.Rationale + " then " + cd.Rationale,
		SynergyDepth:  4,
		Source:        synergy.SourceChainDetector,
	}
}

// cacheGet consults the chain cache. A miss or any cache failure returns
// nil; failures are logged and counted, never surfaced.
func (d *Detector) cacheGet(ctx context.Context, key string) *synergy.Synergy {
	rec, err := d.cache.GetChainResult(ctx, key)
	if err == nil && rec != nil {
		atomic.AddUint64(&d.cacheHits, 1)
		return rec
	}
	if err == nil || errors.Is(err, cache.ErrNotFound) {
		atomic.AddUint64(&d.cacheMisses, 1)
		return nil
	}

	atomic.AddUint64(&d.cacheFailures, 1)
	d.logger.Debug("chain cache read failed",
		zap.String("key", key),
		zap.Error(err))
	return nil
}

// cacheSet stores a freshly built chain, best effort.
func (d *Detector) cacheSet(ctx context.Context, key string, s *synergy.Synergy) {
	if err := d.cache.SetChainResult(ctx, key, s); err != nil {
		atomic.AddUint64(&d.cacheFailures, 1)
		d.logger.Debug("chain cache write failed",
			zap.String("key", key),
			zap.Error(err))
	}
}
