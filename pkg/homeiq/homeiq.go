// Package homeiq assembles the synergy discovery engine behind a single
// facade.
//
// An Engine owns every discovery stage and runs them in order over one
// snapshot of a home: rule-based pair generation from the relationship
// catalog, behavioral pattern conversion, merging of externally scored ML
// candidates, then 3-device and 4-device chain detection over the combined
// pair pool. Callers that want individual stages can still reach them
// through the stage methods, but Discover is the intended entry point.
//
// Usage:
//
//	cfg := config.LoadFromEnvOrFile("synergy.yaml")
//	engine, err := homeiq.New(cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	result := engine.Discover(ctx, homeiq.DiscoveryInput{
//		Entities: entities,
//		Patterns: patterns,
//	})
//	for _, s := range result.Synergies {
//		fmt.Println(s.SynergyID, s.Confidence, s.Rationale)
//	}
//
// ELI12: the engine is a detective for your smart home. It reads the list
// of devices you own, checks its rulebook for combos that usually work
// well together ("motion sensor plus hallway light"), listens to gossip
// about what your devices already do together, and then connects the dots
// into longer stories: motion turns on the light, the light wakes the fan.
// At the end it hands you the suggestions sorted by how sure it is.
package homeiq

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wtthornton/HomeIQ-sub003/pkg/cache"
	"github.com/wtthornton/HomeIQ-sub003/pkg/catalog"
	"github.com/wtthornton/HomeIQ-sub003/pkg/chains"
	"github.com/wtthornton/HomeIQ-sub003/pkg/config"
	"github.com/wtthornton/HomeIQ-sub003/pkg/inference"
	"github.com/wtthornton/HomeIQ-sub003/pkg/synergy"
)

// DiscoveryInput is one snapshot of a home for a discovery run.
//
// All three fields are optional. Entities feed rule-based generation,
// Patterns feed pattern conversion, and MLCandidates are pre-scored
// device-pair synergies from an external model that join the pool as-is.
// Inputs are never mutated; ML candidates are cloned before tagging.
type DiscoveryInput struct {
	Entities     []synergy.Entity    `json:"entities,omitempty"`
	Patterns     []inference.Pattern `json:"patterns,omitempty"`
	MLCandidates []*synergy.Synergy  `json:"ml_candidates,omitempty"`
}

// DiscoveryResult is the output of a full discovery run.
type DiscoveryResult struct {
	// Synergies holds the pairwise and schedule synergies: device pairs
	// from all sources ranked by descending quality, followed by the
	// schedule groups.
	Synergies []*synergy.Synergy `json:"synergies"`

	// ThreeChains and FourChains hold the detected device chains in
	// detection order.
	ThreeChains []*synergy.Synergy `json:"three_chains"`
	FourChains  []*synergy.Synergy `json:"four_chains"`

	// Stats describes this run only.
	Stats DiscoveryStats `json:"stats"`
}

// DiscoveryStats summarizes a single discovery run.
//
// PatternsSkipped and the cache counters are windowed deltas of the
// engine's lifetime counters, so concurrent Discover calls on one engine
// can attribute each other's cache and skip traffic to the wrong run.
// The synergy and chain outputs are call-local and unaffected, and the
// EngineStats totals stay exact.
type DiscoveryStats struct {
	RulePairs        int           `json:"rule_pairs"`
	PatternSynergies int           `json:"pattern_synergies"`
	PatternsSkipped  int64         `json:"patterns_skipped"`
	MLCandidates     int           `json:"ml_candidates"`
	ThreeChains      int           `json:"three_chains"`
	FourChains       int           `json:"four_chains"`
	CacheHits        int64         `json:"cache_hits"`
	CacheMisses      int64         `json:"cache_misses"`
	Elapsed          time.Duration `json:"elapsed"`
}

// EngineStats aggregates counters across the engine's lifetime.
type EngineStats struct {
	Discoveries       uint64               `json:"discoveries"`
	SynergiesProduced uint64               `json:"synergies_produced"`
	PatternsSkipped   uint64               `json:"patterns_skipped"`
	Detector          chains.DetectorStats `json:"detector"`
}

// Engine is the synergy discovery facade. Create one with New, run
// discoveries with Discover, and Close it when done so a persistent chain
// cache can flush.
//
// An Engine is safe for concurrent use once constructed. The Set* methods
// are meant for wiring during startup, before discovery traffic starts.
type Engine struct {
	config    *config.Config
	logger    *zap.Logger
	catalog   *catalog.Catalog
	generator *inference.Generator
	converter *inference.PatternConverter
	detector  *chains.Detector
	metrics   *Metrics

	// ownedCache is set when the engine opened the cache itself and is
	// therefore responsible for closing it.
	ownedCache *cache.BadgerCache

	discoveries       uint64
	synergiesProduced uint64
}

// New creates an Engine from the given configuration.
//
// A nil config uses config.DefaultConfig. A nil logger disables logging.
// The relationship catalog starts from the built-in archetypes and, when
// Discovery.ArchetypesFile is set, merges the archetypes loaded from that
// file over them. The chain cache backend is chosen by Cache.Backend:
// "none" disables caching, "memory" uses the in-process LRU, and "badger"
// opens a BadgerDB store that the engine closes on Close.
func New(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cat := catalog.Default()
	if cfg.Discovery.ArchetypesFile != "" {
		extra, err := catalog.LoadArchetypes(cfg.Discovery.ArchetypesFile)
		if err != nil {
			return nil, fmt.Errorf("load archetypes: %w", err)
		}
		cat, err = cat.Merge(extra)
		if err != nil {
			return nil, fmt.Errorf("load archetypes: %w", err)
		}
	}

	e := &Engine{
		config:  cfg,
		logger:  logger,
		catalog: cat,
	}

	chainCache, err := e.openCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("open chain cache: %w", err)
	}

	e.generator = inference.NewGenerator(cat, &inference.GeneratorConfig{
		MinConfidence:    cfg.Discovery.MinConfidence,
		SameAreaRequired: cfg.Discovery.SameAreaRequired,
	})
	e.generator.SetLogger(logger)

	e.converter = inference.NewPatternConverter()
	e.converter.SetLogger(logger)

	e.detector = chains.New(&chains.Config{
		TopPairsForChains:    cfg.Chains.TopPairsForChains,
		MaxThreeDeviceChains: cfg.Chains.MaxThreeDeviceChains,
		MaxFourDeviceChains:  cfg.Chains.MaxFourDeviceChains,
	})
	e.detector.SetCache(chainCache)
	e.detector.SetLogger(logger)

	logger.Info("synergy engine ready",
		zap.Int("archetypes", cat.Len()),
		zap.String("cache_backend", cfg.Cache.Backend),
	)
	return e, nil
}

func (e *Engine) openCache(cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case config.BackendNone:
		return cache.NullCache{}, nil
	case config.BackendMemory:
		return cache.NewMemoryCache(cfg.MaxEntries, time.Duration(cfg.TTL)), nil
	case config.BackendBadger:
		bc, err := cache.NewBadgerCache(cache.BadgerOptions{
			DataDir:    cfg.DataDir,
			InMemory:   cfg.InMemory,
			SyncWrites: cfg.SyncWrites,
			TTL:        time.Duration(cfg.TTL),
			Logger:     e.logger,
		})
		if err != nil {
			return nil, err
		}
		e.ownedCache = bc
		return bc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// SetCache replaces the chain cache. Passing nil disables caching. A
// previously opened Badger cache stays owned by the engine and is still
// closed on Close.
func (e *Engine) SetCache(c cache.Cache) {
	e.detector.SetCache(c)
}

// SetCrossAreaValidator installs the home-topology check used to admit
// chains whose links span areas. Without one, cross-area links are
// rejected.
func (e *Engine) SetCrossAreaValidator(v chains.CrossAreaValidator) {
	e.detector.SetCrossAreaValidator(v)
}

// SetMetrics installs OpenTelemetry metrics for discovery runs. Passing
// nil disables metrics.
func (e *Engine) SetMetrics(m *Metrics) {
	e.metrics = m
}

// Catalog returns the relationship catalog the engine generates from.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Discover runs the full pipeline over one snapshot of a home.
//
// Stages run in order: rule-based pairs from the catalog, pattern
// conversion, then chain detection over the combined pool of device pairs
// from all three sources. ML candidates are cloned and, when untagged,
// marked ml_discovered; the caller's records are never touched. Malformed
// inputs are skipped, never fatal, so Discover always returns a result.
func (e *Engine) Discover(ctx context.Context, input DiscoveryInput) *DiscoveryResult {
	start := time.Now()
	skippedBefore := e.converter.Skipped()
	detBefore := e.detector.Stats()

	rulePairs := e.generator.Generate(input.Entities)
	patternSyns := e.converter.Convert(input.Patterns)

	pool := make([]*synergy.Synergy, 0, len(rulePairs)+len(patternSyns)+len(input.MLCandidates))
	pool = append(pool, rulePairs...)

	var schedules []*synergy.Synergy
	for _, s := range patternSyns {
		if s.SynergyType == synergy.TypeScheduleBased {
			schedules = append(schedules, s)
			continue
		}
		pool = append(pool, s)
	}

	mlCount := 0
	for _, c := range input.MLCandidates {
		if c == nil {
			continue
		}
		clone := c.Clone()
		if clone.Source == "" {
			clone.Source = synergy.SourceMLDiscovered
		}
		pool = append(pool, clone)
		mlCount++
	}

	three := e.detector.DetectThreeDeviceChains(ctx, pool)
	four := e.detector.DetectFourDeviceChains(ctx, three, pool)

	synergies := synergy.RankByQuality(pool)
	synergies = append(synergies, schedules...)

	detAfter := e.detector.Stats()
	skipped := int64(e.converter.Skipped() - skippedBefore)
	elapsed := time.Since(start)

	result := &DiscoveryResult{
		Synergies:   synergies,
		ThreeChains: three,
		FourChains:  four,
		Stats: DiscoveryStats{
			RulePairs:        len(rulePairs),
			PatternSynergies: len(patternSyns),
			PatternsSkipped:  skipped,
			MLCandidates:     mlCount,
			ThreeChains:      len(three),
			FourChains:       len(four),
			CacheHits:        int64(detAfter.CacheHits - detBefore.CacheHits),
			CacheMisses:      int64(detAfter.CacheMisses - detBefore.CacheMisses),
			Elapsed:          elapsed,
		},
	}

	atomic.AddUint64(&e.discoveries, 1)
	atomic.AddUint64(&e.synergiesProduced,
		uint64(len(synergies)+len(three)+len(four)))

	e.metrics.RecordPairsGenerated(ctx, synergy.SourceRuleBased, len(rulePairs))
	e.metrics.RecordPairsGenerated(ctx, synergy.SourceMLDiscovered, mlCount)
	e.metrics.RecordPatternConversion(ctx, int64(len(patternSyns)), skipped)
	e.metrics.RecordChainsBuilt(ctx, 3, len(three))
	e.metrics.RecordChainsBuilt(ctx, 4, len(four))
	e.metrics.RecordCacheActivity(ctx,
		int64(detAfter.CacheHits-detBefore.CacheHits),
		int64(detAfter.CacheMisses-detBefore.CacheMisses),
		int64(detAfter.CacheFailures-detBefore.CacheFailures),
	)
	e.metrics.RecordDiscovery(ctx, elapsed)

	e.logger.Info("synergy discovery complete",
		zap.Int("entities", len(input.Entities)),
		zap.Int("patterns", len(input.Patterns)),
		zap.Int("rule_pairs", len(rulePairs)),
		zap.Int("pattern_synergies", len(patternSyns)),
		zap.Int64("patterns_skipped", skipped),
		zap.Int("ml_candidates", mlCount),
		zap.Int("three_chains", len(three)),
		zap.Int("four_chains", len(four)),
		zap.Duration("elapsed", elapsed),
	)
	return result
}

// GeneratePairwiseSynergies runs only the rule-based generation stage.
func (e *Engine) GeneratePairwiseSynergies(entities []synergy.Entity) []*synergy.Synergy {
	return e.generator.Generate(entities)
}

// ConvertPatterns runs only the pattern conversion stage.
func (e *Engine) ConvertPatterns(patterns []inference.Pattern) []*synergy.Synergy {
	return e.converter.Convert(patterns)
}

// DetectThreeDeviceChains runs only 3-device chain detection over the
// given device pairs.
func (e *Engine) DetectThreeDeviceChains(ctx context.Context, pairs []*synergy.Synergy) []*synergy.Synergy {
	return e.detector.DetectThreeDeviceChains(ctx, pairs)
}

// DetectFourDeviceChains runs only 4-device chain detection, extending
// threeChains with continuations drawn from pairs.
func (e *Engine) DetectFourDeviceChains(ctx context.Context, threeChains, pairs []*synergy.Synergy) []*synergy.Synergy {
	return e.detector.DetectFourDeviceChains(ctx, threeChains, pairs)
}

// Stats returns lifetime engine counters.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Discoveries:       atomic.LoadUint64(&e.discoveries),
		SynergiesProduced: atomic.LoadUint64(&e.synergiesProduced),
		PatternsSkipped:   e.converter.Skipped(),
		Detector:          e.detector.Stats(),
	}
}

// Close releases resources held by the engine. Only a Badger chain cache
// opened by the engine itself needs closing; other backends make Close a
// no-op. Close is idempotent.
func (e *Engine) Close() error {
	if e.ownedCache == nil {
		return nil
	}
	err := e.ownedCache.Close()
	e.ownedCache = nil
	return err
}
