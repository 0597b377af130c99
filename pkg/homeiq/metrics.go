package homeiq

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics publishes discovery counters through OpenTelemetry.
//
// Metrics is optional: a nil *Metrics is safe to call, so the engine never
// has to branch on whether metrics were configured. Counters are exported
// under the homeiq.synergy namespace and pick up whatever meter provider
// the host process has installed.
type Metrics struct {
	meter metric.Meter

	pairsGenerated    metric.Int64Counter
	patternsConverted metric.Int64Counter
	patternsSkipped   metric.Int64Counter
	chainsBuilt       metric.Int64Counter
	cacheHits         metric.Int64Counter
	cacheMisses       metric.Int64Counter
	cacheFailures     metric.Int64Counter
	discoveries       metric.Int64Counter
	discoveryLatency  metric.Float64Histogram
}

// NewMetrics creates a Metrics instance backed by the global meter
// provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("homeiq.synergy")
	m := &Metrics{meter: meter}

	var err error
	m.pairsGenerated, err = meter.Int64Counter(
		"homeiq.synergy.pairs.generated",
		metric.WithDescription("Pairwise synergies generated, by source"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.patternsConverted, err = meter.Int64Counter(
		"homeiq.synergy.patterns.converted",
		metric.WithDescription("Behavioral patterns converted into synergies"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.patternsSkipped, err = meter.Int64Counter(
		"homeiq.synergy.patterns.skipped",
		metric.WithDescription("Behavioral patterns dropped as unusable"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.chainsBuilt, err = meter.Int64Counter(
		"homeiq.synergy.chains.built",
		metric.WithDescription("Device chains produced, by depth"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.cacheHits, err = meter.Int64Counter(
		"homeiq.synergy.cache.hits",
		metric.WithDescription("Chain cache hits"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.cacheMisses, err = meter.Int64Counter(
		"homeiq.synergy.cache.misses",
		metric.WithDescription("Chain cache misses"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.cacheFailures, err = meter.Int64Counter(
		"homeiq.synergy.cache.failures",
		metric.WithDescription("Chain cache operations that failed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.discoveries, err = meter.Int64Counter(
		"homeiq.synergy.discoveries",
		metric.WithDescription("Completed discovery runs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.discoveryLatency, err = meter.Float64Histogram(
		"homeiq.synergy.discovery.latency",
		metric.WithDescription("End-to-end discovery latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordPairsGenerated counts pairwise synergies by source.
func (m *Metrics) RecordPairsGenerated(ctx context.Context, source string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.pairsGenerated.Add(ctx, int64(count),
		metric.WithAttributes(
			attribute.String("source", source),
		),
	)
}

// RecordPatternConversion counts converted and skipped patterns.
func (m *Metrics) RecordPatternConversion(ctx context.Context, converted, skipped int64) {
	if m == nil {
		return
	}
	if converted > 0 {
		m.patternsConverted.Add(ctx, converted)
	}
	if skipped > 0 {
		m.patternsSkipped.Add(ctx, skipped)
	}
}

// RecordChainsBuilt counts produced chains by depth.
func (m *Metrics) RecordChainsBuilt(ctx context.Context, depth, count int) {
	if m == nil || count == 0 {
		return
	}
	m.chainsBuilt.Add(ctx, int64(count),
		metric.WithAttributes(
			attribute.Int("chain.depth", depth),
		),
	)
}

// RecordCacheActivity counts chain cache traffic.
func (m *Metrics) RecordCacheActivity(ctx context.Context, hits, misses, failures int64) {
	if m == nil {
		return
	}
	if hits > 0 {
		m.cacheHits.Add(ctx, hits)
	}
	if misses > 0 {
		m.cacheMisses.Add(ctx, misses)
	}
	if failures > 0 {
		m.cacheFailures.Add(ctx, failures)
	}
}

// RecordDiscovery counts a completed discovery run.
func (m *Metrics) RecordDiscovery(ctx context.Context, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.discoveries.Add(ctx, 1)
	m.discoveryLatency.Record(ctx, elapsed.Seconds())
}
