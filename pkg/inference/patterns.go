package inference

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wtthornton/HomeIQ-sub003/pkg/synergy"
)

// PatternType identifies the kind of behavioral pattern.
type PatternType string

const (
	// PatternCoOccurrence marks a pair of devices repeatedly changing
	// state together. Its DeviceID is a composite "A+B" key.
	PatternCoOccurrence PatternType = "co_occurrence"
	// PatternTimeOfDay marks a device repeatedly activating at a given
	// clock time, carried in the hour/minute metadata keys.
	PatternTimeOfDay PatternType = "time_of_day"
)

// patternImpactDefault is the impact score assigned to pattern-derived
// synergies. Patterns prove that a relationship exists but say nothing
// about how valuable automating it would be, so they land mid-scale.
const patternImpactDefault = 0.5

// Pattern is a previously detected statistical regularity in device event
// history. Patterns are read-only inputs; the converter never mutates them.
type Pattern struct {
	ID          string         `json:"id"`
	PatternType PatternType    `json:"pattern_type"`
	DeviceID    string         `json:"device_id"`
	Metadata    map[string]any `json:"pattern_metadata,omitempty"`
	Confidence  float64        `json:"confidence"`
	Occurrences int            `json:"occurrences"`
}

// CoOccurrenceKey joins two entity IDs into the composite device_id used
// by co-occurrence patterns:
//
//	CoOccurrenceKey("binary_sensor.motion", "light.kitchen")
//	// "binary_sensor.motion+light.kitchen"
//
// Pattern producers and consumers must build the key through this function
// so both sides decompose it identically.
func CoOccurrenceKey(trigger, action string) string {
	return trigger + "+" + action
}

// SplitCoOccurrenceKey decomposes a composite co-occurrence device_id into
// its trigger and action entity IDs. ok is false unless the key splits
// into exactly two non-empty parts.
func SplitCoOccurrenceKey(deviceID string) (trigger, action string, ok bool) {
	parts := strings.Split(deviceID, "+")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// PatternConverter turns behavioral patterns into pattern-validated
// synergies. Safe for concurrent use; conversion state is local to each
// Convert call.
type PatternConverter struct {
	logger  *zap.Logger
	skipped uint64
}

// NewPatternConverter creates a PatternConverter.
func NewPatternConverter() *PatternConverter {
	return &PatternConverter{logger: zap.NewNop()}
}

// SetLogger sets the logger used for skip diagnostics.
func (pc *PatternConverter) SetLogger(logger *zap.Logger) {
	if logger != nil {
		pc.logger = logger
	}
}

// Skipped returns the total number of patterns dropped as unusable since
// the converter was created.
func (pc *PatternConverter) Skipped() uint64 {
	return atomic.LoadUint64(&pc.skipped)
}

// scheduleKey groups time_of_day patterns by their exact clock time.
type scheduleKey struct {
	hour   int
	minute int
}

// scheduleGroup accumulates the members of one (hour, minute) bucket.
type scheduleGroup struct {
	devices    []string
	seen       map[string]bool
	patternIDs []string
	confSum    float64
	count      int
}

// Convert translates patterns into synergies.
//
// Conversion rules:
//   - A co_occurrence pattern whose DeviceID splits into exactly two
//     distinct non-empty entity IDs yields one device_pair synergy with
//     the pattern's confidence, marked validated_by_patterns.
//   - time_of_day patterns are grouped by their exact (hour, minute)
//     metadata; every group spanning at least two distinct devices yields
//     one schedule_based synergy whose confidence is the mean of the
//     member patterns.
//   - Anything else (foreign pattern types, missing device IDs, missing
//     clock metadata) is skipped and counted, never an error.
//
// Output order is deterministic: co-occurrence pairs in input order, then
// schedule synergies in first-encounter order of their clock time.
func (pc *PatternConverter) Convert(patterns []Pattern) []*synergy.Synergy {
	out := make([]*synergy.Synergy, 0)

	groups := make(map[scheduleKey]*scheduleGroup)
	groupOrder := make([]scheduleKey, 0)

	for _, p := range patterns {
		switch p.PatternType {
		case PatternCoOccurrence:
			trigger, action, ok := SplitCoOccurrenceKey(p.DeviceID)
			if !ok || trigger == action {
				pc.skip(p, "unusable co-occurrence device_id")
				continue
			}
			out = append(out, &synergy.Synergy{
				SynergyID:            synergy.NewID("syn"),
				SynergyType:          synergy.TypeDevicePair,
				Devices:              []string{trigger, action},
				TriggerEntity:        trigger,
				ActionEntity:         action,
				Confidence:           p.Confidence,
				ImpactScore:          patternImpactDefault,
				Complexity:           synergy.ComplexityLow,
				Rationale:            fmt.Sprintf("%s and %s frequently change state together", trigger, action),
				SynergyDepth:         2,
				Source:               synergy.SourcePatternDerived,
				PatternSupportScore:  1.0,
				ValidatedByPatterns:  true,
				SupportingPatternIDs: []string{p.ID},
			})

		case PatternTimeOfDay:
			hour, okH := metaInt(p.Metadata, "hour")
			minute, okM := metaInt(p.Metadata, "minute")
			if !okH || !okM || p.DeviceID == "" {
				pc.skip(p, "time_of_day pattern without device or clock metadata")
				continue
			}

			key := scheduleKey{hour: hour, minute: minute}
			g, ok := groups[key]
			if !ok {
				g = &scheduleGroup{seen: make(map[string]bool)}
				groups[key] = g
				groupOrder = append(groupOrder, key)
			}
			g.patternIDs = append(g.patternIDs, p.ID)
			g.confSum += p.Confidence
			g.count++
			if !g.seen[p.DeviceID] {
				g.seen[p.DeviceID] = true
				g.devices = append(g.devices, p.DeviceID)
			}

		default:
			pc.skip(p, "unknown pattern type")
		}
	}

	// Flush schedule groups in encounter order. Single-device groups carry
	// no relationship and produce nothing.
	for _, key := range groupOrder {
		g := groups[key]
		if len(g.devices) < 2 {
			continue
		}

		devices := append([]string(nil), g.devices...)
		out = append(out, &synergy.Synergy{
			SynergyID:            synergy.NewID("syn"),
			SynergyType:          synergy.TypeScheduleBased,
			Devices:              devices,
			TriggerEntity:        devices[0],
			ActionEntity:         devices[len(devices)-1],
			Confidence:           g.confSum / float64(g.count),
			ImpactScore:          patternImpactDefault,
			Complexity:           synergy.ComplexityLow,
			Rationale:            fmt.Sprintf("%d devices activate together around %02d:%02d", len(devices), key.hour, key.minute),
			SynergyDepth:         len(devices),
			Source:               synergy.SourcePatternDerived,
			PatternSupportScore:  1.0,
			ValidatedByPatterns:  true,
			SupportingPatternIDs: append([]string(nil), g.patternIDs...),
		})
	}

	return out
}

// skip records an unusable pattern.
func (pc *PatternConverter) skip(p Pattern, reason string) {
	atomic.AddUint64(&pc.skipped, 1)
	pc.logger.Debug("skipping pattern",
		zap.String("pattern_id", p.ID),
		zap.String("pattern_type", string(p.PatternType)),
		zap.String("reason", reason))
}

// metaInt extracts an integer metadata value. Pattern metadata arrives
// through JSON or YAML decoding, so numbers may be int, int64, or float64.
func metaInt(meta map[string]any, key string) (int, bool) {
	if meta == nil {
		return 0, false
	}
	switch v := meta[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}
