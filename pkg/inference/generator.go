// Package inference produces candidate pairwise synergies for HomeIQ.
//
// Two producers live here:
//   - Generator: scans entity pairs against the relationship archetype
//     catalog (pkg/catalog) and emits rule-based device_pair synergies.
//   - PatternConverter: converts previously detected behavioral patterns
//     (co-occurrence pairs, time-of-day clusters) into pattern-validated
//     synergies.
//
// Both stages are pure over their inputs: malformed entities and patterns
// are skipped and counted, never raised, so the worst failure mode is a
// smaller candidate set.
//
// Example Usage:
//
//	gen := inference.NewGenerator(catalog.Default(), &inference.GeneratorConfig{
//		MinConfidence:    0.7,
//		SameAreaRequired: true,
//	})
//
//	pairs := gen.Generate(entities)
//	for _, p := range pairs {
//		fmt.Printf("%s -> %s (%.2f confidence): %s\n",
//			p.TriggerEntity, p.ActionEntity, p.Confidence, p.Rationale)
//	}
package inference

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wtthornton/HomeIQ-sub003/pkg/catalog"
	"github.com/wtthornton/HomeIQ-sub003/pkg/synergy"
)

// sameAreaBonus is added to an archetype's base confidence when trigger
// and action share an area. Devices in the same room are far more likely
// to be causally wired in the user's mind.
const sameAreaBonus = 0.05

// DefaultMinConfidence is the emission threshold used when no
// GeneratorConfig is supplied.
const DefaultMinConfidence = 0.6

// GeneratorConfig tunes rule-based pair generation.
//
//   - Higher MinConfidence = fewer but safer suggestions
//   - SameAreaRequired restricts matching to devices sharing an area
type GeneratorConfig struct {
	// MinConfidence is the emission threshold. Default: 0.6.
	MinConfidence float64

	// SameAreaRequired, when set, only considers entity pairs that share
	// a non-empty area.
	SameAreaRequired bool
}

// DefaultGeneratorConfig returns balanced defaults suitable for most homes.
func DefaultGeneratorConfig() *GeneratorConfig {
	return &GeneratorConfig{
		MinConfidence:    DefaultMinConfidence,
		SameAreaRequired: false,
	}
}

// Generator emits device_pair synergies by matching entities against the
// archetype catalog. Safe for concurrent use; all scan state is local to
// each Generate call.
type Generator struct {
	catalog *catalog.Catalog
	config  *GeneratorConfig
	logger  *zap.Logger
}

// NewGenerator creates a Generator.
//
// A nil catalog falls back to catalog.Default(), a nil config to
// DefaultGeneratorConfig().
func NewGenerator(cat *catalog.Catalog, config *GeneratorConfig) *Generator {
	if cat == nil {
		cat = catalog.Default()
	}
	if config == nil {
		config = DefaultGeneratorConfig()
	}
	return &Generator{
		catalog: cat,
		config:  config,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger used for skip diagnostics.
func (g *Generator) SetLogger(logger *zap.Logger) {
	if logger != nil {
		g.logger = logger
	}
}

// Generate scans all (trigger, action) entity pairs against every catalog
// archetype and returns the device_pair synergies clearing the confidence
// threshold.
//
// Matching rules:
//   - Entities missing an ID or domain are excluded, not an error.
//   - A pair's confidence is the archetype's base confidence, plus a
//     same-area bonus (capped at 1.0) when both entities share an area.
//   - With SameAreaRequired set, pairs that do not share a non-empty area
//     are never considered.
//   - Security-relevant archetypes carry base confidences of at least 0.9
//     (enforced by the catalog), so their pairs always score >= 0.9.
//
// Output order is deterministic: archetypes in catalog order, then trigger
// and action entities in input order.
func (g *Generator) Generate(entities []synergy.Entity) []*synergy.Synergy {
	usable := make([]synergy.Entity, 0, len(entities))
	for _, e := range entities {
		if e.EntityID == "" || e.Domain == "" {
			g.logger.Debug("skipping entity with missing fields",
				zap.String("entity_id", e.EntityID),
				zap.String("domain", e.Domain))
			continue
		}
		usable = append(usable, e)
	}

	out := make([]*synergy.Synergy, 0)
	for _, arch := range g.catalog.Archetypes() {
		for _, trigger := range usable {
			if !arch.MatchesTrigger(trigger) {
				continue
			}
			for _, action := range usable {
				if action.EntityID == trigger.EntityID {
					continue // Skip self
				}
				if !arch.MatchesAction(action) {
					continue
				}

				sharedArea := trigger.Area != "" && trigger.Area == action.Area
				if g.config.SameAreaRequired && !sharedArea {
					continue
				}

				confidence := arch.BaseConfidence
				area := ""
				if sharedArea {
					confidence += sameAreaBonus
					if confidence > 1.0 {
						confidence = 1.0
					}
					area = trigger.Area
				}
				if confidence < g.config.MinConfidence {
					continue
				}

				out = append(out, &synergy.Synergy{
					SynergyID:     synergy.NewID("syn"),
					SynergyType:   synergy.TypeDevicePair,
					Devices:       []string{trigger.EntityID, action.EntityID},
					TriggerEntity: trigger.EntityID,
					ActionEntity:  action.EntityID,
					Confidence:    confidence,
					ImpactScore:   arch.BenefitScore,
					Complexity:    arch.Complexity,
					Area:          area,
					Rationale:     fmt.Sprintf("%s (%s to %s)", arch.Description, trigger.EntityID, action.EntityID),
					SynergyDepth:  2,
					Source:        synergy.SourceRuleBased,
				})
			}
		}
	}
	return out
}
