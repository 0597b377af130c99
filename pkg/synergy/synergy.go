// Package synergy defines the core data model for the HomeIQ synergy engine.
//
// A Synergy is a claimed causal or behavioral relationship between two or
// more smart-home devices: "motion sensor triggers light", "door opening
// should lock the deadbolt", "these four devices fire in sequence every
// evening". Synergies are produced by the rule-based generator
// (pkg/inference), corroborated by behavioral patterns, extended into
// chains (pkg/chains), and ranked by quality before being handed to the
// recommendation layer.
//
// The model is intentionally flat and JSON-serializable so records can be
// cached, shipped over the wire, and diffed without translation.
package synergy

import (
	"crypto/rand"
	"encoding/hex"
)

// SynergyType classifies how a synergy relates its devices.
type SynergyType string

const (
	// TypeDevicePair is a directed two-device relationship (trigger -> action).
	TypeDevicePair SynergyType = "device_pair"
	// TypeScheduleBased groups devices that activate around the same time of day.
	TypeScheduleBased SynergyType = "schedule_based"
	// TypeDeviceChain is an ordered 3- or 4-device relationship built by
	// linking pairwise synergies end-to-end.
	TypeDeviceChain SynergyType = "device_chain"
)

// Complexity is a qualitative tag describing how involved the resulting
// automation would be for a user to review.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Provenance markers for the Source field.
const (
	// SourceRuleBased marks synergies produced from the relationship catalog.
	SourceRuleBased = "rule_based"
	// SourcePatternDerived marks synergies converted from behavioral patterns.
	SourcePatternDerived = "pattern_derived"
	// SourceMLDiscovered marks externally supplied, pre-scored ML candidates.
	SourceMLDiscovered = "ml_discovered"
	// SourceChainDetector marks chains assembled from pairwise synergies.
	SourceChainDetector = "chain_detector"
)

// Synergy is the central record of the engine.
//
// Devices is ordered: for pairs and chains the order encodes causal
// direction, with TriggerEntity and ActionEntity mirroring the first and
// last element. Confidence and ImpactScore are both in [0,1]. For chains,
// Confidence carries weakest-link semantics (the minimum across the
// constituent pairs) and ImpactScore is the two-decimal rounded mean of
// the constituent impacts.
//
// Example:
//
//	s := &synergy.Synergy{
//		SynergyID:     synergy.NewID("syn"),
//		SynergyType:   synergy.TypeDevicePair,
//		Devices:       []string{"binary_sensor.hall_motion", "light.hall"},
//		TriggerEntity: "binary_sensor.hall_motion",
//		ActionEntity:  "light.hall",
//		Confidence:    0.9,
//		ImpactScore:   0.8,
//		Complexity:    synergy.ComplexityLow,
//		Area:          "hallway",
//		Rationale:     "Motion in the hallway turns on the hall light",
//		SynergyDepth:  2,
//		Source:        synergy.SourceRuleBased,
//	}
//
// Invariants maintained by the producing components:
//   - No entity ID repeats within Devices.
//   - For a chain, every adjacent (Devices[i], Devices[i+1]) sub-pair was a
//     valid pairwise synergy in the detector's input set.
type Synergy struct {
	SynergyID     string      `json:"synergy_id"`
	SynergyType   SynergyType `json:"synergy_type"`
	Devices       []string    `json:"devices"`
	TriggerEntity string      `json:"trigger_entity,omitempty"`
	ActionEntity  string      `json:"action_entity,omitempty"`
	Confidence    float64     `json:"confidence"`
	ImpactScore   float64     `json:"impact_score"`
	Complexity    Complexity  `json:"complexity"`
	Area          string      `json:"area,omitempty"`
	Rationale     string      `json:"rationale,omitempty"`
	SynergyDepth  int         `json:"synergy_depth"`
	Source        string      `json:"source,omitempty"`

	// Pattern corroboration, set by the pattern converter.
	PatternSupportScore  float64  `json:"pattern_support_score,omitempty"`
	ValidatedByPatterns  bool     `json:"validated_by_patterns,omitempty"`
	SupportingPatternIDs []string `json:"supporting_pattern_ids,omitempty"`

	// ChainDevices is a denormalized copy of Devices on chain records,
	// kept for caller convenience.
	ChainDevices []string `json:"chain_devices,omitempty"`
}

// Entity describes a device as seen by the pairwise generator.
//
// Domain and DeviceClass follow smart-home conventions: Domain is the
// integration family ("light", "binary_sensor", "climate") and DeviceClass
// refines it ("motion", "door", "temperature"). Area is the physical
// location the device is assigned to, empty when unassigned.
type Entity struct {
	EntityID    string `json:"entity_id"`
	Domain      string `json:"domain"`
	DeviceClass string `json:"device_class,omitempty"`
	Area        string `json:"area,omitempty"`
}

// Clone returns a deep copy of the synergy.
//
// Caches and result assemblers hand out clones so callers can mutate
// records freely without corrupting shared state.
func (s *Synergy) Clone() *Synergy {
	if s == nil {
		return nil
	}
	out := *s
	if s.Devices != nil {
		out.Devices = append([]string(nil), s.Devices...)
	}
	if s.SupportingPatternIDs != nil {
		out.SupportingPatternIDs = append([]string(nil), s.SupportingPatternIDs...)
	}
	if s.ChainDevices != nil {
		out.ChainDevices = append([]string(nil), s.ChainDevices...)
	}
	return &out
}

// NewID generates a random identifier with the given prefix, e.g.
// "syn-a1b2c3d4e5f60718". Collisions are improbable enough to ignore for
// per-invocation records.
func NewID(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}
