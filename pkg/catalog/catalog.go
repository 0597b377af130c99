// Package catalog provides the relationship archetype catalog for HomeIQ.
//
// An archetype is a named, curated rule describing a class of plausible
// device relationships ("motion sensor drives a light", "an opening door
// should engage the lock") together with matching criteria and scoring
// defaults. The pairwise generator scans entity pairs against this table.
//
// The built-in table covers the common smart-home wirings; deployments can
// extend or override it from a YAML file via LoadArchetypes and Merge.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wtthornton/HomeIQ-sub003/pkg/synergy"
)

// Errors returned by catalog construction and loading.
var (
	ErrInvalidArchetype   = errors.New("invalid archetype")
	ErrDuplicateArchetype = errors.New("duplicate relationship type")
)

// RelationshipDefinition is the portable core of an archetype: what the
// relationship is called, what it does for the user, and how it scores.
// BenefitScore is in [0,1].
type RelationshipDefinition struct {
	RelationshipType string             `json:"relationship_type" yaml:"relationship_type"`
	Description      string             `json:"description" yaml:"description"`
	BenefitScore     float64            `json:"benefit_score" yaml:"benefit_score"`
	Complexity       synergy.Complexity `json:"complexity" yaml:"complexity"`
}

// Archetype is a relationship definition plus the matching criteria the
// pairwise generator needs.
//
// TriggerClass and ActionClass are optional refinements: an empty class
// matches any device class within the domain. BaseConfidence seeds the
// confidence of every synergy generated from this archetype; a same-area
// bonus may be added on top. SecurityRelevant archetypes must carry a
// BaseConfidence of at least 0.9 so that security pairings always clear
// conservative confidence thresholds.
type Archetype struct {
	RelationshipType string             `json:"relationship_type" yaml:"relationship_type"`
	Description      string             `json:"description" yaml:"description"`
	BenefitScore     float64            `json:"benefit_score" yaml:"benefit_score"`
	Complexity       synergy.Complexity `json:"complexity" yaml:"complexity"`
	TriggerDomain    string             `json:"trigger_domain" yaml:"trigger_domain"`
	TriggerClass     string             `json:"trigger_class,omitempty" yaml:"trigger_class,omitempty"`
	ActionDomain     string             `json:"action_domain" yaml:"action_domain"`
	ActionClass      string             `json:"action_class,omitempty" yaml:"action_class,omitempty"`
	BaseConfidence   float64            `json:"base_confidence" yaml:"base_confidence"`
	SecurityRelevant bool               `json:"security_relevant,omitempty" yaml:"security_relevant,omitempty"`
}

// Definition returns the archetype's relationship definition.
func (a Archetype) Definition() RelationshipDefinition {
	return RelationshipDefinition{
		RelationshipType: a.RelationshipType,
		Description:      a.Description,
		BenefitScore:     a.BenefitScore,
		Complexity:       a.Complexity,
	}
}

// MatchesTrigger reports whether the entity can play the trigger role.
func (a Archetype) MatchesTrigger(e synergy.Entity) bool {
	if e.Domain != a.TriggerDomain {
		return false
	}
	return a.TriggerClass == "" || a.TriggerClass == e.DeviceClass
}

// MatchesAction reports whether the entity can play the action role.
func (a Archetype) MatchesAction(e synergy.Entity) bool {
	if e.Domain != a.ActionDomain {
		return false
	}
	return a.ActionClass == "" || a.ActionClass == e.DeviceClass
}

// validate checks a single archetype for structural problems.
func (a Archetype) validate() error {
	if a.RelationshipType == "" {
		return fmt.Errorf("%w: missing relationship_type", ErrInvalidArchetype)
	}
	if a.TriggerDomain == "" || a.ActionDomain == "" {
		return fmt.Errorf("%w: %s: trigger_domain and action_domain are required", ErrInvalidArchetype, a.RelationshipType)
	}
	if a.BenefitScore < 0 || a.BenefitScore > 1 {
		return fmt.Errorf("%w: %s: benefit_score %.2f outside [0,1]", ErrInvalidArchetype, a.RelationshipType, a.BenefitScore)
	}
	if a.BaseConfidence < 0 || a.BaseConfidence > 1 {
		return fmt.Errorf("%w: %s: base_confidence %.2f outside [0,1]", ErrInvalidArchetype, a.RelationshipType, a.BaseConfidence)
	}
	switch a.Complexity {
	case synergy.ComplexityLow, synergy.ComplexityMedium, synergy.ComplexityHigh:
	default:
		return fmt.Errorf("%w: %s: complexity %q not one of low/medium/high", ErrInvalidArchetype, a.RelationshipType, a.Complexity)
	}
	if a.SecurityRelevant && a.BaseConfidence < 0.9 {
		return fmt.Errorf("%w: %s: security archetypes require base_confidence >= 0.9", ErrInvalidArchetype, a.RelationshipType)
	}
	return nil
}

// Catalog is an immutable, ordered archetype table.
//
// Order matters: the pairwise generator iterates archetypes in table order,
// which keeps its output deterministic for a fixed entity list.
type Catalog struct {
	archetypes []Archetype
	byType     map[string]int
}

// New builds a catalog from the given archetypes, validating each entry.
//
// Returns an error for a missing relationship type, a duplicate type, a
// score outside [0,1], an unknown complexity tag, or a security-relevant
// archetype whose base confidence falls below 0.9.
func New(archetypes []Archetype) (*Catalog, error) {
	c := &Catalog{
		archetypes: make([]Archetype, 0, len(archetypes)),
		byType:     make(map[string]int, len(archetypes)),
	}
	for _, a := range archetypes {
		if err := a.validate(); err != nil {
			return nil, err
		}
		if _, exists := c.byType[a.RelationshipType]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateArchetype, a.RelationshipType)
		}
		c.byType[a.RelationshipType] = len(c.archetypes)
		c.archetypes = append(c.archetypes, a)
	}
	return c, nil
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// Default returns the catalog built from the built-in archetype table.
// The instance is shared; catalogs are immutable after construction.
func Default() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := New(DefaultArchetypes())
		if err != nil {
			// The built-in table is static and covered by tests.
			panic("catalog: built-in archetype table invalid: " + err.Error())
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Merge returns a new catalog with extra archetypes applied on top of this
// one. An extra entry whose relationship type already exists replaces the
// existing entry in place (preserving table order); new types are appended
// in encounter order.
func (c *Catalog) Merge(extra []Archetype) (*Catalog, error) {
	merged := make([]Archetype, len(c.archetypes))
	copy(merged, c.archetypes)

	for _, a := range extra {
		if idx, exists := c.byType[a.RelationshipType]; exists {
			merged[idx] = a
		} else {
			merged = append(merged, a)
		}
	}
	return New(merged)
}

// Get returns the archetype registered under the given relationship type.
func (c *Catalog) Get(relationshipType string) (Archetype, bool) {
	idx, ok := c.byType[relationshipType]
	if !ok {
		return Archetype{}, false
	}
	return c.archetypes[idx], true
}

// Archetypes returns a copy of the table in catalog order.
func (c *Catalog) Archetypes() []Archetype {
	out := make([]Archetype, len(c.archetypes))
	copy(out, c.archetypes)
	return out
}

// Definitions returns the relationship definitions in catalog order.
func (c *Catalog) Definitions() []RelationshipDefinition {
	out := make([]RelationshipDefinition, 0, len(c.archetypes))
	for _, a := range c.archetypes {
		out = append(out, a.Definition())
	}
	return out
}

// Len returns the number of archetypes in the catalog.
func (c *Catalog) Len() int {
	return len(c.archetypes)
}

// archetypeFile is the on-disk YAML layout for user-supplied archetypes.
type archetypeFile struct {
	Archetypes []Archetype `yaml:"archetypes"`
}

// LoadArchetypes reads archetypes from a YAML file.
//
// The entries are syntactically decoded but not validated here; pass them
// through Merge or New to validate. See ExampleArchetypesYAML for the
// expected layout.
func LoadArchetypes(path string) ([]Archetype, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archetypes file: %w", err)
	}

	var f archetypeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse archetypes file: %w", err)
	}
	return f.Archetypes, nil
}
