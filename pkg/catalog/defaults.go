package catalog

import "github.com/wtthornton/HomeIQ-sub003/pkg/synergy"

// DefaultArchetypes returns the built-in relationship archetype table.
//
// Benefit scores and base confidences are tuned from field data: how often
// users accept the suggested automation and how often the pairing turns out
// to be spurious. Security archetypes (door_to_lock, door_to_notify,
// smoke_to_notify, moisture_to_valve) sit at or above 0.9 base confidence
// so they survive any reasonable confidence threshold.
func DefaultArchetypes() []Archetype {
	return []Archetype{
		{
			RelationshipType: "motion_to_light",
			Description:      "Motion sensor turns on a nearby light",
			BenefitScore:     0.8,
			Complexity:       synergy.ComplexityLow,
			TriggerDomain:    "binary_sensor",
			TriggerClass:     "motion",
			ActionDomain:     "light",
			BaseConfidence:   0.85,
		},
		{
			RelationshipType: "motion_to_fan",
			Description:      "Motion sensor starts a fan",
			BenefitScore:     0.5,
			Complexity:       synergy.ComplexityLow,
			TriggerDomain:    "binary_sensor",
			TriggerClass:     "motion",
			ActionDomain:     "fan",
			BaseConfidence:   0.6,
		},
		{
			RelationshipType: "motion_to_climate",
			Description:      "Motion sensor adjusts climate for occupancy",
			BenefitScore:     0.55,
			Complexity:       synergy.ComplexityMedium,
			TriggerDomain:    "binary_sensor",
			TriggerClass:     "motion",
			ActionDomain:     "climate",
			BaseConfidence:   0.65,
		},
		{
			RelationshipType: "door_to_light",
			Description:      "Opening a door turns on a light",
			BenefitScore:     0.6,
			Complexity:       synergy.ComplexityLow,
			TriggerDomain:    "binary_sensor",
			TriggerClass:     "door",
			ActionDomain:     "light",
			BaseConfidence:   0.7,
		},
		{
			RelationshipType: "door_to_lock",
			Description:      "Door left open engages the smart lock once closed",
			BenefitScore:     0.9,
			Complexity:       synergy.ComplexityMedium,
			TriggerDomain:    "binary_sensor",
			TriggerClass:     "door",
			ActionDomain:     "lock",
			BaseConfidence:   0.92,
			SecurityRelevant: true,
		},
		{
			RelationshipType: "door_to_notify",
			Description:      "Door activity sends a notification",
			BenefitScore:     0.85,
			Complexity:       synergy.ComplexityLow,
			TriggerDomain:    "binary_sensor",
			TriggerClass:     "door",
			ActionDomain:     "notify",
			BaseConfidence:   0.9,
			SecurityRelevant: true,
		},
		{
			RelationshipType: "smoke_to_notify",
			Description:      "Smoke detector sends an emergency notification",
			BenefitScore:     0.95,
			Complexity:       synergy.ComplexityLow,
			TriggerDomain:    "binary_sensor",
			TriggerClass:     "smoke",
			ActionDomain:     "notify",
			BaseConfidence:   0.95,
			SecurityRelevant: true,
		},
		{
			RelationshipType: "moisture_to_valve",
			Description:      "Leak sensor shuts off the water valve",
			BenefitScore:     0.95,
			Complexity:       synergy.ComplexityMedium,
			TriggerDomain:    "binary_sensor",
			TriggerClass:     "moisture",
			ActionDomain:     "valve",
			BaseConfidence:   0.93,
			SecurityRelevant: true,
		},
		{
			RelationshipType: "occupancy_to_media",
			Description:      "Room occupancy resumes media playback",
			BenefitScore:     0.5,
			Complexity:       synergy.ComplexityHigh,
			TriggerDomain:    "binary_sensor",
			TriggerClass:     "occupancy",
			ActionDomain:     "media_player",
			BaseConfidence:   0.6,
		},
		{
			RelationshipType: "illuminance_to_light",
			Description:      "Low ambient light turns on a light",
			BenefitScore:     0.65,
			Complexity:       synergy.ComplexityLow,
			TriggerDomain:    "sensor",
			TriggerClass:     "illuminance",
			ActionDomain:     "light",
			BaseConfidence:   0.7,
		},
		{
			RelationshipType: "humidity_to_fan",
			Description:      "High humidity starts an exhaust fan",
			BenefitScore:     0.7,
			Complexity:       synergy.ComplexityLow,
			TriggerDomain:    "sensor",
			TriggerClass:     "humidity",
			ActionDomain:     "fan",
			BaseConfidence:   0.75,
		},
		{
			RelationshipType: "temperature_to_climate",
			Description:      "Temperature sensor steers the thermostat",
			BenefitScore:     0.75,
			Complexity:       synergy.ComplexityMedium,
			TriggerDomain:    "sensor",
			TriggerClass:     "temperature",
			ActionDomain:     "climate",
			BaseConfidence:   0.8,
		},
		{
			RelationshipType: "window_to_climate",
			Description:      "Open window pauses heating or cooling",
			BenefitScore:     0.8,
			Complexity:       synergy.ComplexityMedium,
			TriggerDomain:    "binary_sensor",
			TriggerClass:     "window",
			ActionDomain:     "climate",
			BaseConfidence:   0.82,
		},
		{
			RelationshipType: "vibration_to_notify",
			Description:      "Vibration on a monitored surface sends an alert",
			BenefitScore:     0.6,
			Complexity:       synergy.ComplexityLow,
			TriggerDomain:    "binary_sensor",
			TriggerClass:     "vibration",
			ActionDomain:     "notify",
			BaseConfidence:   0.6,
		},
	}
}

// ExampleArchetypesYAML documents the archetype file layout accepted by
// LoadArchetypes.
const ExampleArchetypesYAML = `# HomeIQ relationship archetypes
# Entries with a relationship_type matching a built-in archetype replace it;
# new types are appended to the catalog.

archetypes:
  - relationship_type: motion_to_switch
    description: Motion sensor flips a smart switch
    benefit_score: 0.55
    complexity: low
    trigger_domain: binary_sensor
    trigger_class: motion
    action_domain: switch
    base_confidence: 0.6

  - relationship_type: door_to_lock
    description: Door left open engages the smart lock once closed
    benefit_score: 0.9
    complexity: medium
    trigger_domain: binary_sensor
    trigger_class: door
    action_domain: lock
    base_confidence: 0.95
    security_relevant: true
`
