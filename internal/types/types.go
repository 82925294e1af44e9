// Package types defines the core domain model shared across the engine:
// entities, traits, observations, species enrichment records, pending
// actions, and the append-only domain event log they are all derived from.
package types

import "time"

// EntityType classifies a tracked physical thing.
type EntityType string

// Entity type constants.
const (
	EntityHabitat    EntityType = "HABITAT"
	EntityPlant      EntityType = "PLANT"
	EntityPlantGroup EntityType = "PLANT_GROUP"
	EntityOrganism   EntityType = "ORGANISM"
	EntityColony     EntityType = "COLONY"
)

// EnrichmentStatus tracks an entity's progress through the enrichment queue.
type EnrichmentStatus string

// Enrichment status constants. An entity starts at EnrichmentNone and is
// advanced by the queue; cancellation leaves it at EnrichmentPending so it
// can be retried.
const (
	EnrichmentNone     EnrichmentStatus = "none"
	EnrichmentQueued   EnrichmentStatus = "queued"
	EnrichmentPending  EnrichmentStatus = "pending"
	EnrichmentComplete EnrichmentStatus = "complete"
	EnrichmentFailed   EnrichmentStatus = "failed"
)

// ObservationType classifies a logged observation.
type ObservationType string

// Observation type constants.
const (
	ObservationGrowth    ObservationType = "growth"
	ObservationParameter ObservationType = "parameter"
	ObservationNote      ObservationType = "note"
)

// Observation is a single timestamped measurement or note attached to an
// entity. Observations are append-only; ordering is by Timestamp, not
// insertion order.
type Observation struct {
	Timestamp int64           `json:"timestamp"` // epoch millis
	Type      ObservationType `json:"type"`
	Label     string          `json:"label"` // e.g. "pH", "temp", "height"
	Value     float64         `json:"value"`
	Unit      string          `json:"unit,omitempty"`
}

// Entity is a tracked physical thing: a habitat, an organism, a plant or
// plant group, or a colony. Entities are a projection derived by replaying
// the domain event log; they are never hard-deleted by the core.
type Entity struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	ScientificName string     `json:"scientific_name,omitempty"`
	Type           EntityType `json:"type"`

	// HabitatID is a weak back-reference. If it does not name an existing
	// HABITAT entity the inhabitant is treated as roaming.
	HabitatID string `json:"habitat_id,omitempty"`

	Aliases      []string      `json:"aliases,omitempty"` // matched case-insensitively
	Traits       []Trait       `json:"traits,omitempty"`
	Observations []Observation `json:"observations,omitempty"`

	EnrichmentStatus EnrichmentStatus `json:"enrichment_status"`

	CreatedAt int64 `json:"created_at"` // epoch millis
	UpdatedAt int64 `json:"updated_at"`

	// Overflow holds enrichment data that has no modeled field.
	Overflow map[string]any `json:"overflow,omitempty"`
}

// Trait returns the entity's trait of the given kind, or nil. At most one
// trait of each kind is expected; duplicates are a caller bug and the first
// wins.
func (e *Entity) Trait(kind TraitKind) *Trait {
	for i := range e.Traits {
		if e.Traits[i].Kind == kind {
			return &e.Traits[i]
		}
	}
	return nil
}

// Aquatic returns the entity's aquatic parameters, or nil if the entity has
// no AQUATIC trait.
func (e *Entity) Aquatic() *AquaticParams {
	if t := e.Trait(TraitAquatic); t != nil {
		return t.Aquatic
	}
	return nil
}

// SpeciesKey returns the identity used for biodiversity uniqueness counting:
// the scientific name when present, otherwise the display name.
func (e *Entity) SpeciesKey() string {
	if e.ScientificName != "" {
		return e.ScientificName
	}
	return e.Name
}

// ObservationsByLabel returns the entity's observations matching the given
// label, ordered oldest first by timestamp.
func (e *Entity) ObservationsByLabel(label string) []Observation {
	var out []Observation
	for _, o := range e.Observations {
		if o.Label == label {
			out = append(out, o)
		}
	}
	sortObservations(out)
	return out
}

// LatestObservation returns the most recent observation with the given
// label, or nil if none exists.
func (e *Entity) LatestObservation(label string) *Observation {
	obs := e.ObservationsByLabel(label)
	if len(obs) == 0 {
		return nil
	}
	o := obs[len(obs)-1]
	return &o
}

func sortObservations(obs []Observation) {
	// Insertion sort; observation lists are short and usually near-ordered.
	for i := 1; i < len(obs); i++ {
		for j := i; j > 0 && obs[j].Timestamp < obs[j-1].Timestamp; j-- {
			obs[j], obs[j-1] = obs[j-1], obs[j]
		}
	}
}

// NowMillis returns the current time as epoch milliseconds, the timestamp
// unit used throughout the event log and entity model.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
