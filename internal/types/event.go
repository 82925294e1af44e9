package types

// EventType classifies a domain event.
type EventType string

// Event type constants. QUERY intents never produce events; they are
// answered from the projection directly.
const (
	EventAccessionEntity EventType = "ACCESSION_ENTITY"
	EventLogObservation  EventType = "LOG_OBSERVATION"
	EventModifyHabitat   EventType = "MODIFY_HABITAT"
)

// DomainEvent is the immutable, append-only source of truth. Entities are a
// projection rebuilt by replaying all events in chronological order; the
// event itself is never edited after it is written.
type DomainEvent struct {
	EventID   string        `json:"event_id"`
	Type      EventType     `json:"type"`
	Timestamp int64         `json:"timestamp"` // epoch millis
	Payload   EventPayload  `json:"payload"`
	Metadata  EventMetadata `json:"metadata"`
}

// EventMetadata records provenance for an event.
type EventMetadata struct {
	Source             string           `json:"source"` // voice|photo|manual|seed
	OriginalTranscript string           `json:"original_transcript,omitempty"`
	EnrichmentStatus   EnrichmentStatus `json:"enrichment_status,omitempty"`
}

// EventPayload carries the per-type event body. Exactly the fields relevant
// to the event's Type are populated.
type EventPayload struct {
	// ACCESSION_ENTITY: the entities being added, already carrying their
	// resolved habitat back-reference.
	Entities []Entity `json:"entities,omitempty"`

	// LOG_OBSERVATION: the target entity and the observation to append.
	EntityID    string       `json:"entity_id,omitempty"`
	Observation *Observation `json:"observation,omitempty"`

	// MODIFY_HABITAT: the habitat being created or adjusted. HabitatID is
	// empty when the event creates a new habitat named HabitatName.
	HabitatID   string         `json:"habitat_id,omitempty"`
	HabitatName string         `json:"habitat_name,omitempty"`
	Aquatic     *AquaticParams `json:"aquatic,omitempty"`
	Terrestrial *TerrestrialParams `json:"terrestrial,omitempty"`
}
