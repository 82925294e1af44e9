package types

// PendingStatus is the lifecycle state of the one in-flight pending action.
type PendingStatus string

// Pending action status constants.
const (
	PendingListening        PendingStatus = "LISTENING"
	PendingAnalyzing        PendingStatus = "ANALYZING"
	PendingConfirming       PendingStatus = "CONFIRMING"
	PendingCommitting       PendingStatus = "COMMITTING"
	PendingStrategyRequired PendingStatus = "STRATEGY_REQUIRED"
	PendingError            PendingStatus = "ERROR"
)

// IntentType classifies what the user asked for.
type IntentType string

// Intent type constants. An empty IntentType means the transducer could not
// classify the transcript.
const (
	IntentAccessionEntity IntentType = "ACCESSION_ENTITY"
	IntentLogObservation  IntentType = "LOG_OBSERVATION"
	IntentModifyHabitat   IntentType = "MODIFY_HABITAT"
	IntentQuery           IntentType = "QUERY"
)

// CandidateEntity is one entity proposed for accession, staged for user
// review before commit.
type CandidateEntity struct {
	Name           string     `json:"name"`
	ScientificName string     `json:"scientific_name,omitempty"`
	Type           EntityType `json:"type"`
	Quantity       int        `json:"quantity"`
	MorphVariant   string     `json:"morph_variant,omitempty"`
}

// ObservationParams are the staged parameters of a LOG_OBSERVATION intent.
type ObservationParams struct {
	EntityRef string          `json:"entity_ref"` // as spoken; resolved at commit
	EntityID  string          `json:"entity_id,omitempty"`
	Type      ObservationType `json:"type"`
	Label     string          `json:"label"`
	Value     float64         `json:"value"`
	Unit      string          `json:"unit,omitempty"`
}

// HabitatParams are the staged parameters of a MODIFY_HABITAT intent.
type HabitatParams struct {
	Name        string             `json:"name,omitempty"`
	Aquatic     *AquaticParams     `json:"aquatic,omitempty"`
	Terrestrial *TerrestrialParams `json:"terrestrial,omitempty"`
}

// PendingAction is the single mutable staging area between a parsed
// transcript and a committed domain event. At most one exists process-wide;
// it is committed or discarded before a new one may be created.
type PendingAction struct {
	Status     PendingStatus `json:"status"`
	Transcript string        `json:"transcript"`
	Intent     IntentType    `json:"intent,omitempty"`

	TargetHabitatID   string `json:"target_habitat_id,omitempty"`
	TargetHabitatName string `json:"target_habitat_name,omitempty"`

	Candidates  []CandidateEntity  `json:"candidates,omitempty"`
	Observation *ObservationParams `json:"observation,omitempty"`
	Habitat     *HabitatParams     `json:"habitat,omitempty"`

	AIReasoning    string `json:"ai_reasoning,omitempty"`
	IsAmbiguous    bool   `json:"is_ambiguous,omitempty"`
	IntentStrategy string `json:"intent_strategy,omitempty"` // advice shown for ambiguous input
	Error          string `json:"error,omitempty"`
}

// SlotUpdate is a typed field edit applied to a PendingAction before commit.
// Each variant names exactly one editable slot; this replaces stringly-typed
// dot-path traversal with compile-time checked updates.
type SlotUpdate interface{ isSlotUpdate() }

// SetCandidateQuantity updates the quantity of candidate Index.
type SetCandidateQuantity struct {
	Index    int
	Quantity int
}

// SetCandidateName renames candidate Index.
type SetCandidateName struct {
	Index int
	Name  string
}

// SetTargetHabitat repoints the action at a different habitat.
type SetTargetHabitat struct {
	ID   string
	Name string
}

// SetObservationValue edits the staged observation's numeric value.
type SetObservationValue struct{ Value float64 }

// SetObservationLabel edits the staged observation's label.
type SetObservationLabel struct{ Label string }

// SetIntent overrides the classified intent.
type SetIntent struct{ Intent IntentType }

func (SetCandidateQuantity) isSlotUpdate() {}
func (SetCandidateName) isSlotUpdate()     {}
func (SetTargetHabitat) isSlotUpdate()     {}
func (SetObservationValue) isSlotUpdate()  {}
func (SetObservationLabel) isSlotUpdate()  {}
func (SetIntent) isSlotUpdate()            {}
