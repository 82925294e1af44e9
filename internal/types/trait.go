package types

// TraitKind discriminates the Trait tagged union.
type TraitKind string

// Trait kind constants.
const (
	TraitAquatic        TraitKind = "AQUATIC"
	TraitTerrestrial    TraitKind = "TERRESTRIAL"
	TraitPhotosynthetic TraitKind = "PHOTOSYNTHETIC"
	TraitInvertebrate   TraitKind = "INVERTEBRATE"
	TraitVertebrate     TraitKind = "VERTEBRATE"
	TraitColony         TraitKind = "COLONY"
)

// Trait is a tagged union: exactly the parameter record matching Kind is
// non-nil. An entity may carry zero or more traits of different kinds but
// at most one of each kind; that uniqueness is enforced by callers, not by
// this structure.
type Trait struct {
	Kind TraitKind `json:"kind"`

	Aquatic        *AquaticParams        `json:"aquatic,omitempty"`
	Terrestrial    *TerrestrialParams    `json:"terrestrial,omitempty"`
	Photosynthetic *PhotosyntheticParams `json:"photosynthetic,omitempty"`
	Invertebrate   *InvertebrateParams   `json:"invertebrate,omitempty"`
	Vertebrate     *VertebrateParams     `json:"vertebrate,omitempty"`
	Colony         *ColonyParams         `json:"colony,omitempty"`
}

// AquaticParams holds water chemistry targets. Pointer fields distinguish
// "unset" from zero; an unset pH means the scoring engine falls back to its
// documented defaults.
type AquaticParams struct {
	PH       *float64 `json:"ph,omitempty"`
	TempF    *float64 `json:"temp_f,omitempty"`
	Salinity string   `json:"salinity,omitempty"` // fresh|brackish|marine
}

// TerrestrialParams holds land enclosure parameters.
type TerrestrialParams struct {
	Humidity  *float64 `json:"humidity,omitempty"` // percent
	Substrate string   `json:"substrate,omitempty"`
}

// PhotosyntheticParams holds plant care parameters.
type PhotosyntheticParams struct {
	LightReq   string `json:"light_req,omitempty"` // low|medium|high
	CO2        bool   `json:"co2,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Placement  string `json:"placement,omitempty"` // foreground|midground|background|float
}

// InvertebrateParams holds invertebrate-specific parameters.
type InvertebrateParams struct {
	Molting bool `json:"molting,omitempty"`
	Colony  bool `json:"colony,omitempty"`
}

// VertebrateParams holds vertebrate-specific parameters.
type VertebrateParams struct {
	Diet string `json:"diet,omitempty"` // omnivore|carnivore|herbivore
}

// ColonyParams holds colony census parameters.
type ColonyParams struct {
	EstimatedCount int  `json:"estimated_count,omitempty"`
	Stable         bool `json:"stable,omitempty"`
}

// NewAquaticTrait is a convenience constructor used by tests and seeding.
func NewAquaticTrait(ph, tempF *float64) Trait {
	return Trait{Kind: TraitAquatic, Aquatic: &AquaticParams{PH: ph, TempF: tempF}}
}

// Float64Ptr returns a pointer to v. Handy for optional trait parameters.
func Float64Ptr(v float64) *float64 { return &v }
