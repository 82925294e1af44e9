package types

import (
	"strings"
	"time"
)

// DefaultSpeciesTTL is how long an enrichment record stays fresh before a
// lookup treats it as a miss and forces re-enrichment.
const DefaultSpeciesTTL = 90 * 24 * time.Hour

// SpeciesRecord is one cached enrichment bundle, keyed by the normalized
// common name plus an optional morph variant. Records expire; a record past
// ExpiresAt must never be served as a cache hit.
type SpeciesRecord struct {
	CompositeKey   string   `json:"composite_key"`
	CommonName     string   `json:"common_name"`
	ScientificName string   `json:"scientific_name,omitempty"`
	MorphVariant   string   `json:"morph_variant,omitempty"`
	Aliases        []string `json:"aliases,omitempty"`

	Enrichment EnrichmentData `json:"enrichment"`

	EnrichedAt int64 `json:"enriched_at"` // epoch millis
	ExpiresAt  int64 `json:"expires_at"`  // epoch millis; EnrichedAt + 90d when unset at save
}

// EnrichmentData is the union of whatever enrichment stages succeeded for a
// species. Fields left empty by a missed stage stay empty.
type EnrichmentData struct {
	Details   *SpeciesDetails `json:"details,omitempty"`   // local library
	Taxonomy  *Taxonomy       `json:"taxonomy,omitempty"`  // taxonomy registry
	Summary   string          `json:"summary,omitempty"`   // encyclopedia extract
	PhotoURL  string          `json:"photo_url,omitempty"` // community database
	Discovery *Discovery      `json:"discovery,omitempty"` // AI narrative

	// Overflow quarantines enrichment fields that did not validate against
	// the modeled schema rather than rejecting the whole bundle.
	Overflow map[string]any `json:"overflow,omitempty"`
}

// SpeciesDetails is the authoritative care record from the bundled local
// library. Later pipeline stages fill gaps but never override these fields.
type SpeciesDetails struct {
	PHMin      float64  `json:"ph_min,omitempty"`
	PHMax      float64  `json:"ph_max,omitempty"`
	TempMinF   float64  `json:"temp_min_f,omitempty"`
	TempMaxF   float64  `json:"temp_max_f,omitempty"`
	AdultSize  string   `json:"adult_size,omitempty"`
	Diet       string   `json:"diet,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
	Traits     []Trait  `json:"traits,omitempty"`
	Images     []string `json:"images,omitempty"`
}

// Taxonomy is the canonical classification returned by the taxonomy
// registry stage.
type Taxonomy struct {
	UsageKey       int64  `json:"usage_key,omitempty"`
	ScientificName string `json:"scientific_name,omitempty"`
	Kingdom        string `json:"kingdom,omitempty"`
	Phylum         string `json:"phylum,omitempty"`
	Order          string `json:"order,omitempty"`
	Family         string `json:"family,omitempty"`
	Genus          string `json:"genus,omitempty"`
}

// Discovery is the AI-generated scientific narrative for a species.
type Discovery struct {
	Mechanism             string `json:"mechanism"`
	EvolutionaryAdvantage string `json:"evolutionaryAdvantage"`
	SynergyNote           string `json:"synergyNote"`
}

// SpeciesKeyFor normalizes a common name and optional morph variant into the
// composite cache key: lowercased, trimmed, joined with ":".
func SpeciesKeyFor(commonName, morphVariant string) string {
	key := strings.ToLower(strings.TrimSpace(commonName))
	if morph := strings.ToLower(strings.TrimSpace(morphVariant)); morph != "" {
		key += ":" + morph
	}
	return key
}

// Expired reports whether the record's TTL has elapsed at the given instant.
func (r *SpeciesRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != 0 && now.UnixMilli() > r.ExpiresAt
}

// TargetPH returns the midpoint of the library pH range, or false when the
// record carries no pH data.
func (r *SpeciesRecord) TargetPH() (float64, bool) {
	d := r.Enrichment.Details
	if d == nil || (d.PHMin == 0 && d.PHMax == 0) {
		return 0, false
	}
	if d.PHMax == 0 {
		return d.PHMin, true
	}
	return (d.PHMin + d.PHMax) / 2, true
}

// TargetTempF returns the midpoint of the library temperature range, or
// false when the record carries no temperature data.
func (r *SpeciesRecord) TargetTempF() (float64, bool) {
	d := r.Enrichment.Details
	if d == nil || (d.TempMinF == 0 && d.TempMaxF == 0) {
		return 0, false
	}
	if d.TempMaxF == 0 {
		return d.TempMinF, true
	}
	return (d.TempMinF + d.TempMaxF) / 2, true
}
