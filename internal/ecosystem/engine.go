// Package ecosystem scores habitat health and inter-species compatibility.
// Everything here is pure and synchronous: functions over entities and their
// cached enrichment data, no I/O, no clocks other than the instant passed in.
package ecosystem

import (
	"fmt"
	"math"
	"strings"
	"time"

	"conservatory/internal/types"
)

// Scoring constants. The stability no-data default of 0.75*max is carried
// over from the observed production behavior; treat it as a compatibility
// constant, not a principled choice.
const (
	biodiversityMax     = 40.0
	biodiversityPerSpec = 5.0

	stabilityMax       = 40.0
	stabilityNoDataFrc = 0.75
	stabilityPHPenalty = 10.0 // points lost per unit of pH drift

	defaultTargetPH = 7.0

	recencyFresh = 20.0 // updated within a day
	recencyWeek  = 15.0 // within 7 days
	recencyMonth = 10.0 // within 30 days
	recencyStale = 5.0
)

// HealthFactors breaks a habitat score into its components.
type HealthFactors struct {
	Stability    float64 `json:"stability"`
	Biodiversity float64 `json:"biodiversity"`
	Recency      float64 `json:"recency"`
}

// HealthReport is the result of scoring one habitat.
type HealthReport struct {
	Score   int           `json:"score"` // 0-100
	Factors HealthFactors `json:"factors"`
	Details []string      `json:"details,omitempty"`
}

// CalculateHabitatHealth scores a habitat from its inhabitants' diversity,
// its pH stability against the aquatic target, and how recently it was
// updated.
func CalculateHabitatHealth(habitat *types.Entity, inhabitants []*types.Entity, now time.Time) HealthReport {
	var details []string

	biodiversity := biodiversityFactor(inhabitants)
	details = append(details, fmt.Sprintf("%d unique species", uniqueSpecies(inhabitants)))

	stability, stabilityDetail := stabilityFactor(habitat)
	details = append(details, stabilityDetail)

	recency := recencyFactor(habitat.UpdatedAt, now)

	total := math.Min(100, math.Round(biodiversity+stability+recency))
	return HealthReport{
		Score: int(total),
		Factors: HealthFactors{
			Stability:    stability,
			Biodiversity: biodiversity,
			Recency:      recency,
		},
		Details: details,
	}
}

func uniqueSpecies(inhabitants []*types.Entity) int {
	seen := make(map[string]struct{})
	for _, e := range inhabitants {
		seen[strings.ToLower(e.SpeciesKey())] = struct{}{}
	}
	return len(seen)
}

func biodiversityFactor(inhabitants []*types.Entity) float64 {
	return math.Min(biodiversityMax, float64(uniqueSpecies(inhabitants))*biodiversityPerSpec)
}

// stabilityFactor compares the habitat's latest pH observation against its
// aquatic target. With no pH observation at all the habitat earns the
// no-data default rather than zero or full credit.
func stabilityFactor(habitat *types.Entity) (float64, string) {
	latest := habitat.LatestObservation("pH")
	if latest == nil {
		return stabilityMax * stabilityNoDataFrc, "no pH readings logged"
	}

	target := defaultTargetPH
	if aq := habitat.Aquatic(); aq != nil && aq.PH != nil {
		target = *aq.PH
	}

	drift := math.Abs(latest.Value - target)
	score := math.Max(0, stabilityMax-drift*stabilityPHPenalty)
	return score, fmt.Sprintf("latest pH %.1f against target %.1f", latest.Value, target)
}

func recencyFactor(updatedAtMillis int64, now time.Time) float64 {
	age := now.Sub(time.UnixMilli(updatedAtMillis))
	switch {
	case age < 24*time.Hour:
		return recencyFresh
	case age < 7*24*time.Hour:
		return recencyWeek
	case age < 30*24*time.Hour:
		return recencyMonth
	default:
		return recencyStale
	}
}

// Compatibility is the verdict on housing two species together.
type Compatibility struct {
	Compatible bool   `json:"compatible"`
	Reason     string `json:"reason"`
}

// Compatibility thresholds: pH gap beyond 1.5 or a temperature gap beyond
// 10°F is a hard incompatibility. pH is checked first; temperature only
// when pH passes. The check is symmetric by construction.
const (
	maxPHGap   = 1.5
	maxTempGap = 10.0
)

// CheckCompatibility reads aquatic pH and temperature from both entities.
// Missing pH data on either side is compatible-by-default: an absent
// parameter is not evidence of conflict.
func CheckCompatibility(a, b *types.Entity) Compatibility {
	aqA, aqB := a.Aquatic(), b.Aquatic()
	if aqA == nil || aqA.PH == nil || aqB == nil || aqB.PH == nil {
		return Compatibility{Compatible: true, Reason: "insufficient data"}
	}

	if gap := math.Abs(*aqA.PH - *aqB.PH); gap > maxPHGap {
		return Compatibility{
			Compatible: false,
			Reason:     fmt.Sprintf("pH requirements differ by %.1f", gap),
		}
	}

	if aqA.TempF != nil && aqB.TempF != nil {
		if gap := math.Abs(*aqA.TempF - *aqB.TempF); gap > maxTempGap {
			return Compatibility{
				Compatible: false,
				Reason:     fmt.Sprintf("temperature requirements differ by %.0f°F", gap),
			}
		}
	}

	return Compatibility{Compatible: true, Reason: "parameters overlap"}
}

// Trend is the direction of a parameter over its recent window.
type Trend string

// Trend constants.
const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
	TrendUnknown    Trend = "unknown"
)

// trendWindow is how many of the most recent observations the trend looks at.
const trendWindow = 5

// CalculateParameterTrend compares the oldest and newest of the 5 most
// recent observations carrying the label. Fewer than 2 matching
// observations is unknown. The stability threshold is parameter-specific:
// pH 0.1, temp 1.0, anything else 0.5.
func CalculateParameterTrend(observations []types.Observation, label string) Trend {
	var matching []types.Observation
	for _, o := range observations {
		if o.Label == label {
			matching = append(matching, o)
		}
	}
	if len(matching) < 2 {
		return TrendUnknown
	}

	// Order by timestamp, keep the most recent trendWindow.
	for i := 1; i < len(matching); i++ {
		for j := i; j > 0 && matching[j].Timestamp < matching[j-1].Timestamp; j-- {
			matching[j], matching[j-1] = matching[j-1], matching[j]
		}
	}
	if len(matching) > trendWindow {
		matching = matching[len(matching)-trendWindow:]
	}

	delta := matching[len(matching)-1].Value - matching[0].Value
	if math.Abs(delta) <= trendThreshold(label) {
		return TrendStable
	}
	if delta > 0 {
		return TrendIncreasing
	}
	return TrendDecreasing
}

func trendThreshold(label string) float64 {
	switch strings.ToLower(label) {
	case "ph":
		return 0.1
	case "temp", "temperature":
		return 1.0
	default:
		return 0.5
	}
}

// Tankmate matching tolerances, tighter than the hard compatibility limits:
// suggestions should be comfortable, not merely survivable.
const (
	tankmatePHTolerance   = 1.0
	tankmateTempTolerance = 8.0
	tankmateLimit         = 5
)

// FindCompatibleTankmates scans cached library records for up to 5 species
// whose pH target is within 1.0 and temperature target within 8°F of the
// entity's aquatic parameters, excluding records for the entity's own
// species. Returns nil when the entity has no pH data to match against.
func FindCompatibleTankmates(entity *types.Entity, records []*types.SpeciesRecord) []*types.SpeciesRecord {
	aq := entity.Aquatic()
	if aq == nil || aq.PH == nil {
		return nil
	}

	var out []*types.SpeciesRecord
	for _, r := range records {
		if sameSpecies(entity, r) {
			continue
		}
		ph, ok := r.TargetPH()
		if !ok || math.Abs(ph-*aq.PH) > tankmatePHTolerance {
			continue
		}
		if aq.TempF != nil {
			if temp, ok := r.TargetTempF(); ok && math.Abs(temp-*aq.TempF) > tankmateTempTolerance {
				continue
			}
		}
		out = append(out, r)
		if len(out) >= tankmateLimit {
			break
		}
	}
	return out
}

func sameSpecies(entity *types.Entity, r *types.SpeciesRecord) bool {
	return strings.EqualFold(entity.Name, r.CommonName) ||
		(entity.ScientificName != "" && strings.EqualFold(entity.ScientificName, r.ScientificName))
}
