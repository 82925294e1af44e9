package ecosystem

import (
	"strings"
	"testing"
	"time"

	"conservatory/internal/types"
)

func aquaticHabitat(ph float64, updatedAt int64) *types.Entity {
	return &types.Entity{
		ID:        "h1",
		Name:      "The Shallows",
		Type:      types.EntityHabitat,
		UpdatedAt: updatedAt,
		Traits:    []types.Trait{types.NewAquaticTrait(types.Float64Ptr(ph), nil)},
	}
}

func organism(name, scientific string) *types.Entity {
	return &types.Entity{Name: name, ScientificName: scientific, Type: types.EntityOrganism}
}

func TestHabitatHealthBaselineScore(t *testing.T) {
	now := time.Now()
	habitat := aquaticHabitat(7.0, now.UnixMilli())
	inhabitants := []*types.Entity{
		organism("Neon Tetra", "Paracheirodon innesi"),
		organism("Otocinclus", "Otocinclus vittatus"),
	}

	report := CalculateHabitatHealth(habitat, inhabitants, now)

	// biodiversity 10 + no-data stability 30 + fresh recency 20
	if report.Factors.Biodiversity != 10 {
		t.Errorf("biodiversity = %v, want 10", report.Factors.Biodiversity)
	}
	if report.Factors.Stability != 30 {
		t.Errorf("stability = %v, want 30 (no-data default)", report.Factors.Stability)
	}
	if report.Factors.Recency != 20 {
		t.Errorf("recency = %v, want 20", report.Factors.Recency)
	}
	if report.Score != 60 {
		t.Errorf("score = %d, want 60", report.Score)
	}
}

func TestHabitatHealthPHDrift(t *testing.T) {
	now := time.Now()
	habitat := aquaticHabitat(7.0, now.UnixMilli())
	habitat.Observations = []types.Observation{
		{Timestamp: now.UnixMilli(), Type: types.ObservationParameter, Label: "pH", Value: 8.0},
	}
	inhabitants := []*types.Entity{
		organism("Neon Tetra", "Paracheirodon innesi"),
		organism("Otocinclus", "Otocinclus vittatus"),
	}

	report := CalculateHabitatHealth(habitat, inhabitants, now)
	if report.Factors.Stability != 30 {
		t.Errorf("stability = %v, want 30 (40 - 1.0*10)", report.Factors.Stability)
	}
	if report.Score != 60 {
		t.Errorf("score = %d, want 60", report.Score)
	}
}

func TestHabitatHealthRecencyDecay(t *testing.T) {
	now := time.Now()
	inhabitants := []*types.Entity{
		organism("Neon Tetra", "Paracheirodon innesi"),
		organism("Otocinclus", "Otocinclus vittatus"),
	}

	fresh := CalculateHabitatHealth(aquaticHabitat(7.0, now.UnixMilli()), inhabitants, now)

	stale := CalculateHabitatHealth(
		aquaticHabitat(7.0, now.Add(-31*24*time.Hour).UnixMilli()), inhabitants, now)

	if stale.Factors.Recency != 5 {
		t.Errorf("31-day recency = %v, want 5", stale.Factors.Recency)
	}
	if stale.Score >= fresh.Score {
		t.Errorf("stale score %d should be below fresh score %d", stale.Score, fresh.Score)
	}
}

func TestHabitatHealthRecencyBands(t *testing.T) {
	now := time.Now()
	tests := []struct {
		age  time.Duration
		want float64
	}{
		{12 * time.Hour, 20},
		{3 * 24 * time.Hour, 15},
		{20 * 24 * time.Hour, 10},
		{45 * 24 * time.Hour, 5},
	}
	for _, tt := range tests {
		h := aquaticHabitat(7.0, now.Add(-tt.age).UnixMilli())
		got := CalculateHabitatHealth(h, nil, now).Factors.Recency
		if got != tt.want {
			t.Errorf("recency after %v = %v, want %v", tt.age, got, tt.want)
		}
	}
}

func TestHabitatHealthBiodiversityCap(t *testing.T) {
	now := time.Now()
	var crowd []*types.Entity
	for i := 0; i < 12; i++ {
		crowd = append(crowd, organism(string(rune('a'+i)), ""))
	}
	report := CalculateHabitatHealth(aquaticHabitat(7.0, now.UnixMilli()), crowd, now)
	if report.Factors.Biodiversity != 40 {
		t.Errorf("biodiversity = %v, want capped at 40", report.Factors.Biodiversity)
	}
}

func TestHabitatHealthDuplicateSpeciesCountOnce(t *testing.T) {
	now := time.Now()
	school := []*types.Entity{
		organism("Neon Tetra", "Paracheirodon innesi"),
		organism("Neon", "Paracheirodon innesi"), // same species, different label
	}
	report := CalculateHabitatHealth(aquaticHabitat(7.0, now.UnixMilli()), school, now)
	if report.Factors.Biodiversity != 5 {
		t.Errorf("biodiversity = %v, want 5 for one unique species", report.Factors.Biodiversity)
	}
}

func aquaticEntity(name string, ph *float64, temp *float64) *types.Entity {
	e := &types.Entity{Name: name, Type: types.EntityOrganism}
	if ph != nil || temp != nil {
		e.Traits = []types.Trait{types.NewAquaticTrait(ph, temp)}
	}
	return e
}

func TestCheckCompatibilityPHConflict(t *testing.T) {
	a := aquaticEntity("Chili Rasbora", types.Float64Ptr(6.0), nil)
	b := aquaticEntity("African Cichlid", types.Float64Ptr(8.5), nil)

	got := CheckCompatibility(a, b)
	if got.Compatible {
		t.Error("2.5 pH gap should be incompatible")
	}
	if !strings.Contains(got.Reason, "pH") {
		t.Errorf("reason %q should mention pH", got.Reason)
	}
}

func TestCheckCompatibilityTempConflict(t *testing.T) {
	a := aquaticEntity("Discus", types.Float64Ptr(6.8), types.Float64Ptr(86))
	b := aquaticEntity("White Cloud", types.Float64Ptr(7.0), types.Float64Ptr(64))

	got := CheckCompatibility(a, b)
	if got.Compatible {
		t.Error("22°F gap should be incompatible")
	}
	if !strings.Contains(strings.ToLower(got.Reason), "temperature") {
		t.Errorf("reason %q should mention temperature", got.Reason)
	}
}

func TestCheckCompatibilityInsufficientData(t *testing.T) {
	a := aquaticEntity("Mystery Snail", nil, nil)
	b := aquaticEntity("Neon Tetra", types.Float64Ptr(6.5), nil)

	got := CheckCompatibility(a, b)
	if !got.Compatible || got.Reason != "insufficient data" {
		t.Errorf("missing pH should be compatible with insufficient data, got %+v", got)
	}
}

func TestCheckCompatibilityPHCheckedBeforeTemp(t *testing.T) {
	// Both pH and temp are out of range; the reason must be the pH one.
	a := aquaticEntity("A", types.Float64Ptr(6.0), types.Float64Ptr(60))
	b := aquaticEntity("B", types.Float64Ptr(8.0), types.Float64Ptr(85))

	got := CheckCompatibility(a, b)
	if got.Compatible || !strings.Contains(got.Reason, "pH") {
		t.Errorf("pH must be reported first: %+v", got)
	}
}

func TestCheckCompatibilitySymmetry(t *testing.T) {
	entities := []*types.Entity{
		aquaticEntity("A", types.Float64Ptr(6.0), types.Float64Ptr(72)),
		aquaticEntity("B", types.Float64Ptr(8.0), types.Float64Ptr(72)),
		aquaticEntity("C", types.Float64Ptr(7.0), types.Float64Ptr(85)),
		aquaticEntity("D", nil, nil),
		aquaticEntity("E", types.Float64Ptr(7.2), nil),
	}
	for _, a := range entities {
		for _, b := range entities {
			ab := CheckCompatibility(a, b).Compatible
			ba := CheckCompatibility(b, a).Compatible
			if ab != ba {
				t.Errorf("asymmetric verdict for %s/%s: %v vs %v", a.Name, b.Name, ab, ba)
			}
		}
	}
}

func obs(ts int64, label string, value float64) types.Observation {
	return types.Observation{Timestamp: ts, Type: types.ObservationParameter, Label: label, Value: value}
}

func TestParameterTrend(t *testing.T) {
	tests := []struct {
		name  string
		obs   []types.Observation
		label string
		want  Trend
	}{
		{"too few", []types.Observation{obs(1, "pH", 7.0)}, "pH", TrendUnknown},
		{"no matches", []types.Observation{obs(1, "temp", 76), obs(2, "temp", 77)}, "pH", TrendUnknown},
		{"rising pH", []types.Observation{obs(1, "pH", 7.0), obs(2, "pH", 7.5)}, "pH", TrendIncreasing},
		{"falling pH", []types.Observation{obs(1, "pH", 7.5), obs(2, "pH", 7.0)}, "pH", TrendDecreasing},
		{"stable pH within threshold", []types.Observation{obs(1, "pH", 7.0), obs(2, "pH", 7.08)}, "pH", TrendStable},
		{"temp threshold wider", []types.Observation{obs(1, "temp", 76), obs(2, "temp", 76.9)}, "temp", TrendStable},
		{"default threshold", []types.Observation{obs(1, "nitrate", 10), obs(2, "nitrate", 10.4)}, "nitrate", TrendStable},
		{"default threshold exceeded", []types.Observation{obs(1, "nitrate", 10), obs(2, "nitrate", 11)}, "nitrate", TrendIncreasing},
	}
	for _, tt := range tests {
		if got := CalculateParameterTrend(tt.obs, tt.label); got != tt.want {
			t.Errorf("%s: trend = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestParameterTrendWindowIsFive(t *testing.T) {
	// Old spike outside the 5-observation window must not affect the trend.
	observations := []types.Observation{
		obs(1, "pH", 9.0), // outside window
		obs(2, "pH", 7.0),
		obs(3, "pH", 7.0),
		obs(4, "pH", 7.0),
		obs(5, "pH", 7.0),
		obs(6, "pH", 7.05),
	}
	if got := CalculateParameterTrend(observations, "pH"); got != TrendStable {
		t.Errorf("trend = %q, want stable over the recent window", got)
	}
}

func record(name string, phMin, phMax, tempMin, tempMax float64) *types.SpeciesRecord {
	return &types.SpeciesRecord{
		CommonName: name,
		Enrichment: types.EnrichmentData{Details: &types.SpeciesDetails{
			PHMin: phMin, PHMax: phMax, TempMinF: tempMin, TempMaxF: tempMax,
		}},
	}
}

func TestFindCompatibleTankmates(t *testing.T) {
	entity := aquaticEntity("Neon Tetra", types.Float64Ptr(6.8), types.Float64Ptr(76))

	records := []*types.SpeciesRecord{
		record("Neon Tetra", 6.0, 7.0, 72, 78),      // self, excluded
		record("Otocinclus", 6.5, 7.5, 72, 79),      // match
		record("African Cichlid", 7.8, 8.6, 76, 82), // pH too far
		record("White Cloud", 6.5, 7.5, 60, 66),     // temp too far
		record("Ember Tetra", 6.0, 7.0, 73, 84),     // match
	}

	got := FindCompatibleTankmates(entity, records)
	if len(got) != 2 {
		t.Fatalf("got %d tankmates, want 2: %+v", len(got), got)
	}
	names := []string{got[0].CommonName, got[1].CommonName}
	if names[0] != "Otocinclus" || names[1] != "Ember Tetra" {
		t.Errorf("tankmates = %v", names)
	}
}

func TestFindCompatibleTankmatesLimit(t *testing.T) {
	entity := aquaticEntity("Neon Tetra", types.Float64Ptr(7.0), nil)
	var records []*types.SpeciesRecord
	for i := 0; i < 10; i++ {
		records = append(records, record(string(rune('a'+i)), 6.5, 7.5, 70, 80))
	}
	if got := FindCompatibleTankmates(entity, records); len(got) != 5 {
		t.Errorf("got %d tankmates, want capped at 5", len(got))
	}
}

func TestFindCompatibleTankmatesNoData(t *testing.T) {
	entity := &types.Entity{Name: "Mystery Snail", Type: types.EntityOrganism}
	if got := FindCompatibleTankmates(entity, []*types.SpeciesRecord{record("X", 6, 8, 70, 80)}); got != nil {
		t.Errorf("entity without pH data should yield nil, got %v", got)
	}
}
