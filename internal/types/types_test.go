package types

import (
	"testing"
	"time"
)

func TestSpeciesKeyFor(t *testing.T) {
	tests := []struct {
		name  string
		morph string
		want  string
	}{
		{"Neon Tetra", "", "neon tetra"},
		{"  Neon Tetra  ", "", "neon tetra"},
		{"Crystal Shrimp", "Red", "crystal shrimp:red"},
		{"Betta", "  Koi  ", "betta:koi"},
		{"BETTA", "KOI", "betta:koi"},
	}
	for _, tt := range tests {
		if got := SpeciesKeyFor(tt.name, tt.morph); got != tt.want {
			t.Errorf("SpeciesKeyFor(%q, %q) = %q, want %q", tt.name, tt.morph, got, tt.want)
		}
	}
}

func TestSpeciesRecordExpired(t *testing.T) {
	now := time.Now()
	fresh := SpeciesRecord{ExpiresAt: now.Add(time.Hour).UnixMilli()}
	if fresh.Expired(now) {
		t.Error("record expiring in an hour reported expired")
	}
	stale := SpeciesRecord{ExpiresAt: now.Add(-time.Hour).UnixMilli()}
	if !stale.Expired(now) {
		t.Error("record expired an hour ago reported fresh")
	}
	unset := SpeciesRecord{}
	if unset.Expired(now) {
		t.Error("record with no expiry reported expired")
	}
}

func TestEntityTraitLookup(t *testing.T) {
	e := Entity{
		Traits: []Trait{
			NewAquaticTrait(Float64Ptr(7.2), Float64Ptr(76)),
			{Kind: TraitVertebrate, Vertebrate: &VertebrateParams{Diet: "omnivore"}},
		},
	}

	aq := e.Aquatic()
	if aq == nil || aq.PH == nil || *aq.PH != 7.2 {
		t.Fatalf("Aquatic() = %+v, want pH 7.2", aq)
	}
	if e.Trait(TraitColony) != nil {
		t.Error("Trait(COLONY) should be nil for an entity without that trait")
	}
}

func TestObservationsByLabelOrdering(t *testing.T) {
	e := Entity{
		Observations: []Observation{
			{Timestamp: 300, Label: "pH", Value: 7.4},
			{Timestamp: 100, Label: "pH", Value: 7.0},
			{Timestamp: 200, Label: "temp", Value: 76},
			{Timestamp: 200, Label: "pH", Value: 7.2},
		},
	}

	obs := e.ObservationsByLabel("pH")
	if len(obs) != 3 {
		t.Fatalf("got %d pH observations, want 3", len(obs))
	}
	for i := 1; i < len(obs); i++ {
		if obs[i].Timestamp < obs[i-1].Timestamp {
			t.Fatalf("observations out of order: %v", obs)
		}
	}

	latest := e.LatestObservation("pH")
	if latest == nil || latest.Value != 7.4 {
		t.Errorf("LatestObservation = %+v, want value 7.4", latest)
	}
	if e.LatestObservation("salinity") != nil {
		t.Error("LatestObservation for unknown label should be nil")
	}
}

func TestSpeciesKeyFallback(t *testing.T) {
	named := Entity{Name: "Neon Tetra", ScientificName: "Paracheirodon innesi"}
	if got := named.SpeciesKey(); got != "Paracheirodon innesi" {
		t.Errorf("SpeciesKey = %q, want scientific name", got)
	}
	unnamed := Entity{Name: "Mystery Snail"}
	if got := unnamed.SpeciesKey(); got != "Mystery Snail" {
		t.Errorf("SpeciesKey = %q, want common name fallback", got)
	}
}

func TestCoerceMillis(t *testing.T) {
	ref := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want int64
	}{
		{"native millis", float64(ref.UnixMilli()), ref.UnixMilli()},
		{"epoch seconds", float64(ref.Unix()), ref.Unix() * 1000},
		{"rfc3339", ref.Format(time.RFC3339), ref.UnixMilli()},
		{"time value", ref, ref.UnixMilli()},
		{"garbage", "not a time", 0},
		{"nil", nil, 0},
	}
	for _, tt := range tests {
		if got := CoerceMillis(tt.in); got != tt.want {
			t.Errorf("%s: CoerceMillis(%v) = %d, want %d", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestCoerceFloat(t *testing.T) {
	if v, ok := CoerceFloat(float64(7.5)); !ok || v != 7.5 {
		t.Errorf("CoerceFloat(7.5) = %v, %v", v, ok)
	}
	if v, ok := CoerceFloat(int64(3)); !ok || v != 3 {
		t.Errorf("CoerceFloat(int64) = %v, %v", v, ok)
	}
	if _, ok := CoerceFloat("7.5"); ok {
		t.Error("CoerceFloat should not parse strings")
	}
}
