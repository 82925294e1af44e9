package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"conservatory/internal/types"
)

// Both implementations must satisfy the same contract; run the suite
// against each.
func storesUnderTest(t *testing.T) map[string]interface {
	DocStore
	Journal
} {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "conservatory.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]interface {
		DocStore
		Journal
	}{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestDocStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.GetDoc(ctx, "species_cache", "neon tetra"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("miss should return ErrNotFound, got %v", err)
			}

			doc := map[string]any{
				"common_name":     "Neon Tetra",
				"scientific_name": "Paracheirodon innesi",
				"enriched_at":     float64(1700000000000),
			}
			if err := s.SetDoc(ctx, "species_cache", "neon tetra", doc, false); err != nil {
				t.Fatalf("SetDoc: %v", err)
			}

			got, err := s.GetDoc(ctx, "species_cache", "neon tetra")
			if err != nil {
				t.Fatalf("GetDoc: %v", err)
			}
			if got.Data["common_name"] != "Neon Tetra" {
				t.Errorf("common_name = %v", got.Data["common_name"])
			}
			if ms := types.CoerceMillis(got.Data["enriched_at"]); ms != 1700000000000 {
				t.Errorf("enriched_at = %d", ms)
			}
		})
	}
}

func TestDocStoreMerge(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			base := map[string]any{"common_name": "Betta", "morph_variant": "koi"}
			if err := s.SetDoc(ctx, "species_cache", "betta:koi", base, false); err != nil {
				t.Fatal(err)
			}
			patch := map[string]any{"scientific_name": "Betta splendens"}
			if err := s.SetDoc(ctx, "species_cache", "betta:koi", patch, true); err != nil {
				t.Fatal(err)
			}

			got, err := s.GetDoc(ctx, "species_cache", "betta:koi")
			if err != nil {
				t.Fatal(err)
			}
			if got.Data["common_name"] != "Betta" || got.Data["scientific_name"] != "Betta splendens" {
				t.Errorf("merge lost fields: %v", got.Data)
			}

			// merge=false replaces wholesale
			if err := s.SetDoc(ctx, "species_cache", "betta:koi", patch, false); err != nil {
				t.Fatal(err)
			}
			got, _ = s.GetDoc(ctx, "species_cache", "betta:koi")
			if _, ok := got.Data["common_name"]; ok {
				t.Error("replace write kept stale field")
			}
		})
	}
}

func TestDocStoreQuery(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			docs := map[string]map[string]any{
				"neon tetra":    {"common_name": "Neon Tetra", "aliases": []any{"neon", "tetra"}},
				"cardinal":      {"common_name": "Cardinal Tetra", "aliases": []any{"cardinal"}},
				"neon tetra:gx": {"common_name": "Neon Tetra", "aliases": []any{}},
			}
			for k, d := range docs {
				if err := s.SetDoc(ctx, "species_cache", k, d, false); err != nil {
					t.Fatal(err)
				}
			}

			eq, err := s.Query(ctx, "species_cache", "common_name", OpEqual, "neon tetra", 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(eq) != 2 {
				t.Errorf("equality query returned %d docs, want 2", len(eq))
			}

			limited, err := s.Query(ctx, "species_cache", "common_name", OpEqual, "Neon Tetra", 1)
			if err != nil {
				t.Fatal(err)
			}
			if len(limited) != 1 {
				t.Errorf("limit ignored: got %d docs", len(limited))
			}

			contains, err := s.Query(ctx, "species_cache", "aliases", OpContains, "cardinal", 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(contains) != 1 || contains[0].Data["common_name"] != "Cardinal Tetra" {
				t.Errorf("contains query = %v", contains)
			}

			none, err := s.Query(ctx, "species_cache", "common_name", OpEqual, "Pleco", 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(none) != 0 {
				t.Errorf("expected empty result, got %v", none)
			}
		})
	}
}

func TestJournalOrdering(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			events := []types.DomainEvent{
				{EventID: "e2", Type: types.EventLogObservation, Timestamp: 200,
					Payload:  types.EventPayload{EntityID: "tank-1", Observation: &types.Observation{Label: "pH", Value: 7.1, Timestamp: 200}},
					Metadata: types.EventMetadata{Source: "voice", OriginalTranscript: "pH is 7.1"}},
				{EventID: "e1", Type: types.EventModifyHabitat, Timestamp: 100,
					Payload: types.EventPayload{HabitatName: "The Shallows"}},
				{EventID: "e3", Type: types.EventAccessionEntity, Timestamp: 300,
					Payload: types.EventPayload{Entities: []types.Entity{{ID: "f1", Name: "Neon Tetra", Type: types.EntityOrganism}}}},
			}
			for _, ev := range events {
				if err := s.AppendEvent(ctx, ev); err != nil {
					t.Fatalf("AppendEvent: %v", err)
				}
			}

			got, err := s.ListEvents(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 3 {
				t.Fatalf("got %d events, want 3", len(got))
			}
			for i, want := range []string{"e1", "e2", "e3"} {
				if got[i].EventID != want {
					t.Errorf("events[%d] = %s, want %s", i, got[i].EventID, want)
				}
			}
			if got[1].Payload.Observation == nil || got[1].Payload.Observation.Value != 7.1 {
				t.Errorf("observation payload lost: %+v", got[1].Payload)
			}
			if got[1].Metadata.OriginalTranscript != "pH is 7.1" {
				t.Errorf("metadata lost: %+v", got[1].Metadata)
			}
		})
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetDoc(ctx, "species_cache", "guppy", map[string]any{"common_name": "Guppy"}, false); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendEvent(ctx, types.DomainEvent{EventID: "e1", Type: types.EventModifyHabitat, Timestamp: 1}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	if _, err := s2.GetDoc(ctx, "species_cache", "guppy"); err != nil {
		t.Errorf("document lost across reopen: %v", err)
	}
	events, err := s2.ListEvents(ctx)
	if err != nil || len(events) != 1 {
		t.Errorf("journal lost across reopen: %v, %v", events, err)
	}
}
