package enrichment

import (
	"context"
	"errors"
	"testing"

	"conservatory/internal/species"
	"conservatory/internal/store"
	"conservatory/internal/types"
)

type fakeTaxonomy struct {
	result *types.Taxonomy
	err    error
	calls  int
}

func (f *fakeTaxonomy) MatchByName(ctx context.Context, name string) (*types.Taxonomy, error) {
	f.calls++
	return f.result, f.err
}

type fakeEncyclopedia struct {
	result *PageSummary
	err    error
}

func (f *fakeEncyclopedia) Search(ctx context.Context, query string) (*PageSummary, error) {
	return f.result, f.err
}

type fakeCommunity struct {
	result *TaxaMatch
	err    error
}

func (f *fakeCommunity) SearchTaxa(ctx context.Context, query string) (*TaxaMatch, error) {
	return f.result, f.err
}

type fakeNarrative struct {
	result *types.Discovery
	err    error
	block  chan struct{} // when set, wait for ctx before returning
}

func (f *fakeNarrative) Generate(ctx context.Context, req DiscoveryRequest) (*types.Discovery, error) {
	if f.block != nil {
		close(f.block)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.result, f.err
}

func newTestLibrary() *species.Library {
	return species.NewLibrary(store.NewMemoryStore())
}

func TestEnrichUnionOfStages(t *testing.T) {
	dataset := NewDatasetFromEntries(testEntries())
	pipe := NewPipeline(
		dataset,
		&fakeTaxonomy{result: &types.Taxonomy{UsageKey: 1, ScientificName: "Paracheirodon innesi", Genus: "Paracheirodon"}},
		&fakeEncyclopedia{result: &PageSummary{Title: "Neon tetra", Extract: "A small characin."}},
		&fakeCommunity{result: &TaxaMatch{ScientificName: "Paracheirodon innesi", PhotoURL: "https://example.org/p.jpg"}},
		&fakeNarrative{result: &types.Discovery{Mechanism: "iridophores", EvolutionaryAdvantage: "schooling signal", SynergyNote: "peaceful"}},
		newTestLibrary(),
	)

	var stages []string
	rec, err := pipe.Enrich(context.Background(), "Neon Tetra", "", func(s string) { stages = append(stages, s) })
	if err != nil {
		t.Fatal(err)
	}
	if rec.Enrichment.Details == nil || rec.Enrichment.Details.PHMin != 6.0 {
		t.Errorf("details = %+v", rec.Enrichment.Details)
	}
	if rec.Enrichment.Taxonomy == nil || rec.Enrichment.Taxonomy.Genus != "Paracheirodon" {
		t.Errorf("taxonomy = %+v", rec.Enrichment.Taxonomy)
	}
	if rec.Enrichment.Summary != "A small characin." {
		t.Errorf("summary = %q", rec.Enrichment.Summary)
	}
	if rec.Enrichment.PhotoURL == "" {
		t.Error("photo url missing")
	}
	if rec.Enrichment.Discovery == nil || rec.Enrichment.Discovery.Mechanism != "iridophores" {
		t.Errorf("discovery = %+v", rec.Enrichment.Discovery)
	}

	want := []string{StageLibrary, StageGBIF, StageWikipedia, StageINaturalist, StageDiscovery}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v", stages)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stage[%d] = %q, want %q", i, stages[i], want[i])
		}
	}
}

func TestEnrichLibraryDetailsNotOverridden(t *testing.T) {
	// Library hit with details but no discovery; AI succeeds. Final record
	// must have both, details unmodified.
	dataset := NewDatasetFromEntries(testEntries())
	pipe := NewPipeline(
		dataset,
		&fakeTaxonomy{err: errors.New("registry down")},
		&fakeEncyclopedia{err: errors.New("search down")},
		&fakeCommunity{result: &TaxaMatch{ScientificName: "Wrongus fishus"}},
		&fakeNarrative{result: &types.Discovery{Mechanism: "m", EvolutionaryAdvantage: "e", SynergyNote: "s"}},
		newTestLibrary(),
	)

	rec, err := pipe.Enrich(context.Background(), "Neon Tetra", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ScientificName != "Paracheirodon innesi" {
		t.Errorf("library scientific name overridden: %q", rec.ScientificName)
	}
	if rec.Enrichment.Details == nil || rec.Enrichment.Details.Diet != "omnivore" {
		t.Errorf("details = %+v", rec.Enrichment.Details)
	}
	if rec.Enrichment.Discovery == nil {
		t.Error("discovery should fill the gap the library left")
	}
}

func TestEnrichAllMissYieldsMinimalRecord(t *testing.T) {
	lib := newTestLibrary()
	pipe := NewPipeline(
		NewDatasetFromEntries(nil),
		&fakeTaxonomy{},
		&fakeEncyclopedia{err: errors.New("down")},
		&fakeCommunity{},
		&fakeNarrative{err: errors.New("model unavailable")},
		lib,
	)

	rec, err := pipe.Enrich(context.Background(), "Mystery Fish", "", nil)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
	if rec == nil || rec.CommonName != "Mystery Fish" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Enrichment.Details != nil || rec.Enrichment.Discovery != nil {
		t.Errorf("unexpected enrichment: %+v", rec.Enrichment)
	}

	// Even the minimal record is persisted.
	got, err := lib.Get(context.Background(), "Mystery Fish", "")
	if err != nil || got == nil {
		t.Fatalf("minimal record not saved: %v, %v", got, err)
	}
}

func TestEnrichScientificNameDrivesLaterQueries(t *testing.T) {
	taxonomy := &fakeTaxonomy{result: &types.Taxonomy{UsageKey: 7, ScientificName: "Betta splendens"}}
	var wikiQuery string
	pipe := NewPipeline(
		NewDatasetFromEntries(nil),
		taxonomy,
		searchFunc(func(ctx context.Context, q string) (*PageSummary, error) {
			wikiQuery = q
			return nil, nil
		}),
		nil, nil,
		newTestLibrary(),
	)

	rec, err := pipe.Enrich(context.Background(), "Betta", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ScientificName != "Betta splendens" {
		t.Errorf("scientific name = %q", rec.ScientificName)
	}
	if wikiQuery != "Betta splendens" {
		t.Errorf("encyclopedia queried with %q, want canonical name", wikiQuery)
	}
}

type searchFunc func(ctx context.Context, query string) (*PageSummary, error)

func (f searchFunc) Search(ctx context.Context, query string) (*PageSummary, error) {
	return f(ctx, query)
}

func TestEnrichCancelledMidFlight(t *testing.T) {
	lib := newTestLibrary()
	blocker := &fakeNarrative{block: make(chan struct{})}
	pipe := NewPipeline(NewDatasetFromEntries(nil), nil, nil, nil, blocker, lib)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := pipe.Enrich(ctx, "Betta", "", nil)
		errCh <- err
	}()

	<-blocker.block
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}

	// No partial record was persisted.
	if got, _ := lib.Get(context.Background(), "Betta", ""); got != nil {
		t.Errorf("cancelled enrichment persisted a record: %+v", got)
	}
}
