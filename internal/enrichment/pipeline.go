package enrichment

import (
	"context"
	"errors"

	"conservatory/internal/logging"
	"conservatory/internal/species"
	"conservatory/internal/types"
)

// ErrNoData reports that every stage missed. The minimal record is still
// persisted so the name does not restart from scratch, but callers should
// treat the enrichment as failed and retryable.
var ErrNoData = errors.New("enrichment found no data")

// Stage names emitted to the progress callback, in pipeline order.
const (
	StageLibrary     = "library"
	StageGBIF        = "gbif"
	StageWikipedia   = "wikipedia"
	StageINaturalist = "inaturalist"
	StageDiscovery   = "discovery"
)

// ProgressFunc receives each stage name as the stage completes.
type ProgressFunc func(stage string)

// TaxonomyProvider resolves a name to canonical taxonomy. Miss is (nil, nil).
type TaxonomyProvider interface {
	MatchByName(ctx context.Context, name string) (*types.Taxonomy, error)
}

// EncyclopediaProvider returns a descriptive summary. Miss is (nil, nil).
type EncyclopediaProvider interface {
	Search(ctx context.Context, query string) (*PageSummary, error)
}

// CommunityProvider returns community names and a photo. Miss is (nil, nil).
type CommunityProvider interface {
	SearchTaxa(ctx context.Context, query string) (*TaxaMatch, error)
}

// NarrativeProvider generates the AI discovery narrative.
type NarrativeProvider interface {
	Generate(ctx context.Context, req DiscoveryRequest) (*types.Discovery, error)
}

// Pipeline assembles a SpeciesRecord by running the five stages in order.
// Every provider is optional; a nil provider skips its stage. Stage failures
// are independent and non-fatal: the final record is the union of whatever
// succeeded, minimally the name itself.
type Pipeline struct {
	dataset      *Dataset
	taxonomy     TaxonomyProvider
	encyclopedia EncyclopediaProvider
	community    CommunityProvider
	discovery    NarrativeProvider
	library      *species.Library
	log          *logging.Logger
}

// NewPipeline wires the stages. library is required; it receives the
// assembled record.
func NewPipeline(dataset *Dataset, taxonomy TaxonomyProvider, encyclopedia EncyclopediaProvider, community CommunityProvider, discovery NarrativeProvider, library *species.Library) *Pipeline {
	return &Pipeline{
		dataset:      dataset,
		taxonomy:     taxonomy,
		encyclopedia: encyclopedia,
		community:    community,
		discovery:    discovery,
		library:      library,
		log:          logging.Get(logging.CategoryEnrichment),
	}
}

// Enrich builds, persists, and returns the record for one species. Context
// cancellation aborts between stages and skips persistence so the caller can
// retry later. When no stage contributes anything the minimal record is
// persisted and returned alongside ErrNoData.
func (p *Pipeline) Enrich(ctx context.Context, commonName, morphVariant string, progress ProgressFunc) (*types.SpeciesRecord, error) {
	emit := func(stage string) {
		if progress != nil {
			progress(stage)
		}
	}
	rec := &types.SpeciesRecord{
		CommonName:   commonName,
		MorphVariant: morphVariant,
	}
	hits := 0

	// Stage 1: local library. Authoritative for details; later stages only
	// fill fields it left empty.
	if p.dataset != nil {
		if entry := p.dataset.Lookup(commonName); entry != nil {
			rec.ScientificName = entry.ScientificName
			rec.Aliases = entry.Aliases
			rec.Enrichment.Details = entry.Details()
			hits++
			p.log.Debug("library hit for %q (%s)", commonName, entry.ID)
		}
	}
	emit(StageLibrary)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queryName := rec.ScientificName
	if queryName == "" {
		queryName = commonName
	}

	// Stage 2: taxonomy registry.
	if p.taxonomy != nil {
		taxonomy, err := p.taxonomy.MatchByName(ctx, queryName)
		switch {
		case err != nil:
			p.log.Warn("taxonomy stage failed for %q: %v", queryName, err)
		case taxonomy != nil:
			rec.Enrichment.Taxonomy = taxonomy
			hits++
			if rec.ScientificName == "" {
				rec.ScientificName = taxonomy.ScientificName
				queryName = taxonomy.ScientificName
			}
		}
	}
	emit(StageGBIF)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3: encyclopedia summary.
	if p.encyclopedia != nil {
		summary, err := p.encyclopedia.Search(ctx, queryName)
		switch {
		case err != nil:
			p.log.Warn("encyclopedia stage failed for %q: %v", queryName, err)
		case summary != nil:
			rec.Enrichment.Summary = summary.Extract
			hits++
		}
	}
	emit(StageWikipedia)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 4: community database.
	if p.community != nil {
		match, err := p.community.SearchTaxa(ctx, queryName)
		switch {
		case err != nil:
			p.log.Warn("community stage failed for %q: %v", queryName, err)
		case match != nil:
			rec.Enrichment.PhotoURL = match.PhotoURL
			hits++
			if rec.ScientificName == "" {
				rec.ScientificName = match.ScientificName
			}
		}
	}
	emit(StageINaturalist)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 5: AI discovery narrative.
	if p.discovery != nil {
		discovery, err := p.discovery.Generate(ctx, DiscoveryRequest{
			CommonName:     commonName,
			ScientificName: rec.ScientificName,
			Taxonomy:       rec.Enrichment.Taxonomy,
			Summary:        rec.Enrichment.Summary,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.log.Warn("discovery stage failed for %q: %v", commonName, err)
		} else {
			rec.Enrichment.Discovery = discovery
			hits++
		}
	}
	emit(StageDiscovery)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.library.Save(ctx, rec)
	if hits == 0 {
		p.log.Warn("all stages missed for %q", commonName)
		return rec, ErrNoData
	}
	return rec, nil
}
