// Package world maintains the live entity roster: a projection folded from
// the append-only domain event journal, plus fuzzy name resolution over it.
package world

import (
	"sort"

	"conservatory/internal/types"
)

// Projection is the entity-map snapshot derived from the event log. It is
// rebuilt by Replay and advanced incrementally by Apply; both are pure with
// respect to everything but the snapshot itself, so replay is testable
// independent of any transport or store.
type Projection struct {
	entities map[string]*types.Entity
}

// NewProjection returns an empty snapshot.
func NewProjection() *Projection {
	return &Projection{entities: make(map[string]*types.Entity)}
}

// Replay folds an ordered event log into a fresh snapshot. Events must be
// in chronological order; the journal guarantees that.
func Replay(events []types.DomainEvent) *Projection {
	p := NewProjection()
	for _, ev := range events {
		p.Apply(ev)
	}
	return p
}

// Apply advances the snapshot by one event. Unknown event types and events
// referencing unknown entities are ignored rather than failing the fold; a
// journal written by a newer version must not brick an older reader.
func (p *Projection) Apply(ev types.DomainEvent) {
	switch ev.Type {
	case types.EventAccessionEntity:
		for i := range ev.Payload.Entities {
			e := ev.Payload.Entities[i] // copy
			if e.ID == "" {
				continue
			}
			if e.CreatedAt == 0 {
				e.CreatedAt = ev.Timestamp
			}
			e.UpdatedAt = ev.Timestamp
			if e.EnrichmentStatus == "" {
				e.EnrichmentStatus = types.EnrichmentNone
			}
			p.entities[e.ID] = &e
		}

	case types.EventLogObservation:
		e, ok := p.entities[ev.Payload.EntityID]
		if !ok || ev.Payload.Observation == nil {
			return
		}
		obs := *ev.Payload.Observation
		if obs.Timestamp == 0 {
			obs.Timestamp = ev.Timestamp
		}
		e.Observations = append(e.Observations, obs)
		e.UpdatedAt = ev.Timestamp

	case types.EventModifyHabitat:
		p.applyModifyHabitat(ev)
	}
}

func (p *Projection) applyModifyHabitat(ev types.DomainEvent) {
	var habitat *types.Entity
	if ev.Payload.HabitatID != "" {
		habitat = p.entities[ev.Payload.HabitatID]
	}
	if habitat == nil {
		// Creation: the event names the habitat and carries its id in
		// HabitatID (or the id was minted by the committer).
		id := ev.Payload.HabitatID
		if id == "" {
			return
		}
		habitat = &types.Entity{
			ID:               id,
			Name:             ev.Payload.HabitatName,
			Type:             types.EntityHabitat,
			EnrichmentStatus: types.EnrichmentNone,
			CreatedAt:        ev.Timestamp,
		}
		p.entities[id] = habitat
	}
	if ev.Payload.HabitatName != "" {
		habitat.Name = ev.Payload.HabitatName
	}
	if ev.Payload.Aquatic != nil {
		setTrait(habitat, types.Trait{Kind: types.TraitAquatic, Aquatic: ev.Payload.Aquatic})
	}
	if ev.Payload.Terrestrial != nil {
		setTrait(habitat, types.Trait{Kind: types.TraitTerrestrial, Terrestrial: ev.Payload.Terrestrial})
	}
	habitat.UpdatedAt = ev.Timestamp
}

// setTrait replaces the entity's trait of the same kind, preserving the
// at-most-one-per-kind invariant.
func setTrait(e *types.Entity, t types.Trait) {
	for i := range e.Traits {
		if e.Traits[i].Kind == t.Kind {
			e.Traits[i] = t
			return
		}
	}
	e.Traits = append(e.Traits, t)
}

// Get returns the entity with the given id, or nil.
func (p *Projection) Get(id string) *types.Entity {
	return p.entities[id]
}

// All returns every entity, ordered by creation time then id for
// deterministic iteration.
func (p *Projection) All() []*types.Entity {
	out := make([]*types.Entity, 0, len(p.entities))
	for _, e := range p.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Habitats returns every HABITAT entity.
func (p *Projection) Habitats() []*types.Entity {
	var out []*types.Entity
	for _, e := range p.All() {
		if e.Type == types.EntityHabitat {
			out = append(out, e)
		}
	}
	return out
}

// Inhabitants returns the non-habitat entities whose HabitatID references
// the given habitat. Entities whose back-reference points at a missing
// habitat are roaming and belong to no habitat's census.
func (p *Projection) Inhabitants(habitatID string) []*types.Entity {
	if _, ok := p.entities[habitatID]; !ok {
		return nil
	}
	var out []*types.Entity
	for _, e := range p.All() {
		if e.Type != types.EntityHabitat && e.HabitatID == habitatID {
			out = append(out, e)
		}
	}
	return out
}

// SetEnrichmentStatus records an enrichment transition on the snapshot.
// Enrichment progress is operational state, not history; it deliberately
// does not generate journal events.
func (p *Projection) SetEnrichmentStatus(entityID string, status types.EnrichmentStatus) bool {
	e, ok := p.entities[entityID]
	if !ok {
		return false
	}
	e.EnrichmentStatus = status
	e.UpdatedAt = types.NowMillis()
	return true
}

// Len returns the number of tracked entities.
func (p *Projection) Len() int { return len(p.entities) }
