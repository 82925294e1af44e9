// Package session orchestrates the voice-log loop: transcript in, parsed
// intent staged as a pending action, user edits, commit to the journal, and
// enrichment queued for anything new.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"conservatory/internal/logging"
	"conservatory/internal/perception"
	"conservatory/internal/store"
	"conservatory/internal/types"
	"conservatory/internal/world"
)

// IntentParser is the transducer seen by the session.
type IntentParser interface {
	Parse(ctx context.Context, transcript string, roster []perception.RosterEntry) (*perception.ParsedIntent, error)
}

// EnrichmentScheduler queues a committed entity for enrichment.
type EnrichmentScheduler interface {
	Enqueue(entityID string) error
}

// Session holds the live projection and the single in-flight pending action.
// At most one pending action exists at a time; it must be committed or
// discarded before the next transcript is processed.
type Session struct {
	mu sync.Mutex

	journal    store.Journal
	projection *world.Projection
	parser     IntentParser
	scheduler  EnrichmentScheduler // optional
	pending    *types.PendingAction

	now func() int64
	log *logging.Logger
}

// NewSession replays the journal into a fresh projection.
func NewSession(ctx context.Context, journal store.Journal, parser IntentParser, scheduler EnrichmentScheduler) (*Session, error) {
	events, err := journal.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to replay journal: %w", err)
	}
	s := &Session{
		journal:    journal,
		projection: world.Replay(events),
		parser:     parser,
		scheduler:  scheduler,
		now:        types.NowMillis,
		log:        logging.Get(logging.CategorySession),
	}
	s.log.Info("session started: %d events replayed, %d entities", len(events), s.projection.Len())
	return s, nil
}

// Projection exposes the live entity view.
func (s *Session) Projection() *world.Projection { return s.projection }

// SetScheduler wires the enrichment queue after construction. The queue
// needs the session's projection as its entity index, so the two are built
// in sequence and joined here.
func (s *Session) SetScheduler(scheduler EnrichmentScheduler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduler = scheduler
}

// Pending returns the current pending action, or nil.
func (s *Session) Pending() *types.PendingAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// ProcessTranscript parses one transcript and stages it as the pending
// action. Fails if an action is already staged. Ambiguity is not an error:
// the returned action carries STRATEGY_REQUIRED and advice instead.
func (s *Session) ProcessTranscript(ctx context.Context, transcript string) (*types.PendingAction, error) {
	s.mu.Lock()
	if s.pending != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("a pending action already exists; commit or discard it first")
	}
	s.pending = &types.PendingAction{Status: types.PendingAnalyzing, Transcript: transcript}
	s.mu.Unlock()

	roster := s.buildRoster()
	parsed, err := s.parser.Parse(ctx, transcript, roster)
	if err != nil {
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
		return nil, err
	}

	action := s.stage(transcript, parsed)
	s.mu.Lock()
	s.pending = action
	s.mu.Unlock()
	s.log.Info("staged %s action (%s) for %q", action.Intent, action.Status, transcript)
	return action, nil
}

// stage turns a parsed intent into a pending action, resolving references
// against the projection.
func (s *Session) stage(transcript string, parsed *perception.ParsedIntent) *types.PendingAction {
	action := &types.PendingAction{
		Status:         types.PendingConfirming,
		Transcript:     transcript,
		Intent:         parsed.Intent,
		Candidates:     parsed.Candidates,
		Observation:    parsed.Observation,
		Habitat:        parsed.Habitat,
		AIReasoning:    parsed.Reasoning,
		IntentStrategy: parsed.IntentStrategy,
	}
	if parsed.Intent == "" {
		action.Status = types.PendingError
		action.Error = "could not understand the transcript"
		return action
	}

	if parsed.TargetHabitat != "" {
		res := world.Resolve(parsed.TargetHabitat, s.projection.Habitats())
		switch {
		case res.Match != nil:
			action.TargetHabitatID = res.Match.ID
			action.TargetHabitatName = res.Match.Name
		case res.Ambiguous:
			action.IsAmbiguous = true
			action.Status = types.PendingStrategyRequired
			if action.IntentStrategy == "" {
				action.IntentStrategy = fmt.Sprintf("several habitats match %q; pick one", parsed.TargetHabitat)
			}
		default:
			// No such habitat. For MODIFY_HABITAT that means "create it";
			// for accession the name is kept for the user to fix.
			action.TargetHabitatName = parsed.TargetHabitat
		}
	}

	if action.Intent == types.IntentLogObservation && action.Observation != nil && action.Observation.EntityRef != "" {
		res := world.Resolve(action.Observation.EntityRef, s.projection.All())
		switch {
		case res.Match != nil:
			action.Observation.EntityID = res.Match.ID
		case res.Ambiguous:
			action.IsAmbiguous = true
			action.Status = types.PendingStrategyRequired
			if action.IntentStrategy == "" {
				action.IntentStrategy = fmt.Sprintf("several entities match %q; pick one", action.Observation.EntityRef)
			}
		default:
			action.Status = types.PendingError
			action.Error = fmt.Sprintf("no entity matches %q", action.Observation.EntityRef)
		}
	}
	return action
}

// UpdateSlot applies one typed edit to the staged action. Repointing the
// target habitat or observation entity clears a prior ambiguity.
func (s *Session) UpdateSlot(update types.SlotUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return fmt.Errorf("no pending action")
	}
	p := s.pending

	switch u := update.(type) {
	case types.SetCandidateQuantity:
		if u.Index < 0 || u.Index >= len(p.Candidates) {
			return fmt.Errorf("candidate index %d out of range", u.Index)
		}
		if u.Quantity <= 0 {
			return fmt.Errorf("quantity must be positive")
		}
		p.Candidates[u.Index].Quantity = u.Quantity

	case types.SetCandidateName:
		if u.Index < 0 || u.Index >= len(p.Candidates) {
			return fmt.Errorf("candidate index %d out of range", u.Index)
		}
		if strings.TrimSpace(u.Name) == "" {
			return fmt.Errorf("name must not be empty")
		}
		p.Candidates[u.Index].Name = u.Name

	case types.SetTargetHabitat:
		p.TargetHabitatID = u.ID
		p.TargetHabitatName = u.Name
		s.clearAmbiguity(p)

	case types.SetObservationValue:
		if p.Observation == nil {
			return fmt.Errorf("no staged observation")
		}
		p.Observation.Value = u.Value

	case types.SetObservationLabel:
		if p.Observation == nil {
			return fmt.Errorf("no staged observation")
		}
		p.Observation.Label = u.Label

	case types.SetIntent:
		p.Intent = u.Intent
		if p.Status == types.PendingError {
			p.Error = ""
			p.Status = types.PendingConfirming
		}

	default:
		return fmt.Errorf("unsupported slot update %T", update)
	}
	return nil
}

func (s *Session) clearAmbiguity(p *types.PendingAction) {
	p.IsAmbiguous = false
	if p.Status == types.PendingStrategyRequired {
		p.Status = types.PendingConfirming
	}
}

// Discard drops the staged action without committing.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// Commit turns the staged action into a domain event, appends it to the
// journal, applies it to the projection, and queues enrichment for new
// organisms. The staged action is consumed on success.
func (s *Session) Commit(ctx context.Context) (*types.DomainEvent, error) {
	s.mu.Lock()
	p := s.pending
	if p == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("no pending action")
	}
	if p.Status != types.PendingConfirming {
		s.mu.Unlock()
		return nil, fmt.Errorf("pending action is %s, not ready to commit", p.Status)
	}
	p.Status = types.PendingCommitting
	s.mu.Unlock()

	event, enrichIDs, err := s.buildEvent(p)
	if err != nil {
		s.mu.Lock()
		p.Status = types.PendingError
		p.Error = err.Error()
		s.mu.Unlock()
		return nil, err
	}

	if err := s.journal.AppendEvent(ctx, *event); err != nil {
		s.mu.Lock()
		p.Status = types.PendingError
		p.Error = err.Error()
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	s.projection.Apply(*event)
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()

	for _, id := range enrichIDs {
		if s.scheduler == nil {
			break
		}
		if err := s.scheduler.Enqueue(id); err != nil {
			s.log.Warn("failed to queue enrichment for %s: %v", id, err)
		}
	}
	s.log.Info("committed %s event %s", event.Type, event.EventID)
	return event, nil
}

// buildEvent translates the staged action into its journal event plus the
// entity IDs that need enrichment afterwards.
func (s *Session) buildEvent(p *types.PendingAction) (*types.DomainEvent, []string, error) {
	event := &types.DomainEvent{
		EventID:   uuid.NewString(),
		Timestamp: s.now(),
		Metadata: types.EventMetadata{
			Source:             "voice",
			OriginalTranscript: p.Transcript,
		},
	}

	switch p.Intent {
	case types.IntentAccessionEntity:
		if len(p.Candidates) == 0 {
			return nil, nil, fmt.Errorf("nothing to accession")
		}
		event.Type = types.EventAccessionEntity
		var enrich []string
		for _, c := range p.Candidates {
			entity := types.Entity{
				ID:             uuid.NewString(),
				Name:           c.Name,
				ScientificName: c.ScientificName,
				Type:           c.Type,
				HabitatID:      p.TargetHabitatID,
			}
			if c.Quantity > 1 && c.Type != types.EntityColony {
				entity.Type = colonyOrGroup(c.Type)
				entity.Traits = append(entity.Traits, types.Trait{
					Kind:   types.TraitColony,
					Colony: &types.ColonyParams{EstimatedCount: c.Quantity},
				})
			}
			event.Payload.Entities = append(event.Payload.Entities, entity)
			enrich = append(enrich, entity.ID)
		}
		return event, enrich, nil

	case types.IntentLogObservation:
		if p.Observation == nil || p.Observation.EntityID == "" {
			return nil, nil, fmt.Errorf("observation target unresolved")
		}
		event.Type = types.EventLogObservation
		event.Payload.EntityID = p.Observation.EntityID
		event.Payload.Observation = &types.Observation{
			Timestamp: event.Timestamp,
			Type:      p.Observation.Type,
			Label:     p.Observation.Label,
			Value:     p.Observation.Value,
			Unit:      p.Observation.Unit,
		}
		return event, nil, nil

	case types.IntentModifyHabitat:
		if p.Habitat == nil && p.TargetHabitatID == "" {
			return nil, nil, fmt.Errorf("no habitat changes staged")
		}
		event.Type = types.EventModifyHabitat
		event.Payload.HabitatID = p.TargetHabitatID
		if p.Habitat != nil {
			event.Payload.HabitatName = p.Habitat.Name
			event.Payload.Aquatic = p.Habitat.Aquatic
			event.Payload.Terrestrial = p.Habitat.Terrestrial
		}
		if event.Payload.HabitatName == "" {
			event.Payload.HabitatName = p.TargetHabitatName
		}
		if event.Payload.HabitatID == "" {
			if event.Payload.HabitatName == "" {
				return nil, nil, fmt.Errorf("habitat has neither id nor name")
			}
			// Creation: the committer mints the id so replay stays pure.
			event.Payload.HabitatID = uuid.NewString()
		}
		return event, nil, nil

	case types.IntentQuery:
		return nil, nil, fmt.Errorf("queries are answered from the projection, not committed")

	default:
		return nil, nil, fmt.Errorf("unknown intent %q", p.Intent)
	}
}

// colonyOrGroup maps a multi-quantity candidate to its grouped entity type.
func colonyOrGroup(t types.EntityType) types.EntityType {
	if t == types.EntityPlant {
		return types.EntityPlantGroup
	}
	return types.EntityColony
}

// buildRoster renders the projection for the intent parser.
func (s *Session) buildRoster() []perception.RosterEntry {
	entities := s.projection.All()
	roster := make([]perception.RosterEntry, 0, len(entities))
	for _, e := range entities {
		roster = append(roster, perception.RosterEntry{
			Name:    e.Name,
			Aliases: e.Aliases,
			Type:    e.Type,
		})
	}
	return roster
}
