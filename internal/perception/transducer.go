package perception

import (
	"context"
	"fmt"
	"strings"

	"conservatory/internal/logging"
	"conservatory/internal/types"
)

// RosterEntry is one named entity offered to the model as resolution context.
type RosterEntry struct {
	Name    string
	Aliases []string
	Type    types.EntityType
}

// FieldError records one model-output field that failed validation and was
// quarantined instead of aborting the parse.
type FieldError struct {
	Field  string `json:"field"`
	Raw    any    `json:"raw"`
	Reason string `json:"reason"`
}

// ParsedIntent is the structured reading of one transcript. Invalid fields in
// the model's response are dropped into ValidationErrors; a ParsedIntent with
// an empty Intent means the response carried no usable classification.
type ParsedIntent struct {
	Intent        types.IntentType
	TargetHabitat string

	Candidates  []types.CandidateEntity
	Observation *types.ObservationParams
	Habitat     *types.HabitatParams

	Reasoning      string
	IntentStrategy string

	ValidationErrors []FieldError
}

// Transducer turns a spoken transcript plus the current entity roster into a
// ParsedIntent. The LLM proposes; validation here is permissive and never
// rejects a whole response over one bad field.
type Transducer struct {
	client LLMClient
	cache  *IntentCache // nil disables caching
	log    *logging.Logger
}

// NewTransducer creates a transducer. Pass a nil cache to parse every
// transcript fresh.
func NewTransducer(client LLMClient, cache *IntentCache) *Transducer {
	return &Transducer{
		client: client,
		cache:  cache,
		log:    logging.Get(logging.CategoryPerception),
	}
}

// Parse classifies transcript against roster. Cached parses are returned
// without a model call; the cache key covers both the normalized transcript
// and the roster size, so adding an entity invalidates stale readings.
func (t *Transducer) Parse(ctx context.Context, transcript string, roster []RosterEntry) (*ParsedIntent, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("empty transcript")
	}

	var key uint64
	if t.cache != nil {
		key = IntentKey(transcript, len(roster))
		if hit, ok := t.cache.Get(key); ok {
			t.log.Debug("intent cache hit: %q", transcript)
			return hit, nil
		}
	}

	response, err := t.client.CompleteJSON(ctx, intentSystemPrompt, buildIntentPrompt(transcript, roster), IntentSchema)
	if err != nil {
		return nil, fmt.Errorf("intent classification failed: %w", err)
	}

	intent := parseIntentResponse(response)
	if len(intent.ValidationErrors) > 0 {
		t.log.Warn("quarantined %d invalid fields for %q", len(intent.ValidationErrors), transcript)
	}

	if t.cache != nil && intent.Intent != "" {
		t.cache.Set(key, intent)
	}
	return intent, nil
}

// buildIntentPrompt renders the roster and transcript for the model.
func buildIntentPrompt(transcript string, roster []RosterEntry) string {
	var sb strings.Builder
	if len(roster) > 0 {
		sb.WriteString("## Known Entities\n\n")
		for _, e := range roster {
			sb.WriteString("- ")
			sb.WriteString(e.Name)
			if len(e.Aliases) > 0 {
				sb.WriteString(" (aka ")
				sb.WriteString(strings.Join(e.Aliases, ", "))
				sb.WriteString(")")
			}
			if e.Type != "" {
				sb.WriteString(" [")
				sb.WriteString(string(e.Type))
				sb.WriteString("]")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n---\n\n")
	}
	sb.WriteString("## Transcript\n\n")
	sb.WriteString(transcript)
	return sb.String()
}
