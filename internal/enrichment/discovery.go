package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"conservatory/internal/logging"
	"conservatory/internal/perception"
	"conservatory/internal/types"
)

// DefaultDiscoveryTimeout bounds one narrative generation. Past it the stage
// is treated as a miss, never as pipeline-fatal.
const DefaultDiscoveryTimeout = 45 * time.Second

const discoverySystemPrompt = `You are a naturalist writing for a home aquarium and terrarium keeper's field journal.
Given a species and whatever context is known about it, write a short scientific narrative:
- mechanism: one striking biological mechanism this species relies on
- evolutionaryAdvantage: why that mechanism was selected for
- synergyNote: how it interacts with a mixed community habitat
Keep each field to two or three sentences. Respond with JSON only.`

// discoverySchema constrains the narrative response.
var discoverySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"mechanism":             map[string]any{"type": "string"},
		"evolutionaryAdvantage": map[string]any{"type": "string"},
		"synergyNote":           map[string]any{"type": "string"},
	},
	"required": []string{"mechanism", "evolutionaryAdvantage", "synergyNote"},
}

// DiscoveryRequest carries the species plus context gathered by earlier
// pipeline stages.
type DiscoveryRequest struct {
	CommonName     string
	ScientificName string
	Taxonomy       *types.Taxonomy
	Summary        string
}

// DiscoveryGenerator runs the AI narrative stage. It is the most expensive
// stage and the only one that retries; failures are logged distinctly so
// quota problems stand out from ordinary provider misses.
type DiscoveryGenerator struct {
	client  perception.LLMClient
	timeout time.Duration
	log     *logging.Logger
}

// NewDiscoveryGenerator creates a generator. A zero timeout uses the default.
func NewDiscoveryGenerator(client perception.LLMClient, timeout time.Duration) *DiscoveryGenerator {
	if timeout <= 0 {
		timeout = DefaultDiscoveryTimeout
	}
	return &DiscoveryGenerator{
		client:  client,
		timeout: timeout,
		log:     logging.Get(logging.CategoryEnrichment),
	}
}

// Generate asks the model for a discovery narrative. One retry on failure;
// the deadline covers both attempts.
func (g *DiscoveryGenerator) Generate(ctx context.Context, req DiscoveryRequest) (*types.Discovery, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := buildDiscoveryPrompt(req)
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		response, err := g.client.CompleteJSON(ctx, discoverySystemPrompt, prompt, discoverySchema)
		if err != nil {
			g.log.Warn("discovery attempt %d failed for %q: %v", attempt+1, req.CommonName, err)
			lastErr = err
			continue
		}
		discovery, err := parseDiscovery(response)
		if err != nil {
			g.log.Warn("discovery attempt %d unparseable for %q: %v", attempt+1, req.CommonName, err)
			lastErr = err
			continue
		}
		return discovery, nil
	}
	return nil, fmt.Errorf("discovery generation failed: %w", lastErr)
}

func buildDiscoveryPrompt(req DiscoveryRequest) string {
	var sb strings.Builder
	sb.WriteString("Species: ")
	sb.WriteString(req.CommonName)
	if req.ScientificName != "" {
		sb.WriteString(" (")
		sb.WriteString(req.ScientificName)
		sb.WriteString(")")
	}
	sb.WriteString("\n")
	if t := req.Taxonomy; t != nil {
		sb.WriteString(fmt.Sprintf("Classification: %s / %s / %s / %s\n", t.Kingdom, t.Phylum, t.Family, t.Genus))
	}
	if req.Summary != "" {
		sb.WriteString("Known context:\n")
		sb.WriteString(req.Summary)
		sb.WriteString("\n")
	}
	return sb.String()
}

func parseDiscovery(response string) (*types.Discovery, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var d types.Discovery
	if err := json.Unmarshal([]byte(response[start:end+1]), &d); err != nil {
		return nil, fmt.Errorf("malformed discovery JSON: %w", err)
	}
	if d.Mechanism == "" && d.EvolutionaryAdvantage == "" && d.SynergyNote == "" {
		return nil, fmt.Errorf("empty discovery narrative")
	}
	return &d, nil
}
