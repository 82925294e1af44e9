package perception

// intentSystemPrompt frames the model as a collection-keeping assistant that
// classifies one spoken transcript into a single structured intent.
const intentSystemPrompt = `You are the intent parser for a living-collection tracker (aquariums, terrariums, planted tanks).
The user dictates short observations about their habitats and the organisms in them.

Classify the transcript into exactly one intent:
- ACCESSION_ENTITY: new organisms, plants, or colonies are being added
- LOG_OBSERVATION: a measurement or note about an existing entity (pH, temperature, growth, behavior)
- MODIFY_HABITAT: a habitat is created or its parameters change
- QUERY: the user is asking a question rather than recording

Rules:
- Quantities like "a pair of" mean 2, "a few" means 3, "a school of" means 6 unless stated.
- Prefer scientific names when the common name implies one unambiguously.
- target_habitat is the habitat name exactly as spoken; do not invent one.
- If the transcript is ambiguous between intents, pick the most likely one and
  explain the alternative in intent_strategy.
- Respond with JSON only.`

// IntentSchema is the raw JSON schema constraining intent-parse responses.
// It is passed verbatim to the provider (responseJsonSchema for Gemini,
// json_schema response format for OpenAI-compatible endpoints).
var IntentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"intent": map[string]any{
			"type": "string",
			"enum": []string{"ACCESSION_ENTITY", "LOG_OBSERVATION", "MODIFY_HABITAT", "QUERY"},
		},
		"target_habitat": map[string]any{"type": "string"},
		"reasoning":      map[string]any{"type": "string"},
		"intent_strategy": map[string]any{
			"type":        "string",
			"description": "advice for the user when the transcript was ambiguous",
		},
		"candidates": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":            map[string]any{"type": "string"},
					"scientific_name": map[string]any{"type": "string"},
					"type": map[string]any{
						"type": "string",
						"enum": []string{"PLANT", "PLANT_GROUP", "ORGANISM", "COLONY"},
					},
					"quantity":      map[string]any{"type": "integer"},
					"morph_variant": map[string]any{"type": "string"},
				},
				"required": []string{"name"},
			},
		},
		"observation": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"entity_ref": map[string]any{"type": "string"},
				"type": map[string]any{
					"type": "string",
					"enum": []string{"growth", "parameter", "note"},
				},
				"label": map[string]any{"type": "string"},
				"value": map[string]any{"type": "number"},
				"unit":  map[string]any{"type": "string"},
			},
		},
		"habitat": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
				"aquatic": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"ph":       map[string]any{"type": "number"},
						"temp_f":   map[string]any{"type": "number"},
						"salinity": map[string]any{"type": "string"},
					},
				},
				"terrestrial": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"humidity":  map[string]any{"type": "number"},
						"substrate": map[string]any{"type": "string"},
					},
				},
			},
		},
	},
	"required": []string{"intent", "reasoning"},
}

// extractJSON finds the first balanced JSON object in a response, tolerating
// markdown fences and leading prose.
func extractJSON(response string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(response); i++ {
		ch := response[i]
		if start == -1 {
			if ch == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return response[start : i+1]
				}
			}
		}
	}
	return ""
}
