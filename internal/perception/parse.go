package perception

import (
	"encoding/json"
	"fmt"
	"strings"

	"conservatory/internal/types"
)

// parseIntentResponse decodes a model response permissively: every field that
// validates is kept, everything else lands in ValidationErrors. It never
// fails; a completely unusable response yields an empty intent with one
// quarantined entry for the whole body.
func parseIntentResponse(response string) *ParsedIntent {
	out := &ParsedIntent{}

	jsonStr := extractJSON(response)
	if jsonStr == "" {
		out.quarantine("$", response, "no JSON object in response")
		return out
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		out.quarantine("$", jsonStr, fmt.Sprintf("malformed JSON: %v", err))
		return out
	}

	if v, ok := raw["intent"]; ok {
		switch intent := types.IntentType(strings.ToUpper(types.CoerceString(v))); intent {
		case types.IntentAccessionEntity, types.IntentLogObservation, types.IntentModifyHabitat, types.IntentQuery:
			out.Intent = intent
		default:
			out.quarantine("intent", v, "unknown intent type")
		}
	}
	out.TargetHabitat = strings.TrimSpace(types.CoerceString(raw["target_habitat"]))
	out.Reasoning = types.CoerceString(raw["reasoning"])
	out.IntentStrategy = types.CoerceString(raw["intent_strategy"])

	if v, ok := raw["candidates"]; ok {
		out.parseCandidates(v)
	}
	if v, ok := raw["observation"]; ok && v != nil {
		out.parseObservation(v)
	}
	if v, ok := raw["habitat"]; ok && v != nil {
		out.parseHabitat(v)
	}
	return out
}

func (p *ParsedIntent) quarantine(field string, raw any, reason string) {
	p.ValidationErrors = append(p.ValidationErrors, FieldError{Field: field, Raw: raw, Reason: reason})
}

func (p *ParsedIntent) parseCandidates(v any) {
	list, ok := v.([]any)
	if !ok {
		p.quarantine("candidates", v, "not an array")
		return
	}
	for i, item := range list {
		field := fmt.Sprintf("candidates[%d]", i)
		m, ok := item.(map[string]any)
		if !ok {
			p.quarantine(field, item, "not an object")
			continue
		}
		name := strings.TrimSpace(types.CoerceString(m["name"]))
		if name == "" {
			p.quarantine(field+".name", m["name"], "missing name")
			continue
		}
		c := types.CandidateEntity{
			Name:           name,
			ScientificName: strings.TrimSpace(types.CoerceString(m["scientific_name"])),
			MorphVariant:   strings.TrimSpace(types.CoerceString(m["morph_variant"])),
			Quantity:       1,
		}
		switch t := types.EntityType(strings.ToUpper(types.CoerceString(m["type"]))); t {
		case types.EntityPlant, types.EntityPlantGroup, types.EntityOrganism, types.EntityColony:
			c.Type = t
		case "":
			c.Type = types.EntityOrganism
		default:
			p.quarantine(field+".type", m["type"], "unknown entity type")
			c.Type = types.EntityOrganism
		}
		if qv, ok := m["quantity"]; ok {
			if q, ok := types.CoerceInt(qv); ok && q > 0 {
				c.Quantity = q
			} else {
				p.quarantine(field+".quantity", qv, "not a positive integer")
			}
		}
		p.Candidates = append(p.Candidates, c)
	}
}

func (p *ParsedIntent) parseObservation(v any) {
	m, ok := v.(map[string]any)
	if !ok {
		p.quarantine("observation", v, "not an object")
		return
	}
	obs := &types.ObservationParams{
		EntityRef: strings.TrimSpace(types.CoerceString(m["entity_ref"])),
		Label:     strings.TrimSpace(types.CoerceString(m["label"])),
		Unit:      strings.TrimSpace(types.CoerceString(m["unit"])),
	}
	switch t := types.ObservationType(strings.ToLower(types.CoerceString(m["type"]))); t {
	case types.ObservationGrowth, types.ObservationParameter, types.ObservationNote:
		obs.Type = t
	case "":
		obs.Type = types.ObservationNote
	default:
		p.quarantine("observation.type", m["type"], "unknown observation type")
		obs.Type = types.ObservationNote
	}
	if vv, ok := m["value"]; ok && vv != nil {
		if f, ok := types.CoerceFloat(vv); ok {
			obs.Value = f
		} else {
			p.quarantine("observation.value", vv, "not a number")
		}
	}
	p.Observation = obs
}

func (p *ParsedIntent) parseHabitat(v any) {
	m, ok := v.(map[string]any)
	if !ok {
		p.quarantine("habitat", v, "not an object")
		return
	}
	h := &types.HabitatParams{
		Name: strings.TrimSpace(types.CoerceString(m["name"])),
	}
	if av, ok := m["aquatic"].(map[string]any); ok {
		aq := &types.AquaticParams{
			Salinity: strings.ToLower(strings.TrimSpace(types.CoerceString(av["salinity"]))),
		}
		if f, ok := types.CoerceFloat(av["ph"]); ok {
			if f > 0 && f < 14 {
				aq.PH = types.Float64Ptr(f)
			} else {
				p.quarantine("habitat.aquatic.ph", av["ph"], "pH outside 0-14")
			}
		}
		if f, ok := types.CoerceFloat(av["temp_f"]); ok {
			aq.TempF = types.Float64Ptr(f)
		}
		h.Aquatic = aq
	}
	if tv, ok := m["terrestrial"].(map[string]any); ok {
		ter := &types.TerrestrialParams{
			Substrate: strings.TrimSpace(types.CoerceString(tv["substrate"])),
		}
		if f, ok := types.CoerceFloat(tv["humidity"]); ok {
			if f >= 0 && f <= 100 {
				ter.Humidity = types.Float64Ptr(f)
			} else {
				p.quarantine("habitat.terrestrial.humidity", tv["humidity"], "humidity outside 0-100")
			}
		}
		h.Terrestrial = ter
	}
	p.Habitat = h
}
