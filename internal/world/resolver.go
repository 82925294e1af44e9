package world

import (
	"strings"

	"conservatory/internal/types"
)

// Resolution is the outcome of resolving a spoken name against the roster.
// Three outcomes are possible and callers must treat them differently:
//
//	Match != nil, Ambiguous false  -> use the match
//	Match == nil, Ambiguous true   -> ask the user to disambiguate
//	Match == nil, Ambiguous false  -> no such entity; treat as "create new"
type Resolution struct {
	Match     *types.Entity
	Ambiguous bool
}

// Resolve matches free-text user input against candidate entities by name
// or alias, case-insensitively. Exact matches are tried first; only when no
// exact match exists does it fall back to substring containment. In either
// pass, more than one hit is ambiguous and returns no match.
func Resolve(input string, candidates []*types.Entity) Resolution {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" {
		return Resolution{}
	}

	exact := matchPass(needle, candidates, func(name string) bool {
		return name == needle
	})
	if len(exact) == 1 {
		return Resolution{Match: exact[0]}
	}
	if len(exact) > 1 {
		return Resolution{Ambiguous: true}
	}

	partial := matchPass(needle, candidates, func(name string) bool {
		return strings.Contains(name, needle)
	})
	if len(partial) == 1 {
		return Resolution{Match: partial[0]}
	}
	if len(partial) > 1 {
		return Resolution{Ambiguous: true}
	}

	return Resolution{}
}

// matchPass collects candidates whose name or any alias satisfies pred.
// Each candidate counts at most once even when several of its names hit.
func matchPass(needle string, candidates []*types.Entity, pred func(string) bool) []*types.Entity {
	var hits []*types.Entity
	for _, c := range candidates {
		if candidateMatches(c, pred) {
			hits = append(hits, c)
		}
	}
	return hits
}

func candidateMatches(c *types.Entity, pred func(string) bool) bool {
	if pred(strings.ToLower(strings.TrimSpace(c.Name))) {
		return true
	}
	for _, alias := range c.Aliases {
		if pred(strings.ToLower(strings.TrimSpace(alias))) {
			return true
		}
	}
	return false
}
