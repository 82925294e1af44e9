package world

import (
	"testing"

	"conservatory/internal/types"
)

func entity(id, name string, aliases ...string) *types.Entity {
	return &types.Entity{ID: id, Name: name, Aliases: aliases, Type: types.EntityHabitat}
}

func TestResolveExactMatch(t *testing.T) {
	candidates := []*types.Entity{entity("h1", "The Shallows")}

	res := Resolve("the shallows", candidates)
	if res.Ambiguous {
		t.Fatal("exact match flagged ambiguous")
	}
	if res.Match == nil || res.Match.ID != "h1" {
		t.Fatalf("Match = %+v, want h1", res.Match)
	}
}

func TestResolveExactBeatsPartial(t *testing.T) {
	candidates := []*types.Entity{
		entity("h1", "Tank"),
		entity("h2", "Tank A"), // contains "tank" but exact wins
	}
	res := Resolve("Tank", candidates)
	if res.Match == nil || res.Match.ID != "h1" {
		t.Fatalf("Match = %+v, want exact h1", res.Match)
	}
}

func TestResolveDuplicateNamesAmbiguous(t *testing.T) {
	candidates := []*types.Entity{
		entity("h1", "Tank A"),
		entity("h2", "Tank A"),
	}
	res := Resolve("Tank A", candidates)
	if !res.Ambiguous {
		t.Error("duplicate names should be ambiguous")
	}
	if res.Match != nil {
		t.Errorf("ambiguous resolution must carry no match, got %+v", res.Match)
	}
}

func TestResolveAlias(t *testing.T) {
	candidates := []*types.Entity{
		entity("h1", "Paludarium One", "the swamp", "palu"),
		entity("h2", "Reef Bowl"),
	}
	res := Resolve("The Swamp", candidates)
	if res.Match == nil || res.Match.ID != "h1" {
		t.Fatalf("alias resolution failed: %+v", res)
	}
}

func TestResolvePartialFallback(t *testing.T) {
	candidates := []*types.Entity{
		entity("h1", "The Shallows"),
		entity("h2", "Deep Reef"),
	}
	res := Resolve("shallow", candidates)
	if res.Match == nil || res.Match.ID != "h1" {
		t.Fatalf("partial resolution failed: %+v", res)
	}
}

func TestResolvePartialAmbiguous(t *testing.T) {
	candidates := []*types.Entity{
		entity("h1", "Shrimp Tank"),
		entity("h2", "Fry Tank"),
	}
	res := Resolve("tank", candidates)
	if !res.Ambiguous || res.Match != nil {
		t.Errorf("two partial hits should be ambiguous: %+v", res)
	}
}

func TestResolveNoMatchNotAmbiguous(t *testing.T) {
	candidates := []*types.Entity{entity("h1", "The Shallows")}
	res := Resolve("The Abyss", candidates)
	if res.Match != nil || res.Ambiguous {
		t.Errorf("no-match must be distinct from ambiguous: %+v", res)
	}
}

func TestResolveEmptyInput(t *testing.T) {
	candidates := []*types.Entity{entity("h1", "The Shallows")}
	res := Resolve("   ", candidates)
	if res.Match != nil || res.Ambiguous {
		t.Errorf("blank input should resolve to nothing: %+v", res)
	}
}

func TestResolveNameAndAliasSameEntity(t *testing.T) {
	// One entity matching via both its name and an alias is still a single
	// unambiguous hit.
	candidates := []*types.Entity{entity("h1", "Shrimp Tank", "shrimp")}
	res := Resolve("shrimp", candidates)
	if res.Ambiguous {
		t.Error("single entity matched twice should not be ambiguous")
	}
	if res.Match == nil || res.Match.ID != "h1" {
		t.Errorf("Match = %+v", res.Match)
	}
}
