package enrichment

import (
	"os"
	"path/filepath"
	"testing"
)

func testEntries() []DatasetEntry {
	return []DatasetEntry{
		{
			ID:             "neon-tetra",
			CommonName:     "Neon Tetra",
			ScientificName: "Paracheirodon innesi",
			Aliases:        []string{"neon"},
			PHMin:          6.0,
			PHMax:          7.0,
			TempMinF:       72,
			TempMaxF:       78,
			Diet:           "omnivore",
		},
		{
			ID:         "java-fern",
			CommonName: "Java Fern",
			PHMin:      6.0,
			PHMax:      7.5,
		},
		{
			ID:         "cherry-shrimp",
			CommonName: "Cherry Shrimp",
			Aliases:    []string{"neocaridina"},
		},
	}
}

func TestLookupPriority(t *testing.T) {
	d := NewDatasetFromEntries(testEntries())

	tests := []struct {
		name   string
		query  string
		wantID string
	}{
		{"exact common name", "Neon Tetra", "neon-tetra"},
		{"exact case-insensitive", "neon tetra", "neon-tetra"},
		{"exact scientific", "Paracheirodon innesi", "neon-tetra"},
		{"exact alias", "neon", "neon-tetra"},
		{"id", "java-fern", "java-fern"},
		{"prefix", "java", "java-fern"},
		{"substring", "shrimp", "cherry-shrimp"},
		{"alias substring", "caridina", "cherry-shrimp"},
		{"miss", "axolotl", ""},
		{"empty", "  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Lookup(tt.query)
			if tt.wantID == "" {
				if got != nil {
					t.Fatalf("Lookup(%q) = %+v, want miss", tt.query, got)
				}
				return
			}
			if got == nil || got.ID != tt.wantID {
				t.Fatalf("Lookup(%q) = %+v, want %s", tt.query, got, tt.wantID)
			}
		})
	}
}

func TestExactBeatsSubstring(t *testing.T) {
	// "neon" is an alias of the tetra and a substring of nothing else; an
	// entry named exactly "Neon" must still win over the alias.
	d := NewDatasetFromEntries(append(testEntries(), DatasetEntry{ID: "neon-goby", CommonName: "Neon"}))
	got := d.Lookup("neon")
	if got == nil {
		t.Fatal("miss")
	}
	// Both match exactly (alias vs name); first pass returns the earliest
	// exact hit, which is the tetra by dataset order.
	if got.ID != "neon-tetra" {
		t.Errorf("Lookup = %s", got.ID)
	}
}

func TestLoadDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "species.yaml")
	body := `
species:
  - id: betta
    common_name: Betta
    scientific_name: Betta splendens
    ph_min: 6.5
    ph_max: 7.5
    temp_min_f: 76
    temp_max_f: 82
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := LoadDataset(path)
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 1 {
		t.Fatalf("Len = %d", d.Len())
	}
	entry := d.Lookup("betta")
	if entry == nil || entry.PHMin != 6.5 {
		t.Fatalf("entry = %+v", entry)
	}
	details := entry.Details()
	if details.TempMaxF != 82 {
		t.Errorf("details = %+v", details)
	}
}

func TestLoadDatasetMissingFileIsEmpty(t *testing.T) {
	d, err := LoadDataset(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 0 {
		t.Errorf("Len = %d", d.Len())
	}
}

func TestReloadKeepsEntriesOnParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "species.yaml")
	if err := os.WriteFile(path, []byte("species:\n  - id: betta\n    common_name: Betta\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := LoadDataset(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("species: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := d.Reload(); err == nil {
		t.Fatal("expected parse error")
	}
	if d.Len() != 1 {
		t.Errorf("entries lost on failed reload: Len = %d", d.Len())
	}
}
