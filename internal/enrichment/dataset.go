// Package enrichment populates species records by querying providers in a
// fixed priority order: the bundled local dataset, the GBIF taxonomy
// registry, Wikipedia, iNaturalist, and finally an AI-generated discovery
// narrative. Stage misses are non-fatal; the assembled record is the union
// of whatever succeeded.
package enrichment

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"conservatory/internal/logging"
	"conservatory/internal/types"
)

// DatasetEntry is one species in the bundled YAML dataset. Fields here are
// authoritative: later pipeline stages fill gaps but never override them.
type DatasetEntry struct {
	ID             string   `yaml:"id"`
	CommonName     string   `yaml:"common_name"`
	ScientificName string   `yaml:"scientific_name,omitempty"`
	Aliases        []string `yaml:"aliases,omitempty"`

	PHMin      float64 `yaml:"ph_min,omitempty"`
	PHMax      float64 `yaml:"ph_max,omitempty"`
	TempMinF   float64 `yaml:"temp_min_f,omitempty"`
	TempMaxF   float64 `yaml:"temp_max_f,omitempty"`
	AdultSize  string  `yaml:"adult_size,omitempty"`
	Diet       string  `yaml:"diet,omitempty"`
	Difficulty string  `yaml:"difficulty,omitempty"`

	Images []string `yaml:"images,omitempty"`
}

// Details converts the entry into the enrichment care record.
func (e *DatasetEntry) Details() *types.SpeciesDetails {
	return &types.SpeciesDetails{
		PHMin:      e.PHMin,
		PHMax:      e.PHMax,
		TempMinF:   e.TempMinF,
		TempMaxF:   e.TempMaxF,
		AdultSize:  e.AdultSize,
		Diet:       e.Diet,
		Difficulty: e.Difficulty,
		Images:     e.Images,
	}
}

// Dataset is the in-memory local species library. Lookups never touch the
// network; reload replaces the whole entry set atomically.
type Dataset struct {
	mu      sync.RWMutex
	entries []DatasetEntry
	path    string
	log     *logging.Logger
}

type datasetFile struct {
	Species []DatasetEntry `yaml:"species"`
}

// LoadDataset reads a YAML dataset from path. A missing file yields an empty
// dataset, not an error; every pipeline stage after the local library still
// runs.
func LoadDataset(path string) (*Dataset, error) {
	d := &Dataset{path: path, log: logging.Get(logging.CategoryLibrary)}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// NewDatasetFromEntries builds a dataset directly; used by tests and seeding.
func NewDatasetFromEntries(entries []DatasetEntry) *Dataset {
	return &Dataset{entries: entries, log: logging.Get(logging.CategoryLibrary)}
}

// Reload re-reads the dataset file, replacing all entries on success and
// keeping the previous entries on failure.
func (d *Dataset) Reload() error {
	if d.path == "" {
		return nil
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			d.log.Warn("species dataset %s not found, local library empty", d.path)
			return nil
		}
		return fmt.Errorf("failed to read species dataset: %w", err)
	}
	var file datasetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse species dataset %s: %w", d.path, err)
	}

	d.mu.Lock()
	d.entries = file.Species
	d.mu.Unlock()
	d.log.Info("species dataset loaded: %d entries from %s", len(file.Species), d.path)
	return nil
}

// Len reports the number of loaded entries.
func (d *Dataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Lookup finds the best entry for a spoken name: exact name (common,
// scientific, or alias), then id, then prefix, then substring. Returns nil
// on miss.
func (d *Dataset) Lookup(name string) *DatasetEntry {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	for i := range d.entries {
		if entryNameMatches(&d.entries[i], needle, strings.EqualFold) {
			return cloneEntry(&d.entries[i])
		}
	}
	for i := range d.entries {
		if strings.EqualFold(d.entries[i].ID, needle) {
			return cloneEntry(&d.entries[i])
		}
	}
	for i := range d.entries {
		if entryNameMatches(&d.entries[i], needle, hasFoldPrefix) {
			return cloneEntry(&d.entries[i])
		}
	}
	for i := range d.entries {
		if entryNameMatches(&d.entries[i], needle, containsFold) {
			return cloneEntry(&d.entries[i])
		}
	}
	return nil
}

func entryNameMatches(e *DatasetEntry, needle string, match func(candidate, needle string) bool) bool {
	if match(e.CommonName, needle) || (e.ScientificName != "" && match(e.ScientificName, needle)) {
		return true
	}
	for _, alias := range e.Aliases {
		if match(alias, needle) {
			return true
		}
	}
	return false
}

func hasFoldPrefix(candidate, needle string) bool {
	return strings.HasPrefix(strings.ToLower(candidate), needle)
}

func containsFold(candidate, needle string) bool {
	return strings.Contains(strings.ToLower(candidate), needle)
}

func cloneEntry(e *DatasetEntry) *DatasetEntry {
	out := *e
	out.Aliases = append([]string(nil), e.Aliases...)
	out.Images = append([]string(nil), e.Images...)
	return &out
}
