package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"conservatory/internal/types"
)

var errDocStoreUnavailable = errors.New("store: document store unavailable")

// MemoryStore is a map-backed DocStore and Journal for tests and for
// degraded operation when the SQLite file cannot be opened. A cold memory
// cache plus this store starting empty behaves as "always miss", which the
// engine treats as a re-enrichment trigger, not an error.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]map[string]map[string]any // collection -> key -> doc
	events []types.DomainEvent

	// FailWrites makes SetDoc return an error, for exercising the
	// best-effort persistence path in tests.
	FailWrites bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]map[string]any)}
}

// GetDoc reads one document.
func (s *MemoryStore) GetDoc(ctx context.Context, collection, key string) (*Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.docs[collection]
	if !ok {
		return nil, ErrNotFound
	}
	data, ok := col[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &Doc{Key: key, Data: cloneDoc(data)}, nil
}

// SetDoc writes a document, merging top-level fields when merge is true.
func (s *MemoryStore) SetDoc(ctx context.Context, collection, key string, data map[string]any, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return errDocStoreUnavailable
	}

	col, ok := s.docs[collection]
	if !ok {
		col = make(map[string]map[string]any)
		s.docs[collection] = col
	}

	if merge {
		if existing, ok := col[key]; ok {
			merged := cloneDoc(existing)
			for k, v := range data {
				merged[k] = v
			}
			col[key] = merged
			return nil
		}
	}
	col[key] = cloneDoc(data)
	return nil
}

// Query filters the collection by a single field predicate.
func (s *MemoryStore) Query(ctx context.Context, collection, field string, op QueryOp, value any, limit int) ([]Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := s.docs[collection]
	keys := make([]string, 0, len(col))
	for k := range col {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic result order for tests

	var out []Doc
	for _, k := range keys {
		data := col[k]
		if !memMatch(data[field], op, value) {
			continue
		}
		out = append(out, Doc{Key: k, Data: cloneDoc(data)})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func memMatch(fieldVal any, op QueryOp, want any) bool {
	switch op {
	case OpEqual:
		if fs, ok := fieldVal.(string); ok {
			if ws, ok := want.(string); ok {
				return strings.EqualFold(fs, ws)
			}
		}
		return fieldVal == want
	case OpContains:
		ws, _ := want.(string)
		switch arr := fieldVal.(type) {
		case []any:
			for _, item := range arr {
				if is, ok := item.(string); ok && strings.EqualFold(is, ws) {
					return true
				}
			}
		case []string:
			for _, is := range arr {
				if strings.EqualFold(is, ws) {
					return true
				}
			}
		}
	}
	return false
}

// AppendEvent appends one event to the in-memory journal.
func (s *MemoryStore) AppendEvent(ctx context.Context, event types.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListEvents returns the journal ordered by timestamp.
func (s *MemoryStore) ListEvents(ctx context.Context) ([]types.DomainEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.DomainEvent, len(s.events))
	copy(out, s.events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func cloneDoc(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
