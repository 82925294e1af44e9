// Package species implements the two-tier enrichment cache: a bounded
// in-memory tier fronting a persistent document store, with TTL expiry.
// Its job is to make sure an expensive, possibly-paid enrichment run for a
// species happens at most once per TTL window.
package species

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"conservatory/internal/cache"
	"conservatory/internal/logging"
	"conservatory/internal/store"
	"conservatory/internal/types"
)

// Collection is the persistent-store collection backing the cache.
const Collection = "species_cache"

// DefaultMemoryCapacity bounds the memory tier. The persistent tier keeps
// the long tail; the memory tier only needs the working set of a session.
const DefaultMemoryCapacity = 500

// Library is the species enrichment cache. Construct with NewLibrary and
// inject the document store; there is deliberately no package-level
// singleton so tests and multi-tenant hosts get clean isolation.
type Library struct {
	mem   *cache.LRU[string, *types.SpeciesRecord]
	docs  store.DocStore
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group
	log   *logging.Logger
}

// Option configures a Library.
type Option func(*Library)

// WithTTL overrides the 90-day default record TTL.
func WithTTL(ttl time.Duration) Option {
	return func(l *Library) { l.ttl = ttl }
}

// WithMemoryCapacity overrides the memory-tier bound.
func WithMemoryCapacity(n int) Option {
	return func(l *Library) { l.mem = cache.NewLRU[string, *types.SpeciesRecord](n) }
}

// WithClock injects a clock for TTL tests.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// NewLibrary creates a species cache over the given document store. A nil
// store degrades gracefully to memory-only operation: cold cache behaves as
// "always miss", never as an error.
func NewLibrary(docs store.DocStore, opts ...Option) *Library {
	l := &Library{
		mem:  cache.NewLRU[string, *types.SpeciesRecord](DefaultMemoryCapacity),
		docs: docs,
		ttl:  types.DefaultSpeciesTTL,
		now:  time.Now,
		log:  logging.Get(logging.CategoryLibrary),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Get returns the cached record for a species name plus optional morph
// variant, or nil on a miss. Expired records are never returned: an expired
// memory entry is evicted and the persistent tier is consulted; an expired
// persistent entry is reported as a miss without re-caching, forcing the
// caller to re-enrich. Unexpected persistent read failures propagate.
func (l *Library) Get(ctx context.Context, speciesName, morphVariant string) (*types.SpeciesRecord, error) {
	key := types.SpeciesKeyFor(speciesName, morphVariant)
	if key == "" {
		return nil, nil
	}

	if rec, ok := l.mem.Get(key); ok {
		if !rec.Expired(l.now()) {
			return rec, nil
		}
		l.log.Debug("memory entry expired, evicting: %s", key)
		l.mem.Delete(key)
	}

	return l.getPersistent(ctx, key)
}

// getPersistent reads the persistent tier, collapsing concurrent lookups
// for the same key into one read.
func (l *Library) getPersistent(ctx context.Context, key string) (*types.SpeciesRecord, error) {
	v, err, _ := l.group.Do(key, func() (any, error) {
		if l.docs == nil {
			return nil, nil
		}
		doc, err := l.docs.GetDoc(ctx, Collection, key)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("species cache read failed for %q: %w", key, err)
		}
		return recordFromDoc(doc.Data)
	})
	if err != nil {
		return nil, err
	}
	rec, _ := v.(*types.SpeciesRecord)
	if rec == nil {
		return nil, nil
	}
	if rec.Expired(l.now()) {
		l.log.Debug("persistent entry expired: %s", key)
		return nil, nil
	}
	l.mem.Set(key, rec)
	return rec, nil
}

// FindByName resolves a record by any of its names: exact composite key
// first, then persistent queries by common name, scientific name, and alias
// containment. The first fresh hit wins; tiers are not merged.
func (l *Library) FindByName(ctx context.Context, name string) (*types.SpeciesRecord, error) {
	if rec, err := l.Get(ctx, name, ""); rec != nil || err != nil {
		return rec, err
	}
	if l.docs == nil {
		return nil, nil
	}

	queries := []struct {
		field string
		op    store.QueryOp
	}{
		{"common_name", store.OpEqual},
		{"scientific_name", store.OpEqual},
		{"aliases", store.OpContains},
	}
	for _, q := range queries {
		docs, err := l.docs.Query(ctx, Collection, q.field, q.op, name, 1)
		if err != nil {
			return nil, fmt.Errorf("species cache query on %s failed: %w", q.field, err)
		}
		if len(docs) == 0 {
			continue
		}
		rec, err := recordFromDoc(docs[0].Data)
		if err != nil || rec == nil {
			continue // corrupt document, keep looking
		}
		if rec.Expired(l.now()) {
			continue
		}
		l.mem.Set(rec.CompositeKey, rec)
		return rec, nil
	}
	return nil, nil
}

// Save caches a record in both tiers. A zero EnrichedAt is stamped now; a
// zero ExpiresAt defaults to EnrichedAt plus the TTL. The memory write is
// synchronous and authoritative for the rest of the session; the persistent
// write is best effort and a failure is logged, never surfaced.
func (l *Library) Save(ctx context.Context, rec *types.SpeciesRecord) {
	if rec == nil {
		return
	}
	if rec.CompositeKey == "" {
		rec.CompositeKey = types.SpeciesKeyFor(rec.CommonName, rec.MorphVariant)
	}
	if rec.EnrichedAt == 0 {
		rec.EnrichedAt = l.now().UnixMilli()
	}
	if rec.ExpiresAt == 0 {
		rec.ExpiresAt = time.UnixMilli(rec.EnrichedAt).Add(l.ttl).UnixMilli()
	}

	l.mem.Set(rec.CompositeKey, rec)

	if l.docs == nil {
		return
	}
	doc, err := docFromRecord(rec)
	if err != nil {
		l.log.Error("failed to encode species record %s: %v", rec.CompositeKey, err)
		return
	}
	if err := l.docs.SetDoc(ctx, Collection, rec.CompositeKey, doc, false); err != nil {
		l.log.Warn("persistent write failed for %s, memory tier remains authoritative: %v",
			rec.CompositeKey, err)
	}
}

// ClearCache drops the memory tier only. The persistent tier is untouched;
// this exists for tests and operational resets.
func (l *Library) ClearCache() {
	l.mem.Clear()
}

// MemoryLen reports the memory-tier entry count.
func (l *Library) MemoryLen() int { return l.mem.Len() }

// recordFromDoc decodes a stored document into a SpeciesRecord, tolerating
// timestamps written as epoch millis, epoch seconds, or RFC3339 strings.
func recordFromDoc(data map[string]any) (*types.SpeciesRecord, error) {
	// Normalize timestamp fields before the strict struct decode.
	normalized := make(map[string]any, len(data))
	for k, v := range data {
		normalized[k] = v
	}
	for _, field := range []string{"enriched_at", "expires_at"} {
		if v, ok := normalized[field]; ok {
			normalized[field] = types.CoerceMillis(v)
		}
	}

	raw, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	var rec types.SpeciesRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	if rec.CompositeKey == "" {
		rec.CompositeKey = types.SpeciesKeyFor(rec.CommonName, rec.MorphVariant)
	}
	return &rec, nil
}

func docFromRecord(rec *types.SpeciesRecord) (map[string]any, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	doc := make(map[string]any)
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
