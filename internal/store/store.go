// Package store provides the persistent tier behind the species library and
// the append-only domain event journal. The engine talks to an opaque
// document store; SQLite is the default backing, with an in-memory
// implementation for tests and degraded operation.
package store

import (
	"context"
	"errors"

	"conservatory/internal/types"
)

// QueryOp is a comparison operator for document queries.
type QueryOp string

// Supported query operators.
const (
	OpEqual    QueryOp = "=="
	OpContains QueryOp = "array-contains"
)

// Doc is one document read back from a collection.
type Doc struct {
	Key  string
	Data map[string]any
}

// ErrNotFound is returned by GetDoc when no document exists under the key.
// A miss is an expected outcome, not a failure.
var ErrNotFound = errors.New("store: document not found")

// DocStore is the opaque document-store contract the engine depends on.
// Implementations must tolerate timestamps stored either as epoch-milli
// numbers or as RFC3339 strings (callers decode with types.CoerceMillis).
type DocStore interface {
	// GetDoc reads one document. Returns ErrNotFound on a miss; any other
	// error is a genuine read failure and propagates to the caller.
	GetDoc(ctx context.Context, collection, key string) (*Doc, error)

	// SetDoc writes a document. With merge true, top-level fields are merged
	// into any existing document instead of replacing it.
	SetDoc(ctx context.Context, collection, key string, data map[string]any, merge bool) error

	// Query returns up to limit documents whose field matches value under op.
	// For OpContains the field is expected to hold an array of strings.
	Query(ctx context.Context, collection, field string, op QueryOp, value any, limit int) ([]Doc, error)

	Close() error
}

// Journal is the append-only domain event log. Events are immutable once
// written; the entity projection is rebuilt by replaying them in
// chronological order.
type Journal interface {
	AppendEvent(ctx context.Context, event types.DomainEvent) error
	ListEvents(ctx context.Context) ([]types.DomainEvent, error)
}
