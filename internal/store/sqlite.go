package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"conservatory/internal/types"
)

// SQLiteStore implements DocStore and Journal on a single local SQLite file.
// Documents are stored as JSON blobs in a generic (collection, key) table so
// collections need no per-collection schema; queries decode candidates and
// filter in Go, which is fine at personal-collection scale.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initialize creates the required tables.
func (s *SQLiteStore) initialize() error {
	documentsTable := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		key TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, key)
	);
	CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
	`

	eventsTable := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload TEXT NOT NULL,
		metadata TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
	`

	for _, stmt := range []string{documentsTable, eventsTable} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// GetDoc reads one document by collection and key.
func (s *SQLiteStore) GetDoc(ctx context.Context, collection, key string) (*Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND key = ?`,
		collection, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s/%s: %w", collection, key, err)
	}

	data := make(map[string]any)
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("corrupt document %s/%s: %w", collection, key, err)
	}
	return &Doc{Key: key, Data: data}, nil
}

// SetDoc writes a document, merging top-level fields when merge is true.
func (s *SQLiteStore) SetDoc(ctx context.Context, collection, key string, data map[string]any, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := data
	if merge {
		if existing, err := s.getLocked(ctx, collection, key); err == nil {
			merged := existing.Data
			for k, v := range data {
				merged[k] = v
			}
			out = merged
		}
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, data, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(collection, key) DO UPDATE SET
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP`,
		collection, key, string(raw))
	if err != nil {
		return fmt.Errorf("failed to write document %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *SQLiteStore) getLocked(ctx context.Context, collection, key string) (*Doc, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND key = ?`,
		collection, key).Scan(&raw)
	if err != nil {
		return nil, err
	}
	data := make(map[string]any)
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return &Doc{Key: key, Data: data}, nil
}

// Query scans the collection and filters in Go. Matching is exact for
// OpEqual (strings compared case-insensitively) and membership for
// OpContains over string arrays.
func (s *SQLiteStore) Query(ctx context.Context, collection, field string, op QueryOp, value any, limit int) ([]Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, data FROM documents WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Doc
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		data := make(map[string]any)
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			continue // corrupt row, skip
		}
		if !matchField(data[field], op, value) {
			continue
		}
		out = append(out, Doc{Key: key, Data: data})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, rows.Err()
}

func matchField(fieldVal any, op QueryOp, want any) bool {
	switch op {
	case OpEqual:
		if fs, ok := fieldVal.(string); ok {
			if ws, ok := want.(string); ok {
				return strings.EqualFold(fs, ws)
			}
		}
		return fieldVal == want
	case OpContains:
		arr, ok := fieldVal.([]any)
		if !ok {
			return false
		}
		ws, _ := want.(string)
		for _, item := range arr {
			if is, ok := item.(string); ok && strings.EqualFold(is, ws) {
				return true
			}
		}
	}
	return false
}

// AppendEvent writes one immutable event to the journal.
func (s *SQLiteStore) AppendEvent(ctx context.Context, event types.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal event metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (event_id, event_type, timestamp, payload, metadata)
		VALUES (?, ?, ?, ?, ?)`,
		event.EventID, string(event.Type), event.Timestamp, string(payload), string(metadata))
	if err != nil {
		return fmt.Errorf("failed to append event %s: %w", event.EventID, err)
	}
	return nil
}

// ListEvents returns the full journal ordered by timestamp, then by insert
// order for events sharing a timestamp.
func (s *SQLiteStore) ListEvents(ctx context.Context) ([]types.DomainEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, timestamp, payload, metadata
		FROM events ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []types.DomainEvent
	for rows.Next() {
		var (
			ev            types.DomainEvent
			eventType     string
			payload, meta string
		)
		if err := rows.Scan(&ev.EventID, &eventType, &ev.Timestamp, &payload, &meta); err != nil {
			return nil, err
		}
		ev.Type = types.EventType(eventType)
		if err := json.Unmarshal([]byte(payload), &ev.Payload); err != nil {
			return nil, fmt.Errorf("corrupt event payload %s: %w", ev.EventID, err)
		}
		if meta != "" {
			if err := json.Unmarshal([]byte(meta), &ev.Metadata); err != nil {
				return nil, fmt.Errorf("corrupt event metadata %s: %w", ev.EventID, err)
			}
		}
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp < events[j].Timestamp })
	return events, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
