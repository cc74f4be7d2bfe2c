package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) an event store.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, wrap(err, ErrDatabaseOpenFailed).WithContext("path", dbPath).Build()
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrap(err, ErrDatabaseOpenFailed).WithContext("path", dbPath).Build()
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, wrap(err, ErrInitializeSchemaFailed).WithContext("path", dbPath).Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		project TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_run_id ON events(run_id);
	CREATE INDEX IF NOT EXISTS idx_project ON events(project);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a new event to the store.
func (s *SQLiteStore) Append(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON []byte
	if md := e.Metadata(); md != nil {
		var err error
		metadataJSON, err = json.Marshal(md)
		if err != nil {
			return wrap(err, ErrMarshalPayloadFailed).WithContext("run_id", e.RunID()).Build()
		}
	}
	ts := e.Timestamp()
	if ts.IsZero() {
		ts = time.Now()
	}
	payload := e.Payload()
	if payload == nil {
		payload = []byte("{}")
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (run_id, project, event_type, timestamp, payload, metadata) VALUES (?, ?, ?, ?, ?, ?)",
		e.RunID(), e.Project(), e.Type(), ts.UnixMilli(), payload, metadataJSON,
	)
	if err != nil {
		return wrap(err, ErrEventAppendFailed).
			WithContext("run_id", e.RunID()).
			WithContext("type", e.Type()).
			Build()
	}
	return nil
}

// GetByRunID retrieves all events for a specific run.
func (s *SQLiteStore) GetByRunID(ctx context.Context, runID string) ([]Event, error) {
	events, err := s.query(ctx, "run_id = ?", runID)
	if err != nil {
		return nil, wrap(err, ErrEventQueryFailed).WithContext("run_id", runID).Build()
	}
	return events, nil
}

// GetRange retrieves events within a time range, bounds included.
func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	events, err := s.query(ctx, "timestamp BETWEEN ? AND ?", start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, wrap(err, ErrEventQueryFailed).
			WithContext("start", start.Format(time.RFC3339)).
			WithContext("end", end.Format(time.RFC3339)).
			Build()
	}
	return events, nil
}

// query returns the events matching where, in append order.
func (s *SQLiteStore) query(ctx context.Context, where string, args ...any) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, project, event_type, timestamp, payload, metadata FROM events WHERE "+where+" ORDER BY id",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// LatestRunID returns the run that recorded the newest event for project.
func (s *SQLiteStore) LatestRunID(ctx context.Context, project string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var runID string
	err := s.db.QueryRowContext(ctx,
		"SELECT run_id FROM events WHERE project = ? ORDER BY id DESC LIMIT 1", project,
	).Scan(&runID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil:
		return "", wrap(err, ErrEventQueryFailed).WithContext("project", project).Build()
	}
	return runID, nil
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var (
			e        BaseEvent
			millis   int64
			metadata []byte
		)
		if err := rows.Scan(&e.EventID, &e.EventRunID, &e.EventProject, &e.EventType, &millis, &e.EventPayload, &metadata); err != nil {
			return nil, err
		}
		e.EventTimestamp = time.UnixMilli(millis)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.EventMetadata); err != nil {
				return nil, fmt.Errorf("event %d metadata: %w", e.EventID, err)
			}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
