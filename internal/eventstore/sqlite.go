package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

const eventColumns = "id, build_id, event_type, timestamp, payload, metadata"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) an event store at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, storeError(err, "open sqlite database").WithContext("path", dbPath).Build()
	}
	// One connection serializes writers and keeps a :memory: database shared.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, storeError(err, "initialize schema").WithContext("path", dbPath).Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_build_id ON events(build_id);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a new event. A zero Timestamp is replaced by the current time.
func (s *SQLiteStore) Append(ctx context.Context, evt Event) error {
	if evt.BuildID == "" || evt.Type == "" {
		return ferrors.ValidationError("event requires build id and type").Build()
	}

	var metadataJSON []byte
	if evt.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(evt.Metadata)
		if err != nil {
			return storeError(err, "marshal metadata").Build()
		}
	}

	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	payload := evt.Payload
	if payload == nil {
		payload = []byte("{}")
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (build_id, event_type, timestamp, payload, metadata) VALUES (?, ?, ?, ?, ?)",
		evt.BuildID, evt.Type, ts.UnixMilli(), payload, metadataJSON,
	)
	if err != nil {
		return storeError(err, "insert event").WithContext("build_id", evt.BuildID).Build()
	}
	return nil
}

// GetByBuildID retrieves all events for a specific build.
func (s *SQLiteStore) GetByBuildID(ctx context.Context, buildID string) ([]Event, error) {
	return s.query(ctx, "SELECT "+eventColumns+" FROM events WHERE build_id = ? ORDER BY id", buildID)
}

// GetRange retrieves events within a time range.
func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	return s.query(ctx,
		"SELECT "+eventColumns+" FROM events WHERE timestamp >= ? AND timestamp <= ? ORDER BY id",
		start.UnixMilli(), end.UnixMilli(),
	)
}

// Recent retrieves every event of the newest limit builds.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.query(ctx, `
		SELECT `+eventColumns+` FROM events WHERE build_id IN (
			SELECT build_id FROM events GROUP BY build_id ORDER BY MIN(id) DESC LIMIT ?
		) ORDER BY id`, limit)
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storeError(err, "query events").Build()
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var (
			e            Event
			millis       int64
			metadataJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.BuildID, &e.Type, &millis, &e.Payload, &metadataJSON); err != nil {
			return nil, storeError(err, "scan event").Build()
		}
		e.Timestamp = time.UnixMilli(millis)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, storeError(err, "unmarshal metadata").Build()
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "iterate rows").Build()
	}
	return events, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func storeError(err error, msg string) *ferrors.ErrorBuilder {
	return ferrors.WrapError(err, ferrors.CategoryEventStore, msg)
}
