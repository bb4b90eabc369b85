package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS events (
	id              TEXT PRIMARY KEY,
	type            TEXT NOT NULL,
	space_id        TEXT NOT NULL,
	timestamp       TEXT NOT NULL,
	sequence_number INTEGER NOT NULL,
	hash            TEXT NOT NULL,
	previous_hash   TEXT,
	version         INTEGER NOT NULL,
	payload         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_space_id ON events(space_id);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
CREATE INDEX IF NOT EXISTS idx_events_sequence_number ON events(sequence_number);
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_space_sequence ON events(space_id, sequence_number);

CREATE TABLE IF NOT EXISTS snapshots (
	id                    TEXT PRIMARY KEY,
	space_id              TEXT NOT NULL,
	event_sequence_number INTEGER NOT NULL,
	timestamp             TEXT NOT NULL,
	state                 TEXT NOT NULL,
	hash                  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_space_id ON snapshots(space_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_space_seq ON snapshots(space_id, event_sequence_number);

CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const currentSchemaVersion = 1

// Store provides durable storage for the event log's three tables.
// Uses SQLite with WAL mode over a pool capped at one connection, so
// reads and writes are all serialized through that connection
// (spec §4.2, §5).
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at path and applies the
// schema. Idempotent — safe to call multiple times against the same
// file. schemaVersion is stamped into metadata only if no version is
// recorded yet; an existing recorded version is never overwritten.
func Open(ctx context.Context, path string, schemaVersion int) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}

	// SQLite supports exactly one writer; limiting the pool to one
	// connection avoids SQLITE_BUSY races under our own lock discipline.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.stampSchemaVersion(ctx, schemaVersion); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}
	return nil
}

// stampSchemaVersion writes the caller's configured schema version into
// metadata if no version is recorded yet. Matches spec §6's
// schema_version config option, persisted per spec §3's metadata table.
func (s *Store) stampSchemaVersion(ctx context.Context, version int) error {
	var existing string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = 'schema_version'`).Scan(&existing)
	if err == sql.ErrNoRows {
		_, err = s.db.ExecContext(ctx, `INSERT INTO metadata (key, value) VALUES ('schema_version', ?)`, fmt.Sprintf("%d", version))
		if err != nil {
			return fmt.Errorf("store: stamp schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: read schema version: %w", err)
	}
	return nil
}

// DB exposes the underlying *sql.DB for callers that need direct
// parameterized scans. The packages in this module use the typed Store
// methods instead.
func (s *Store) DB() *sql.DB {
	return s.db
}
