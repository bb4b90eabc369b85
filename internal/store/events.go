package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Robust-infrastructure/ri-event-log/internal/model"
)

// InsertEvent appends a new event row. Fails with a wrapped sqlite
// constraint error if id already exists — callers that need idempotent
// "skip if present" semantics (the archive importer) must check
// EventExists first, per spec §4.11.
func (s *Store) InsertEvent(ctx context.Context, e model.Event) error {
	payloadJSON, err := marshalJSONValue(e.Payload)
	if err != nil {
		return fmt.Errorf("store: insert event: %w", err)
	}

	var prev sql.NullString
	if e.PreviousHash != nil {
		prev = sql.NullString{String: *e.PreviousHash, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.Type), e.SpaceID, e.Timestamp, e.SequenceNumber, e.Hash, prev, e.Version, payloadJSON)
	if err != nil {
		return fmt.Errorf("store: insert event: %w", err)
	}
	return nil
}

// EventExists reports whether an event with the given id has been
// committed.
func (s *Store) EventExists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("store: event exists: %w", err)
	}
	return count > 0, nil
}

// LatestInSpace returns the event with the maximum sequence_number in
// spaceID, or nil if the space has no events. Scans the
// (space_id, sequence_number) index descending, limit 1, per spec §4.3.
func (s *Store) LatestInSpace(ctx context.Context, spaceID string) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload
		FROM events WHERE space_id = ?
		ORDER BY sequence_number DESC LIMIT 1
	`, spaceID)
	e, err := scanEventRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest in space: %w", err)
	}
	return &e, nil
}

// CountInSpace returns the number of events in spaceID.
func (s *Store) CountInSpace(ctx context.Context, spaceID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE space_id = ?`, spaceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count in space: %w", err)
	}
	return n, nil
}

// CountByType returns the number of events with the given type.
func (s *Store) CountByType(ctx context.Context, t model.EventType) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE type = ?`, string(t)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count by type: %w", err)
	}
	return n, nil
}

// CountInTimeRange returns the number of events with timestamp in
// [from, to).
func (s *Store) CountInTimeRange(ctx context.Context, from, to string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE timestamp >= ? AND timestamp < ?`, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count in time range: %w", err)
	}
	return n, nil
}

// ListBySpaceSeqRange scans the (space_id, sequence_number) index over
// [lowerSeq, upperSeq] ascending or descending, limited to `limit` rows.
// A nil bound means "unbounded on that side". Used directly by the
// query engine's query_by_space, which can push the cursor all the way
// down into SQL because its sort key is exactly this index.
func (s *Store) ListBySpaceSeqRange(ctx context.Context, spaceID string, lowerSeq, upperSeq *int64, desc bool, limit int) ([]model.Event, error) {
	query := `SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload FROM events WHERE space_id = ?`
	args := []any{spaceID}
	if lowerSeq != nil {
		query += ` AND sequence_number >= ?`
		args = append(args, *lowerSeq)
	}
	if upperSeq != nil {
		query += ` AND sequence_number <= ?`
		args = append(args, *upperSeq)
	}
	if desc {
		query += ` ORDER BY sequence_number DESC, id DESC`
	} else {
		query += ` ORDER BY sequence_number ASC, id ASC`
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	return s.queryEvents(ctx, query, args...)
}

// ListByType returns every event of the given type, ordered by
// sequence_number ascending then id ascending. Cursoring and the
// caller's requested order are applied in memory, per spec §4.5.
func (s *Store) ListByType(ctx context.Context, t model.EventType) ([]model.Event, error) {
	return s.queryEvents(ctx, `
		SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload
		FROM events WHERE type = ? ORDER BY sequence_number ASC, id ASC
	`, string(t))
}

// ListInTimeRange returns every event with timestamp in [from, to),
// ordered by sequence_number ascending then id ascending.
func (s *Store) ListInTimeRange(ctx context.Context, from, to string) ([]model.Event, error) {
	return s.queryEvents(ctx, `
		SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload
		FROM events WHERE timestamp >= ? AND timestamp < ? ORDER BY sequence_number ASC, id ASC
	`, from, to)
}

// ListSpaceFromSeq returns events in spaceID with sequence_number > fromSeq
// (or all events if fromSeq is nil), ascending. Used by the snapshot
// manager and state reconstructor to fold events after a checkpoint.
func (s *Store) ListSpaceFromSeq(ctx context.Context, spaceID string, fromSeq *int64) ([]model.Event, error) {
	if fromSeq == nil {
		return s.queryEvents(ctx, `
			SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload
			FROM events WHERE space_id = ? ORDER BY sequence_number ASC
		`, spaceID)
	}
	return s.queryEvents(ctx, `
		SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload
		FROM events WHERE space_id = ? AND sequence_number > ? ORDER BY sequence_number ASC
	`, spaceID, *fromSeq)
}

// ListSpaceChunk returns up to `limit` events in spaceID ordered by
// sequence_number ascending, starting at row offset `offset`. Used by
// the integrity verifier to walk a space's chain in bounded-memory
// chunks (spec §4.6).
func (s *Store) ListSpaceChunk(ctx context.Context, spaceID string, offset, limit int) ([]model.Event, error) {
	return s.queryEvents(ctx, `
		SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload
		FROM events WHERE space_id = ? ORDER BY sequence_number ASC LIMIT ? OFFSET ?
	`, spaceID, limit, offset)
}

// ListSpaceBeforeOrdered returns every event in spaceID with
// timestamp < beforeDate, ordered by sequence_number ascending. Used by
// the archive exporter (spec §4.10).
func (s *Store) ListSpaceBeforeOrdered(ctx context.Context, spaceID, beforeDate string) ([]model.Event, error) {
	return s.queryEvents(ctx, `
		SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload
		FROM events WHERE space_id = ? AND timestamp < ? ORDER BY sequence_number ASC
	`, spaceID, beforeDate)
}

// EarliestTimestampInSpace returns the timestamp of the sequence-1 event
// in spaceID. Used by the state reconstructor to reject at_timestamp
// values that predate the space's history (spec §4.8).
func (s *Store) EarliestTimestampInSpace(ctx context.Context, spaceID string) (string, error) {
	var ts string
	err := s.db.QueryRowContext(ctx, `
		SELECT timestamp FROM events WHERE space_id = ? ORDER BY sequence_number ASC LIMIT 1
	`, spaceID).Scan(&ts)
	if err != nil {
		return "", fmt.Errorf("store: earliest timestamp: %w", err)
	}
	return ts, nil
}

// DistinctSpaceIDs returns every space_id that has at least one event,
// in ascending order. Used by full-database integrity verification.
func (s *Store) DistinctSpaceIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT space_id FROM events ORDER BY space_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: distinct space ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan space id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate space ids: %w", err)
	}
	return ids, nil
}

// AllEventsOrdered returns every event in the store ordered by space_id
// then sequence_number ascending. Used by storage accounting (C12),
// which must visit every event exactly once.
func (s *Store) AllEventsOrdered(ctx context.Context) ([]model.Event, error) {
	return s.queryEvents(ctx, `
		SELECT id, type, space_id, timestamp, sequence_number, hash, previous_hash, version, payload
		FROM events ORDER BY space_id ASC, sequence_number ASC
	`)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate events: %w", err)
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(rows *sql.Rows) (model.Event, error) {
	return scanEventRow(rowScanner(rows))
}

func scanEventRow(row rowScanner) (model.Event, error) {
	var e model.Event
	var typ string
	var prev sql.NullString
	var payloadJSON string

	if err := row.Scan(&e.ID, &typ, &e.SpaceID, &e.Timestamp, &e.SequenceNumber, &e.Hash, &prev, &e.Version, &payloadJSON); err != nil {
		return model.Event{}, err
	}
	e.Type = model.EventType(typ)
	if prev.Valid {
		p := prev.String
		e.PreviousHash = &p
	}

	payload, err := unmarshalJSONObject(payloadJSON)
	if err != nil {
		return model.Event{}, fmt.Errorf("store: scan event %s: %w", e.ID, err)
	}
	e.Payload = payload

	return e, nil
}
