package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Robust-infrastructure/ri-event-log/internal/model"
)

// InsertSnapshot appends a new snapshot row.
func (s *Store) InsertSnapshot(ctx context.Context, snap model.Snapshot) error {
	stateJSON, err := marshalJSONValue(snap.State)
	if err != nil {
		return fmt.Errorf("store: insert snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, space_id, event_sequence_number, timestamp, state, hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.SpaceID, snap.EventSequenceNumber, snap.Timestamp, stateJSON, snap.Hash)
	if err != nil {
		return fmt.Errorf("store: insert snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the snapshot with the maximum
// event_sequence_number in spaceID, or nil if none exists.
func (s *Store) LatestSnapshot(ctx context.Context, spaceID string) (*model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, space_id, event_sequence_number, timestamp, state, hash
		FROM snapshots WHERE space_id = ?
		ORDER BY event_sequence_number DESC LIMIT 1
	`, spaceID)
	snap, err := scanSnapshotRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest snapshot: %w", err)
	}
	return &snap, nil
}

// SnapshotAtOrBefore returns the snapshot for spaceID with the largest
// event_sequence_number whose timestamp is <= atTimestamp, or nil if no
// such snapshot exists. Used by the state reconstructor for temporal
// cutoffs (spec §4.8).
func (s *Store) SnapshotAtOrBefore(ctx context.Context, spaceID, atTimestamp string) (*model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, space_id, event_sequence_number, timestamp, state, hash
		FROM snapshots WHERE space_id = ? AND timestamp <= ?
		ORDER BY event_sequence_number DESC LIMIT 1
	`, spaceID, atTimestamp)
	snap, err := scanSnapshotRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: snapshot at or before: %w", err)
	}
	return &snap, nil
}

// CountSnapshotsInSpace returns the number of snapshots recorded for
// spaceID. Storage accounting does not use it; it counts snapshots from
// AllSnapshots.
func (s *Store) CountSnapshotsInSpace(ctx context.Context, spaceID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE space_id = ?`, spaceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count snapshots: %w", err)
	}
	return n, nil
}

// AllSnapshots returns every snapshot in the store. Used by storage
// accounting, which must tally every snapshot's estimated byte cost.
func (s *Store) AllSnapshots(ctx context.Context) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, space_id, event_sequence_number, timestamp, state, hash FROM snapshots
	`)
	if err != nil {
		return nil, fmt.Errorf("store: all snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate snapshots: %w", err)
	}
	if snaps == nil {
		snaps = []model.Snapshot{}
	}
	return snaps, nil
}

func scanSnapshot(rows *sql.Rows) (model.Snapshot, error) {
	return scanSnapshotRow(rowScanner(rows))
}

func scanSnapshotRow(row rowScanner) (model.Snapshot, error) {
	var snap model.Snapshot
	var stateJSON string
	if err := row.Scan(&snap.ID, &snap.SpaceID, &snap.EventSequenceNumber, &snap.Timestamp, &stateJSON, &snap.Hash); err != nil {
		return model.Snapshot{}, err
	}
	state, err := unmarshalJSONValue(stateJSON)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("store: scan snapshot %s: %w", snap.ID, err)
	}
	snap.State = state
	return snap, nil
}
