// Package snapshot implements the snapshot manager (spec.md §4.7): it
// folds new events onto the latest checkpoint via a caller-supplied
// reducer and persists the result as a new checkpoint.
package snapshot

import (
	"context"

	"github.com/Robust-infrastructure/ri-event-log/internal/canon"
	"github.com/Robust-infrastructure/ri-event-log/internal/model"
)

// Reducer folds one event onto a prior state. It must be pure and
// deterministic; that is a caller obligation, not something this
// package can enforce.
type Reducer func(state any, e model.Event) any

// Store is the subset of the record store the snapshot manager needs.
type Store interface {
	LatestSnapshot(ctx context.Context, spaceID string) (*model.Snapshot, error)
	ListSpaceFromSeq(ctx context.Context, spaceID string, fromSeq *int64) ([]model.Event, error)
	InsertSnapshot(ctx context.Context, s model.Snapshot) error
}

// IDGenerator produces opaque, store-unique snapshot ids.
type IDGenerator func() string

// Manager runs create_snapshot and the auto-snapshot helpers against a
// Store, using a caller-supplied Reducer.
type Manager struct {
	store   Store
	reducer Reducer
	idGen   IDGenerator
}

// New creates a Manager.
func New(store Store, reducer Reducer, idGen IDGenerator) *Manager {
	return &Manager{store: store, reducer: reducer, idGen: idGen}
}

// CreateSnapshot implements create_snapshot (spec.md §4.7).
func (m *Manager) CreateSnapshot(ctx context.Context, spaceID string) (model.Snapshot, error) {
	latest, err := m.store.LatestSnapshot(ctx, spaceID)
	if err != nil {
		return model.Snapshot{}, model.NewDatabaseError("create_snapshot: latest snapshot", err)
	}

	var fromSeq *int64
	var priorState any
	if latest != nil {
		seq := latest.EventSequenceNumber
		fromSeq = &seq
		priorState = latest.State
	}

	newEvents, err := m.store.ListSpaceFromSeq(ctx, spaceID, fromSeq)
	if err != nil {
		return model.Snapshot{}, model.NewDatabaseError("create_snapshot: load events", err)
	}

	if len(newEvents) == 0 {
		if latest == nil {
			return model.Snapshot{}, &model.SnapshotFailedError{SpaceID: spaceID, Reason: "no events"}
		}
		return model.Snapshot{}, &model.SnapshotFailedError{SpaceID: spaceID, Reason: "already compacted"}
	}

	state := priorState
	for _, e := range newEvents {
		state = m.reducer(state, e)
	}

	final := newEvents[len(newEvents)-1]

	hash, err := canon.SHA256Hex(state)
	if err != nil {
		return model.Snapshot{}, model.NewDatabaseError("create_snapshot: hash state", err)
	}

	s := model.Snapshot{
		ID:                  m.idGen(),
		SpaceID:             spaceID,
		EventSequenceNumber: final.SequenceNumber,
		Timestamp:           final.Timestamp,
		State:               state,
		Hash:                hash,
	}

	if err := m.store.InsertSnapshot(ctx, s); err != nil {
		return model.Snapshot{}, model.NewDatabaseError("create_snapshot: insert", err)
	}

	return s, nil
}

// EventsSinceLastSnapshot is the helper write pipeline's auto-snapshot
// hook (writepipeline.AutoSnapshotter) depends on.
func (m *Manager) EventsSinceLastSnapshot(ctx context.Context, spaceID string) (int64, error) {
	latest, err := m.store.LatestSnapshot(ctx, spaceID)
	if err != nil {
		return 0, model.NewDatabaseError("events_since_last_snapshot: latest snapshot", err)
	}

	var fromSeq *int64
	if latest != nil {
		seq := latest.EventSequenceNumber
		fromSeq = &seq
	}

	newEvents, err := m.store.ListSpaceFromSeq(ctx, spaceID, fromSeq)
	if err != nil {
		return 0, model.NewDatabaseError("events_since_last_snapshot: load events", err)
	}
	return int64(len(newEvents)), nil
}

// ShouldAutoSnapshot implements should_auto_snapshot.
func (m *Manager) ShouldAutoSnapshot(ctx context.Context, spaceID string, interval int64) (bool, error) {
	n, err := m.EventsSinceLastSnapshot(ctx, spaceID)
	if err != nil {
		return false, err
	}
	return n >= interval, nil
}

// TriggerAsync runs CreateSnapshot in the background; its outcome does
// not affect the caller. Matches writepipeline.AutoSnapshotter.
func (m *Manager) TriggerAsync(spaceID string) {
	go func() {
		_, _ = m.CreateSnapshot(context.Background(), spaceID)
	}()
}
