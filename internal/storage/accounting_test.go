package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Robust-infrastructure/ri-event-log/internal/model"
)

type fakeStore struct {
	events    []model.Event
	snapshots []model.Snapshot
}

func (s *fakeStore) AllEventsOrdered(ctx context.Context) ([]model.Event, error) {
	return s.events, nil
}

func (s *fakeStore) AllSnapshots(ctx context.Context) ([]model.Snapshot, error) {
	return s.snapshots, nil
}

func TestUsage_TalliesPerSpaceSortedByID(t *testing.T) {
	store := &fakeStore{
		events: []model.Event{
			{ID: "e1", SpaceID: "beta", Timestamp: "2026-01-02T00:00:00Z", Payload: map[string]any{"n": float64(1)}},
			{ID: "e2", SpaceID: "alpha", Timestamp: "2026-01-01T00:00:00Z", Payload: map[string]any{"n": float64(2)}},
			{ID: "e3", SpaceID: "alpha", Timestamp: "2026-01-03T00:00:00Z", Payload: map[string]any{"n": float64(3)}},
		},
		snapshots: []model.Snapshot{
			{ID: "s1", SpaceID: "alpha", State: map[string]any{"x": float64(1)}},
		},
	}

	report, err := New(store).Usage(context.Background())
	require.NoError(t, err)

	require.Equal(t, 3, report.TotalEvents)
	require.Equal(t, 1, report.TotalSnapshots)
	require.Equal(t, "2026-01-01T00:00:00Z", report.EarliestTimestamp)
	require.Equal(t, "2026-01-03T00:00:00Z", report.LatestTimestamp)

	require.Len(t, report.Spaces, 2)
	require.Equal(t, "alpha", report.Spaces[0].SpaceID)
	require.Equal(t, 2, report.Spaces[0].EventCount)
	require.Equal(t, 1, report.Spaces[0].SnapshotCount)
	require.Equal(t, "beta", report.Spaces[1].SpaceID)
	require.Equal(t, 1, report.Spaces[1].EventCount)

	require.Greater(t, report.EstimatedBytes, int64(0))
}

func TestUsage_EmptyStore(t *testing.T) {
	report, err := New(&fakeStore{}).Usage(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.TotalEvents)
	require.Zero(t, report.TotalSnapshots)
	require.Empty(t, report.Spaces)
	require.Empty(t, report.EarliestTimestamp)
}
