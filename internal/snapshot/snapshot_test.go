package snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Robust-infrastructure/ri-event-log/internal/model"
)

type fakeStore struct {
	events    map[string][]model.Event
	snapshots map[string][]model.Snapshot
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: make(map[string][]model.Event), snapshots: make(map[string][]model.Snapshot)}
}

func (s *fakeStore) LatestSnapshot(ctx context.Context, spaceID string) (*model.Snapshot, error) {
	snaps := s.snapshots[spaceID]
	if len(snaps) == 0 {
		return nil, nil
	}
	latest := snaps[0]
	for _, sn := range snaps[1:] {
		if sn.EventSequenceNumber > latest.EventSequenceNumber {
			latest = sn
		}
	}
	return &latest, nil
}

func (s *fakeStore) ListSpaceFromSeq(ctx context.Context, spaceID string, fromSeq *int64) ([]model.Event, error) {
	var out []model.Event
	for _, e := range s.events[spaceID] {
		if fromSeq == nil || e.SequenceNumber > *fromSeq {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) CountInSpace(ctx context.Context, spaceID string) (int, error) {
	return len(s.events[spaceID]), nil
}

func (s *fakeStore) InsertSnapshot(ctx context.Context, sn model.Snapshot) error {
	s.snapshots[sn.SpaceID] = append(s.snapshots[sn.SpaceID], sn)
	return nil
}

func lastWriteWins(state any, e model.Event) any {
	return e.Payload
}

func countingReducer(state any, e model.Event) any {
	n, _ := state.(float64)
	return n + 1
}

func seedSpaceEvents(spaceID string, n int) []model.Event {
	var out []model.Event
	for i := 1; i <= n; i++ {
		out = append(out, model.Event{
			ID:             spaceID + "-e" + string(rune('0'+i)),
			Type:           model.EventStateChanged,
			SpaceID:        spaceID,
			Timestamp:      "2026-01-01T00:00:0" + string(rune('0'+i)) + "Z",
			SequenceNumber: int64(i),
			Payload:        map[string]any{"n": float64(i)},
		})
	}
	return out
}

func TestCreateSnapshot_NoEvents(t *testing.T) {
	store := newFakeStore()
	m := New(store, lastWriteWins, func() string { return "snap-1" })

	_, err := m.CreateSnapshot(context.Background(), "space-a")
	require.Error(t, err)
	var failed *model.SnapshotFailedError
	require.ErrorAs(t, err, &failed)
	require.Equal(t, "no events", failed.Reason)
}

func TestCreateSnapshot_FoldsFromGenesis(t *testing.T) {
	store := newFakeStore()
	store.events["space-a"] = seedSpaceEvents("space-a", 3)
	m := New(store, lastWriteWins, func() string { return "snap-1" })

	s, err := m.CreateSnapshot(context.Background(), "space-a")
	require.NoError(t, err)
	require.Equal(t, "snap-1", s.ID)
	require.EqualValues(t, 3, s.EventSequenceNumber)
	require.Equal(t, map[string]any{"n": float64(3)}, s.State)
	require.NotEmpty(t, s.Hash)
}

func TestCreateSnapshot_AlreadyCompacted(t *testing.T) {
	store := newFakeStore()
	store.events["space-a"] = seedSpaceEvents("space-a", 2)
	m := New(store, lastWriteWins, func() string { return "snap-1" })

	_, err := m.CreateSnapshot(context.Background(), "space-a")
	require.NoError(t, err)

	_, err = m.CreateSnapshot(context.Background(), "space-a")
	require.Error(t, err)
	var failed *model.SnapshotFailedError
	require.ErrorAs(t, err, &failed)
	require.Equal(t, "already compacted", failed.Reason)
}

func TestCreateSnapshot_FoldsFromPriorSnapshotState(t *testing.T) {
	store := newFakeStore()
	store.events["space-a"] = seedSpaceEvents("space-a", 2)
	m := New(store, countingReducer, func() string { return "snap-1" })

	first, err := m.CreateSnapshot(context.Background(), "space-a")
	require.NoError(t, err)
	require.Equal(t, float64(2), first.State)

	store.events["space-a"] = append(store.events["space-a"], seedSpaceEvents("space-a", 3)[2])
	second, err := m.CreateSnapshot(context.Background(), "space-a")
	require.NoError(t, err)
	require.Equal(t, float64(3), second.State)
}

func TestEventsSinceLastSnapshot(t *testing.T) {
	store := newFakeStore()
	store.events["space-a"] = seedSpaceEvents("space-a", 5)
	m := New(store, lastWriteWins, func() string { return "snap-1" })

	n, err := m.EventsSinceLastSnapshot(context.Background(), "space-a")
	require.NoError(t, err)
	require.EqualValues(t, 5, n)

	_, err = m.CreateSnapshot(context.Background(), "space-a")
	require.NoError(t, err)

	n, err = m.EventsSinceLastSnapshot(context.Background(), "space-a")
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
}

func TestShouldAutoSnapshot(t *testing.T) {
	store := newFakeStore()
	store.events["space-a"] = seedSpaceEvents("space-a", 5)
	m := New(store, lastWriteWins, func() string { return "snap-1" })

	should, err := m.ShouldAutoSnapshot(context.Background(), "space-a", 10)
	require.NoError(t, err)
	require.False(t, should)

	should, err = m.ShouldAutoSnapshot(context.Background(), "space-a", 5)
	require.NoError(t, err)
	require.True(t, should)
}
