package integrity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Robust-infrastructure/ri-event-log/internal/canon"
	"github.com/Robust-infrastructure/ri-event-log/internal/model"
)

type fakeStore struct {
	bySpace map[string][]model.Event
	order   []string
}

func (s *fakeStore) DistinctSpaceIDs(ctx context.Context) ([]string, error) {
	if s.order != nil {
		return s.order, nil
	}
	var ids []string
	for id := range s.bySpace {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeStore) CountInSpace(ctx context.Context, spaceID string) (int, error) {
	return len(s.bySpace[spaceID]), nil
}

func (s *fakeStore) ListSpaceChunk(ctx context.Context, spaceID string, offset, limit int) ([]model.Event, error) {
	events := s.bySpace[spaceID]
	if offset >= len(events) {
		return nil, nil
	}
	end := offset + limit
	if end > len(events) {
		end = len(events)
	}
	return events[offset:end], nil
}

func hashPtr(s string) *string { return &s }

func buildIntactChain(spaceID string, n int) []model.Event {
	events := make([]model.Event, 0, n)
	var prevHash *string
	for i := 1; i <= n; i++ {
		e := model.Event{
			ID:             spaceID + "-e" + string(rune('0'+i)),
			Type:           model.EventStateChanged,
			SpaceID:        spaceID,
			Timestamp:      "2026-01-01T00:00:00Z",
			SequenceNumber: int64(i),
			PreviousHash:   prevHash,
			Version:        1,
			Payload:        map[string]any{"n": i},
		}
		h, err := canon.SHA256Hex(e.HashInput())
		if err != nil {
			panic(err)
		}
		e.Hash = h
		events = append(events, e)
		prevHash = hashPtr(h)
	}
	return events
}

func TestVerify_IntactSingleSpace(t *testing.T) {
	events := buildIntactChain("space-a", 4)
	store := &fakeStore{bySpace: map[string][]model.Event{"space-a": events}}
	v := New(store)

	report, err := v.Verify(context.Background(), "space-a")
	require.NoError(t, err)
	require.True(t, report.Valid)
	require.Len(t, report.Spaces, 1)
	require.Equal(t, 4, report.Spaces[0].EventsProcessed)
	require.Nil(t, report.Spaces[0].FirstBrokenLink)
}

func TestVerify_GenesisBroken(t *testing.T) {
	events := buildIntactChain("space-a", 2)
	bogus := "bogus"
	events[0].PreviousHash = &bogus
	store := &fakeStore{bySpace: map[string][]model.Event{"space-a": events}}
	v := New(store)

	report, err := v.Verify(context.Background(), "space-a")
	require.NoError(t, err)
	require.False(t, report.Valid)
	require.NotNil(t, report.Spaces[0].FirstBrokenLink)
	require.Equal(t, "null (genesis)", report.Spaces[0].FirstBrokenLink.Expected)
}

func TestVerify_MidChainBroken(t *testing.T) {
	events := buildIntactChain("space-a", 3)
	bogus := "WRONG"
	events[2].PreviousHash = &bogus
	store := &fakeStore{bySpace: map[string][]model.Event{"space-a": events}}
	v := New(store)

	report, err := v.Verify(context.Background(), "space-a")
	require.NoError(t, err)
	require.False(t, report.Valid)
	require.Equal(t, events[1].Hash, report.Spaces[0].FirstBrokenLink.Expected)
	require.Equal(t, "WRONG", report.Spaces[0].FirstBrokenLink.Actual)
	require.Equal(t, 3, report.Spaces[0].EventsProcessed)
}

func TestVerify_TamperedHash(t *testing.T) {
	events := buildIntactChain("space-a", 2)
	events[1].Payload = map[string]any{"tampered": true}
	store := &fakeStore{bySpace: map[string][]model.Event{"space-a": events}}
	v := New(store)

	report, err := v.Verify(context.Background(), "space-a")
	require.NoError(t, err)
	require.False(t, report.Valid)
	require.Equal(t, events[1].ID, report.Spaces[0].FirstBrokenLink.EventID)
}

func TestVerify_FullDBStopsAtFirstBrokenSpace(t *testing.T) {
	good := buildIntactChain("space-good", 2)
	bad := buildIntactChain("space-bad", 2)
	bogus := "bogus"
	bad[0].PreviousHash = &bogus

	store := &fakeStore{
		bySpace: map[string][]model.Event{
			"space-good": good,
			"space-bad":  bad,
		},
		order: []string{"space-good", "space-bad"},
	}
	v := New(store)

	report, err := v.Verify(context.Background(), "")
	require.NoError(t, err)
	require.False(t, report.Valid)
	require.Len(t, report.Spaces, 2)
	require.True(t, report.Spaces[0].Valid)
	require.False(t, report.Spaces[1].Valid)
}
