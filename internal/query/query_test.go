package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Robust-infrastructure/ri-event-log/internal/model"
)

type fakeStore struct {
	events []model.Event
}

func (s *fakeStore) filterSpace(spaceID string) []model.Event {
	var out []model.Event
	for _, e := range s.events {
		if e.SpaceID == spaceID {
			out = append(out, e)
		}
	}
	return out
}

func (s *fakeStore) ListBySpaceSeqRange(ctx context.Context, spaceID string, lowerSeq, upperSeq *int64, desc bool, limit int) ([]model.Event, error) {
	var out []model.Event
	for _, e := range s.filterSpace(spaceID) {
		if lowerSeq != nil && e.SequenceNumber < *lowerSeq {
			continue
		}
		if upperSeq != nil && e.SequenceNumber > *upperSeq {
			continue
		}
		out = append(out, e)
	}
	sortEvents(out, Asc)
	if desc {
		sortEvents(out, Desc)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) CountInSpace(ctx context.Context, spaceID string) (int, error) {
	return len(s.filterSpace(spaceID)), nil
}

func (s *fakeStore) ListByType(ctx context.Context, t model.EventType) ([]model.Event, error) {
	var out []model.Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) CountByType(ctx context.Context, t model.EventType) (int, error) {
	events, _ := s.ListByType(ctx, t)
	return len(events), nil
}

func (s *fakeStore) ListInTimeRange(ctx context.Context, from, to string) ([]model.Event, error) {
	var out []model.Event
	for _, e := range s.events {
		if e.Timestamp >= from && e.Timestamp < to {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) CountInTimeRange(ctx context.Context, from, to string) (int, error) {
	events, _ := s.ListInTimeRange(ctx, from, to)
	return len(events), nil
}

func seedEvents(n int) []model.Event {
	events := make([]model.Event, 0, n)
	for i := 1; i <= n; i++ {
		events = append(events, model.Event{
			ID:             "id-" + string(rune('a'+i)),
			Type:           model.EventStateChanged,
			SpaceID:        "space-a",
			Timestamp:      "2026-01-01T00:00:0" + string(rune('0'+i)) + "Z",
			SequenceNumber: int64(i),
			Hash:           "h" + string(rune('0'+i)),
		})
	}
	return events
}

func TestBySpace_DefaultLimitAndOrder(t *testing.T) {
	store := &fakeStore{events: seedEvents(5)}
	e := New(store)

	page, err := e.BySpace(context.Background(), "space-a", Options{})
	require.NoError(t, err)
	require.Len(t, page.Items, 5)
	require.Equal(t, 5, page.Total)
	require.Empty(t, page.NextCursor)
	require.EqualValues(t, 1, page.Items[0].SequenceNumber)
}

func TestBySpace_PaginatesWithCursor(t *testing.T) {
	store := &fakeStore{events: seedEvents(5)}
	e := New(store)

	page, err := e.BySpace(context.Background(), "space-a", Options{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	next, err := e.BySpace(context.Background(), "space-a", Options{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 2)
	require.EqualValues(t, 3, next.Items[0].SequenceNumber)
}

func TestBySpace_LimitClamping(t *testing.T) {
	store := &fakeStore{events: seedEvents(3)}
	e := New(store)

	page, err := e.BySpace(context.Background(), "space-a", Options{Limit: 0})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)

	page, err = e.BySpace(context.Background(), "space-a", Options{Limit: 5000})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
}

func TestBySpace_InvalidCursor(t *testing.T) {
	store := &fakeStore{events: seedEvents(3)}
	e := New(store)

	_, err := e.BySpace(context.Background(), "space-a", Options{Cursor: "not-base64!!"})
	require.Error(t, err)
	var invalid *model.InvalidQueryError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "cursor", invalid.Field)
}

func TestByTime_ValidatesInstants(t *testing.T) {
	store := &fakeStore{events: seedEvents(3)}
	e := New(store)

	_, err := e.ByTime(context.Background(), "not-a-time", "2026-01-01T00:00:05Z", Options{})
	require.Error(t, err)
	var invalid *model.InvalidQueryError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "from", invalid.Field)
}

func TestByTime_RangeIsFromInclusiveToExclusive(t *testing.T) {
	store := &fakeStore{events: seedEvents(9)}
	e := New(store)

	page, err := e.ByTime(context.Background(), "2026-01-01T00:00:03Z", "2026-01-01T00:00:07Z", Options{})
	require.NoError(t, err)
	require.Equal(t, 4, page.Total)
	require.Len(t, page.Items, 4)
	require.Empty(t, page.NextCursor)
}

func TestByType_DescendingOrder(t *testing.T) {
	store := &fakeStore{events: seedEvents(4)}
	e := New(store)

	page, err := e.ByType(context.Background(), model.EventStateChanged, Options{Order: Desc})
	require.NoError(t, err)
	require.Len(t, page.Items, 4)
	require.EqualValues(t, 4, page.Items[0].SequenceNumber)
	require.EqualValues(t, 1, page.Items[3].SequenceNumber)
}
