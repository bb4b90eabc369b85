package diffsource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Robust-infrastructure/ri-event-log/internal/canon"
	"github.com/Robust-infrastructure/ri-event-log/internal/model"
)

type fakeStore struct {
	events []model.Event
}

func (s *fakeStore) ListSpaceFromSeq(ctx context.Context, spaceID string, fromSeq *int64) ([]model.Event, error) {
	return s.events, nil
}

func mustHash(t *testing.T, state any) string {
	h, err := canon.SHA256Hex(state)
	require.NoError(t, err)
	return h
}

func TestReconstructSource_AppliesAddAndModify(t *testing.T) {
	genesis := model.Event{
		ID: "g1", Type: model.EventSpaceCreated, SpaceID: "s",
		SequenceNumber: 1, Timestamp: "2026-01-01T00:00:00Z",
		Payload: map[string]any{"source": `{"name":"root","children":[]}`},
	}
	initialState, err := initialSource(genesis)
	require.NoError(t, err)

	afterAdd, err := setAtPath(initialState, []string{"version"}, float64(1))
	require.NoError(t, err)
	hash1 := mustHash(t, afterAdd)

	step1 := model.Event{
		ID: "e1", Type: model.EventSpaceEvolved, SpaceID: "s",
		SequenceNumber: 2, Timestamp: "2026-01-01T00:00:01Z",
		Payload: map[string]any{
			"ast_diff": []any{
				map[string]any{"path": "version", "operation": "add", "after": float64(1)},
			},
			"source_hash": hash1,
		},
	}

	afterModify, err := setAtPath(afterAdd, []string{"name"}, "renamed")
	require.NoError(t, err)
	hash2 := mustHash(t, afterModify)

	step2 := model.Event{
		ID: "e2", Type: model.EventSpaceEvolved, SpaceID: "s",
		SequenceNumber: 3, Timestamp: "2026-01-01T00:00:02Z",
		Payload: map[string]any{
			"ast_diff": []any{
				map[string]any{"path": "name", "operation": "modify", "after": "renamed"},
			},
			"source_hash": hash2,
		},
	}

	store := &fakeStore{events: []model.Event{genesis, step1, step2}}
	result, err := New(store).ReconstructSource(context.Background(), "s", "")
	require.NoError(t, err)
	require.Equal(t, 2, result.Steps)

	got := result.Source.(map[string]any)
	require.Equal(t, "renamed", got["name"])
}

func TestReconstructSource_RemoveIsNoOpWhenPathAbsent(t *testing.T) {
	genesis := model.Event{
		ID: "g1", Type: model.EventSpaceCreated, SpaceID: "s",
		SequenceNumber: 1, Timestamp: "2026-01-01T00:00:00Z",
		Payload: map[string]any{"source": `{"name":"root"}`},
	}
	initialState, _ := initialSource(genesis)
	hash := mustHash(t, initialState)

	step := model.Event{
		ID: "e1", Type: model.EventSpaceEvolved, SpaceID: "s",
		SequenceNumber: 2, Timestamp: "2026-01-01T00:00:01Z",
		Payload: map[string]any{
			"ast_diff": []any{
				map[string]any{"path": "missing.nested", "operation": "remove"},
			},
			"source_hash": hash,
		},
	}

	store := &fakeStore{events: []model.Event{genesis, step}}
	result, err := New(store).ReconstructSource(context.Background(), "s", "")
	require.NoError(t, err)
	require.Equal(t, "root", result.Source.(map[string]any)["name"])
}

func TestReconstructSource_HashMismatchFails(t *testing.T) {
	genesis := model.Event{
		ID: "g1", Type: model.EventSpaceCreated, SpaceID: "s",
		SequenceNumber: 1, Timestamp: "2026-01-01T00:00:00Z",
		Payload: map[string]any{"source": `{"name":"root"}`},
	}
	step := model.Event{
		ID: "e1", Type: model.EventSpaceEvolved, SpaceID: "s",
		SequenceNumber: 2, Timestamp: "2026-01-01T00:00:01Z",
		Payload: map[string]any{
			"ast_diff": []any{
				map[string]any{"path": "name", "operation": "modify", "after": "renamed"},
			},
			"source_hash": "0000000000000000000000000000000000000000000000000000000000000000",
		},
	}

	store := &fakeStore{events: []model.Event{genesis, step}}
	_, err := New(store).ReconstructSource(context.Background(), "s", "")
	require.Error(t, err)

	var invalidEvent *model.InvalidEventError
	require.ErrorAs(t, err, &invalidEvent)
	require.Equal(t, "sourceHash", invalidEvent.Field)
}

func TestReconstructSource_WrapsNonJSONSource(t *testing.T) {
	genesis := model.Event{
		ID: "g1", Type: model.EventSpaceCreated, SpaceID: "s",
		SequenceNumber: 1, Timestamp: "2026-01-01T00:00:00Z",
		Payload: map[string]any{"source": "package main\n\nfunc main() {}\n"},
	}

	store := &fakeStore{events: []model.Event{genesis}}
	result, err := New(store).ReconstructSource(context.Background(), "s", "")
	require.NoError(t, err)

	got := result.Source.(map[string]any)
	require.Equal(t, "package main\n\nfunc main() {}\n", got["source"])
}

func TestReconstructSource_RejectsNoEvents(t *testing.T) {
	store := &fakeStore{}
	_, err := New(store).ReconstructSource(context.Background(), "s", "")
	require.Error(t, err)
	var invalidEvent *model.InvalidEventError
	require.ErrorAs(t, err, &invalidEvent)
}

func TestReconstructSource_InvalidAtTimestamp(t *testing.T) {
	store := &fakeStore{events: []model.Event{{
		Type: model.EventSpaceCreated, SpaceID: "s", SequenceNumber: 1,
		Payload: map[string]any{"source": `{}`},
	}}}
	_, err := New(store).ReconstructSource(context.Background(), "s", "not-a-timestamp")
	require.Error(t, err)
	var invalidQuery *model.InvalidQueryError
	require.ErrorAs(t, err, &invalidQuery)
}

func TestSetAtPath_IsImmutable(t *testing.T) {
	original := map[string]any{"a": map[string]any{"b": float64(1)}}
	updated, err := setAtPath(original, []string{"a", "b"}, float64(2))
	require.NoError(t, err)

	updatedMap := updated.(map[string]any)
	require.Equal(t, float64(2), updatedMap["a"].(map[string]any)["b"])
	require.Equal(t, float64(1), original["a"].(map[string]any)["b"])
}
