package chainlink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Robust-infrastructure/ri-event-log/internal/model"
)

type fakeReader struct {
	tail *model.Event
}

func (f fakeReader) LatestInSpace(ctx context.Context, spaceID string) (*model.Event, error) {
	return f.tail, nil
}

func TestNext_Genesis(t *testing.T) {
	prev, seq, err := Next(context.Background(), fakeReader{}, "s")
	require.NoError(t, err)
	require.Nil(t, prev)
	require.Equal(t, int64(1), seq)
}

func TestNext_Continuation(t *testing.T) {
	tail := &model.Event{Hash: "abc", SequenceNumber: 4}
	prev, seq, err := Next(context.Background(), fakeReader{tail: tail}, "s")
	require.NoError(t, err)
	require.NotNil(t, prev)
	require.Equal(t, "abc", *prev)
	require.Equal(t, int64(5), seq)
}

func hashPtr(s string) *string { return &s }

func TestVerifyLinks_Intact(t *testing.T) {
	events := []model.Event{
		{Hash: "h1", PreviousHash: nil},
		{Hash: "h2", PreviousHash: hashPtr("h1")},
		{Hash: "h3", PreviousHash: hashPtr("h2")},
	}
	require.Equal(t, BrokenLinkSentinel, VerifyLinks(events))
}

func TestVerifyLinks_GenesisBroken(t *testing.T) {
	events := []model.Event{
		{Hash: "h1", PreviousHash: hashPtr("bogus")},
	}
	require.Equal(t, 0, VerifyLinks(events))
}

func TestVerifyLinks_MidChainBroken(t *testing.T) {
	events := []model.Event{
		{Hash: "h1", PreviousHash: nil},
		{Hash: "h2", PreviousHash: hashPtr("WRONG")},
	}
	require.Equal(t, 1, VerifyLinks(events))
}

func TestVerifyLinks_Empty(t *testing.T) {
	require.Equal(t, BrokenLinkSentinel, VerifyLinks(nil))
}
