// Package chainlink computes the next link in a space's hash chain and
// verifies that an ordered run of events forms an unbroken chain
// (spec.md §4.3).
package chainlink

import (
	"context"
	"fmt"

	"github.com/Robust-infrastructure/ri-event-log/internal/model"
)

// Reader is the subset of the record store the chain linker needs: the
// tail event of a space, by the (space_id, sequence_number) index.
type Reader interface {
	LatestInSpace(ctx context.Context, spaceID string) (*model.Event, error)
}

// Next returns the previous_hash and sequence_number a new event in
// spaceID must use: (nil, 1) for a genesis write, or (tail.Hash,
// tail.SequenceNumber+1) otherwise.
func Next(ctx context.Context, r Reader, spaceID string) (previousHash *string, nextSeq int64, err error) {
	tail, err := r.LatestInSpace(ctx, spaceID)
	if err != nil {
		return nil, 0, fmt.Errorf("chainlink: next: %w", err)
	}
	if tail == nil {
		return nil, 1, nil
	}
	hash := tail.Hash
	return &hash, tail.SequenceNumber + 1, nil
}

// BrokenLinkSentinel is returned by VerifyLinks when the chain is intact.
const BrokenLinkSentinel = -1

// VerifyLinks checks that an ordered run of events from a single space
// forms an unbroken hash chain: the first element has a nil
// previous_hash, and every subsequent element's previous_hash equals its
// predecessor's hash. Returns the index of the first broken link, or
// BrokenLinkSentinel if the chain is intact. events must already be
// sorted by sequence_number ascending; VerifyLinks does not sort.
func VerifyLinks(events []model.Event) int {
	if len(events) == 0 {
		return BrokenLinkSentinel
	}
	if events[0].PreviousHash != nil {
		return 0
	}
	for i := 1; i < len(events); i++ {
		prevHash := events[i-1].Hash
		cur := events[i].PreviousHash
		if cur == nil || *cur != prevHash {
			return i
		}
	}
	return BrokenLinkSentinel
}
