package archive

import (
	"context"
	"time"

	"github.com/Robust-infrastructure/ri-event-log/internal/chainlink"
	"github.com/Robust-infrastructure/ri-event-log/internal/model"
)

// Store is the subset of the record store the exporter needs.
type Store interface {
	ListSpaceBeforeOrdered(ctx context.Context, spaceID, beforeDate string) ([]model.Event, error)
}

// Exporter implements export_archive (spec.md §4.10).
type Exporter struct {
	store Store
}

// NewExporter creates an Exporter.
func NewExporter(store Store) *Exporter {
	return &Exporter{store: store}
}

// Export runs export_archive: load, chain-verify, serialize, compress,
// and assemble the archive bytes.
func (x *Exporter) Export(ctx context.Context, spaceID, beforeDate string) ([]byte, error) {
	if _, err := time.Parse(time.RFC3339, beforeDate); err != nil {
		return nil, &model.InvalidQueryError{Field: "beforeDate", Reason: "must be a valid ISO-8601 instant"}
	}

	events, err := x.store.ListSpaceBeforeOrdered(ctx, spaceID, beforeDate)
	if err != nil {
		return nil, model.NewDatabaseError("export_archive: load events", err)
	}

	if broken := chainlink.VerifyLinks(events); broken != chainlink.BrokenLinkSentinel {
		return nil, brokenLinkError(events, broken)
	}

	return Encode(events)
}

func brokenLinkError(events []model.Event, index int) error {
	cur := events[index]
	if index == 0 {
		expected := "null"
		actual := "unknown"
		if cur.PreviousHash != nil {
			actual = *cur.PreviousHash
		}
		return &model.IntegrityViolationError{EventID: cur.ID, Expected: expected, Actual: actual}
	}

	expected := events[index-1].Hash
	actual := "unknown"
	if cur.PreviousHash != nil {
		actual = *cur.PreviousHash
	}
	return &model.IntegrityViolationError{EventID: cur.ID, Expected: expected, Actual: actual}
}
