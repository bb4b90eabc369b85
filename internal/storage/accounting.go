// Package storage implements storage accounting (spec.md §4.12) and the
// pressure classifier (spec.md §4.13): a single full scan over events
// and snapshots that tallies an estimated byte cost, and a pure
// threshold function over the resulting report.
package storage

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/Robust-infrastructure/ri-event-log/internal/model"
)

// Store is the subset of the record store storage accounting needs.
type Store interface {
	AllEventsOrdered(ctx context.Context) ([]model.Event, error)
	AllSnapshots(ctx context.Context) ([]model.Snapshot, error)
}

// SpaceUsage is one space's tally within a Report.
type SpaceUsage struct {
	SpaceID        string
	EventCount     int
	SnapshotCount  int
	EstimatedBytes int64
}

// Report is the result of get_storage_usage.
type Report struct {
	TotalEvents       int
	TotalSnapshots    int
	EstimatedBytes    int64
	Spaces            []SpaceUsage
	EarliestTimestamp string
	LatestTimestamp   string
}

// Accountant runs get_storage_usage against a Store.
type Accountant struct {
	store Store
}

// New creates an Accountant.
func New(store Store) *Accountant {
	return &Accountant{store: store}
}

// Usage implements get_storage_usage (spec.md §4.12): one pass over
// every event and every snapshot, computing an estimated byte cost per
// record as its JSON-string length, summing totals and per-space
// tallies, and tracking the lexicographic min/max timestamp seen.
// Per-space entries are returned sorted by space_id.
func (a *Accountant) Usage(ctx context.Context) (Report, error) {
	events, err := a.store.AllEventsOrdered(ctx)
	if err != nil {
		return Report{}, model.NewDatabaseError("get_storage_usage: load events", err)
	}
	snapshots, err := a.store.AllSnapshots(ctx)
	if err != nil {
		return Report{}, model.NewDatabaseError("get_storage_usage: load snapshots", err)
	}

	tallies := make(map[string]*SpaceUsage)
	order := func(spaceID string) *SpaceUsage {
		su, ok := tallies[spaceID]
		if !ok {
			su = &SpaceUsage{SpaceID: spaceID}
			tallies[spaceID] = su
		}
		return su
	}

	var report Report
	for _, e := range events {
		size := estimateSize(e)
		report.TotalEvents++
		report.EstimatedBytes += size

		su := order(e.SpaceID)
		su.EventCount++
		su.EstimatedBytes += size

		if report.EarliestTimestamp == "" || e.Timestamp < report.EarliestTimestamp {
			report.EarliestTimestamp = e.Timestamp
		}
		if report.LatestTimestamp == "" || e.Timestamp > report.LatestTimestamp {
			report.LatestTimestamp = e.Timestamp
		}
	}

	for _, s := range snapshots {
		size := estimateSize(s)
		report.TotalSnapshots++
		report.EstimatedBytes += size

		su := order(s.SpaceID)
		su.SnapshotCount++
		su.EstimatedBytes += size
	}

	spaceIDs := make([]string, 0, len(tallies))
	for id := range tallies {
		spaceIDs = append(spaceIDs, id)
	}
	sort.Strings(spaceIDs)

	report.Spaces = make([]SpaceUsage, 0, len(spaceIDs))
	for _, id := range spaceIDs {
		report.Spaces = append(report.Spaces, *tallies[id])
	}

	return report, nil
}

// estimateSize returns the estimated byte cost of a record: the length
// of its plain JSON encoding. This is advisory, not the canonical or
// archive serialization — spec.md §4.12 only requires "JSON-string
// length is acceptable".
func estimateSize(v any) int64 {
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return int64(len(b))
}
