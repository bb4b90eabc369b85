// Package writepipeline implements the event log's sole write path
// (spec.md §4.4): synchronous validation, a per-space lock serializing
// the read-tail/compute-hash/insert sequence, and an auto-snapshot hook
// fired outside that lock once the insert commits.
package writepipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Robust-infrastructure/ri-event-log/internal/canon"
	"github.com/Robust-infrastructure/ri-event-log/internal/chainlink"
	"github.com/Robust-infrastructure/ri-event-log/internal/model"
)

// Store is the subset of the record store the write pipeline needs.
type Store interface {
	chainlink.Reader
	InsertEvent(ctx context.Context, e model.Event) error
}

// AutoSnapshotter is C7's auto-snapshot helper (spec.md §4.4, §4.7),
// injected so the write pipeline never imports the snapshot package
// directly.
type AutoSnapshotter interface {
	EventsSinceLastSnapshot(ctx context.Context, spaceID string) (int64, error)
	TriggerAsync(spaceID string)
}

// EventInput is the caller-supplied shape for WriteEvent.
type EventInput struct {
	Type      model.EventType
	SpaceID   string
	Timestamp string
	Version   int
	Payload   map[string]any
}

// Pipeline is the write path for one EventLog instance: one store, one
// id generator, one snapshot interval, one lock table.
type Pipeline struct {
	store            Store
	idGen            IDGenerator
	snapshotInterval int
	autoSnapshot     AutoSnapshotter
	locks            *spaceLockTable
	logger           *slog.Logger
}

// New creates a Pipeline. autoSnapshot may be nil to disable the
// auto-snapshot hook entirely.
func New(store Store, idGen IDGenerator, snapshotInterval int, autoSnapshot AutoSnapshotter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:            store,
		idGen:            idGen,
		snapshotInterval: snapshotInterval,
		autoSnapshot:     autoSnapshot,
		locks:            newSpaceLockTable(),
		logger:           logger,
	}
}

// WriteEvent validates, chains, hashes, and commits a new event. See
// spec.md §4.4 for the full contract.
func (p *Pipeline) WriteEvent(ctx context.Context, in EventInput) (model.Event, error) {
	if err := validate(in); err != nil {
		return model.Event{}, err
	}

	release := p.locks.Acquire(in.SpaceID)

	e, err := p.writeLocked(ctx, in)
	release()

	if err != nil {
		return model.Event{}, err
	}

	p.logger.Debug("event written", "space_id", e.SpaceID, "sequence_number", e.SequenceNumber, "type", string(e.Type))

	p.maybeAutoSnapshot(ctx, e.SpaceID)

	return e, nil
}

// writeLocked performs the read-tail/hash/insert sequence. The caller
// must hold the per-space lock for in.SpaceID.
func (p *Pipeline) writeLocked(ctx context.Context, in EventInput) (model.Event, error) {
	if err := ctx.Err(); err != nil {
		return model.Event{}, err
	}

	prevHash, seq, err := chainlink.Next(ctx, p.store, in.SpaceID)
	if err != nil {
		return model.Event{}, model.NewDatabaseError("write_event: read tail", err)
	}

	e := model.Event{
		ID:             p.idGen(),
		Type:           in.Type,
		SpaceID:        in.SpaceID,
		Timestamp:      in.Timestamp,
		SequenceNumber: seq,
		PreviousHash:   prevHash,
		Version:        in.Version,
		Payload:        in.Payload,
	}

	hash, err := canon.SHA256Hex(e.HashInput())
	if err != nil {
		return model.Event{}, fmt.Errorf("write_event: hash: %w", err)
	}
	e.Hash = hash

	if err := p.store.InsertEvent(ctx, e); err != nil {
		return model.Event{}, model.NewDatabaseError("write_event: insert", err)
	}

	return e, nil
}

// maybeAutoSnapshot is called outside the per-space lock after a
// successful write, per spec §4.4. Its own failure never affects the
// write result.
func (p *Pipeline) maybeAutoSnapshot(ctx context.Context, spaceID string) {
	if p.autoSnapshot == nil || p.snapshotInterval <= 0 {
		return
	}
	n, err := p.autoSnapshot.EventsSinceLastSnapshot(ctx, spaceID)
	if err != nil {
		p.logger.Warn("auto-snapshot check failed", "space_id", spaceID, "error", err)
		return
	}
	if n >= int64(p.snapshotInterval) {
		p.autoSnapshot.TriggerAsync(spaceID)
	}
}

func validate(in EventInput) error {
	if strings.TrimSpace(in.SpaceID) == "" {
		return &model.InvalidEventError{Field: "spaceId", Reason: "must not be empty"}
	}
	if !model.IsValidEventType(in.Type) {
		return &model.InvalidEventError{Field: "type", Reason: fmt.Sprintf("%q is not one of the enumerated event types", in.Type)}
	}
	if strings.TrimSpace(in.Timestamp) == "" {
		return &model.InvalidEventError{Field: "timestamp", Reason: "must not be empty"}
	}
	if _, err := time.Parse(time.RFC3339, in.Timestamp); err != nil {
		return &model.InvalidEventError{Field: "timestamp", Reason: "must be a valid ISO-8601 instant"}
	}
	if in.Version < 1 {
		return &model.InvalidEventError{Field: "version", Reason: "must be an integer >= 1"}
	}
	return nil
}
