// Package eventlog is the public facade of the embedded, append-only,
// cryptographically chained event log described by spec.md: it wires
// the canonical hasher, record store, chain linker, write pipeline,
// query engine, integrity verifier, snapshot manager, state
// reconstructor, archive codec, storage accounting, compaction, and
// diff-source reconstructor behind a single Log type.
package eventlog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Robust-infrastructure/ri-event-log/internal/archive"
	"github.com/Robust-infrastructure/ri-event-log/internal/compaction"
	"github.com/Robust-infrastructure/ri-event-log/internal/diffsource"
	"github.com/Robust-infrastructure/ri-event-log/internal/integrity"
	"github.com/Robust-infrastructure/ri-event-log/internal/model"
	"github.com/Robust-infrastructure/ri-event-log/internal/query"
	"github.com/Robust-infrastructure/ri-event-log/internal/reconstruct"
	"github.com/Robust-infrastructure/ri-event-log/internal/snapshot"
	"github.com/Robust-infrastructure/ri-event-log/internal/storage"
	"github.com/Robust-infrastructure/ri-event-log/internal/store"
	"github.com/Robust-infrastructure/ri-event-log/internal/writepipeline"
)

// Re-exported types so callers only need to import this one package
// for the facade's signatures.
type (
	Event            = model.Event
	EventType        = model.EventType
	Snapshot         = model.Snapshot
	EventInput       = writepipeline.EventInput
	QueryOptions     = query.Options
	Page             = query.Page
	Order            = query.Order
	IntegrityReport  = integrity.Report
	CompactionReport = compaction.Report
	StorageReport    = storage.Report
	PressureReport   = storage.Pressure
	ImportReport     = archive.ImportReport
	ReconstructedSource = diffsource.Result
)

// The two pagination sort orders (spec.md §4.5).
const (
	Asc  = query.Asc
	Desc = query.Desc
)

// The eleven enumerated event type tags (spec.md §3).
const (
	EventSpaceCreated    = model.EventSpaceCreated
	EventSpaceEvolved    = model.EventSpaceEvolved
	EventSpaceForked     = model.EventSpaceForked
	EventSpaceDeleted    = model.EventSpaceDeleted
	EventStateChanged    = model.EventStateChanged
	EventActionInvoked   = model.EventActionInvoked
	EventIntentSubmitted = model.EventIntentSubmitted
	EventIntentQueued    = model.EventIntentQueued
	EventIntentResolved  = model.EventIntentResolved
	EventUserFeedback    = model.EventUserFeedback
	EventSystemEvent     = model.EventSystemEvent
)

// Log is one event-log instance: one record store, one write pipeline,
// and every read-side component wired over the same store. Distinct
// Log instances (distinct database names) are fully independent —
// nothing here is process-global (spec.md §5).
type Log struct {
	cfg Config

	store *store.Store

	pipeline      *writepipeline.Pipeline
	queries       *query.Engine
	verifier      *integrity.Verifier
	snapshots     *snapshot.Manager
	reconstructor *reconstruct.Reconstructor
	exporter      *archive.Exporter
	importer      *archive.Importer
	accountant    *storage.Accountant
	compactor     *compaction.Compactor
	sourceRebuild *diffsource.Reconstructor

	logger *slog.Logger
}

// Open creates or opens the record store at cfg.DatabaseName and wires
// every component over it. The returned Log owns the store; callers
// must call Close when done.
func Open(ctx context.Context, cfg Config) (*Log, error) {
	cfg = cfg.withDefaults()
	if cfg.HashAlgorithm != "SHA-256" {
		return nil, fmt.Errorf("eventlog: unsupported hash_algorithm %q: only \"SHA-256\" is permitted", cfg.HashAlgorithm)
	}

	st, err := store.Open(ctx, cfg.DatabaseName, cfg.SchemaVersion)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "eventlog")

	snapshots := snapshot.New(st, snapshot.Reducer(cfg.StateReducer), snapshot.IDGenerator(cfg.IDGenerator))
	pipeline := writepipeline.New(st, writepipeline.IDGenerator(cfg.IDGenerator), cfg.SnapshotInterval, snapshots, logger)

	l := &Log{
		cfg:           cfg,
		store:         st,
		pipeline:      pipeline,
		queries:       query.New(st, cfg.MaxEventsPerQuery),
		verifier:      integrity.New(st),
		snapshots:     snapshots,
		reconstructor: reconstruct.New(st, snapshot.Reducer(cfg.StateReducer)),
		exporter:      archive.NewExporter(st),
		importer:      archive.NewImporter(st),
		accountant:    storage.New(st),
		compactor:      compaction.New(snapshots, st),
		sourceRebuild: diffsource.New(st),
		logger:        logger,
	}
	return l, nil
}

// Close releases the underlying record store connection.
func (l *Log) Close() error {
	return l.store.Close()
}

// WriteEvent implements write_event (spec.md §4.4).
func (l *Log) WriteEvent(ctx context.Context, in EventInput) (Event, error) {
	return l.pipeline.WriteEvent(ctx, in)
}

// QueryBySpace implements query_by_space (spec.md §4.5).
func (l *Log) QueryBySpace(ctx context.Context, spaceID string, opts QueryOptions) (Page, error) {
	return l.queries.BySpace(ctx, spaceID, opts)
}

// QueryByType implements query_by_type (spec.md §4.5).
func (l *Log) QueryByType(ctx context.Context, eventType EventType, opts QueryOptions) (Page, error) {
	return l.queries.ByType(ctx, eventType, opts)
}

// QueryByTime implements query_by_time (spec.md §4.5).
func (l *Log) QueryByTime(ctx context.Context, from, to string, opts QueryOptions) (Page, error) {
	return l.queries.ByTime(ctx, from, to, opts)
}

// ReconstructState implements reconstruct_state (spec.md §4.8).
// atTimestamp may be nil to request the current state.
func (l *Log) ReconstructState(ctx context.Context, spaceID string, atTimestamp *string) (any, error) {
	ts := ""
	if atTimestamp != nil {
		ts = *atTimestamp
	}
	return l.reconstructor.ReconstructState(ctx, spaceID, ts)
}

// VerifyIntegrity implements verify_integrity (spec.md §4.6). spaceID
// may be nil to verify every distinct space in the store.
func (l *Log) VerifyIntegrity(ctx context.Context, spaceID *string) (IntegrityReport, error) {
	id := ""
	if spaceID != nil {
		id = *spaceID
	}
	return l.verifier.Verify(ctx, id)
}

// CreateSnapshot implements create_snapshot (spec.md §4.7).
func (l *Log) CreateSnapshot(ctx context.Context, spaceID string) (Snapshot, error) {
	return l.snapshots.CreateSnapshot(ctx, spaceID)
}

// Compact implements compact (spec.md §4.14).
func (l *Log) Compact(ctx context.Context, spaceID string) (CompactionReport, error) {
	return l.compactor.Compact(ctx, spaceID)
}

// StorageUsage implements get_storage_usage (spec.md §4.12).
func (l *Log) StorageUsage(ctx context.Context) (StorageReport, error) {
	return l.accountant.Usage(ctx)
}

// PressureLevel runs get_storage_usage and classifies the result against
// Config.AvailableBytes (spec.md §4.13). This is a (DOMAIN EXPANSION):
// spec.md's classify_pressure is pure over an already-computed report,
// but never specifies where available_bytes at the facade level comes
// from; Config.AvailableBytes supplies it here.
func (l *Log) PressureLevel(ctx context.Context) (PressureReport, error) {
	report, err := l.accountant.Usage(ctx)
	if err != nil {
		return PressureReport{}, err
	}
	return storage.ClassifyPressure(report, l.cfg.AvailableBytes), nil
}

// ExportArchive implements export_archive (spec.md §4.10).
func (l *Log) ExportArchive(ctx context.Context, spaceID, beforeDate string) ([]byte, error) {
	return l.exporter.Export(ctx, spaceID, beforeDate)
}

// ImportArchive implements import_archive (spec.md §4.11).
func (l *Log) ImportArchive(ctx context.Context, data []byte) (ImportReport, error) {
	return l.importer.Import(ctx, data)
}

// ReconstructSource implements reconstruct_source (spec.md §4.15).
// atTimestamp may be nil to replay the full history. This facade
// method is a (DOMAIN EXPANSION): spec.md §4.15 defines C15's contract
// but §6's facade listing omits it; it is added here so C15 has a
// caller.
func (l *Log) ReconstructSource(ctx context.Context, spaceID string, atTimestamp *string) (ReconstructedSource, error) {
	ts := ""
	if atTimestamp != nil {
		ts = *atTimestamp
	}
	return l.sourceRebuild.ReconstructSource(ctx, spaceID, ts)
}
