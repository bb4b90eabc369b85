package eventlog

import (
	"github.com/Robust-infrastructure/ri-event-log/internal/model"
	"github.com/Robust-infrastructure/ri-event-log/internal/writepipeline"
)

// DefaultDatabaseName is the record-store database identifier used when
// Config.DatabaseName is empty.
const DefaultDatabaseName = "event-log"

// DefaultSchemaVersion is the schema version stamped into metadata when
// Config.SchemaVersion is unset.
const DefaultSchemaVersion = 1

// DefaultMaxEventsPerQuery is the hard ceiling on a query's limit when
// Config.MaxEventsPerQuery is unset.
const DefaultMaxEventsPerQuery = 1000

// DefaultSnapshotInterval is the number of events-per-space between
// auto-snapshots when Config.SnapshotInterval is unset.
const DefaultSnapshotInterval = 100

// Config configures an eventlog.Log. Every field is optional; Open
// applies the defaults spec.md §6 describes.
type Config struct {
	// DatabaseName is the record-store database identifier — in this
	// Go implementation, the SQLite file path. Default "event-log".
	DatabaseName string

	// SchemaVersion is stamped into metadata. Default 1.
	SchemaVersion int

	// MaxEventsPerQuery is the hard ceiling on a query's limit: requested
	// limits are clamped to [1, MaxEventsPerQuery]. Default 1000.
	MaxEventsPerQuery int

	// SnapshotInterval is the number of events-per-space between
	// auto-snapshots. A negative value disables the auto-snapshot hook
	// entirely; zero (unset) means the default of 100.
	SnapshotInterval int

	// HashAlgorithm is the only configurable hash choice; "SHA-256" is
	// the only permitted value. Empty defaults to "SHA-256".
	HashAlgorithm string

	// StateReducer folds events into state for snapshots and state
	// reconstruction. Must be pure and deterministic — a caller
	// obligation this package cannot enforce (spec.md §9). Default
	// returns event.Payload (last-write-wins).
	StateReducer func(state any, event model.Event) any

	// IDGenerator produces opaque, store-unique event and snapshot ids.
	// Default uses a cryptographic RNG to generate UUIDv4 strings;
	// tests should inject a deterministic generator (see
	// writepipeline.NewFixedGenerator).
	IDGenerator func() string

	// AvailableBytes is the storage budget PressureLevel classifies
	// usage against. Zero or negative means "unset" — PressureLevel
	// then always reports storage.PressureBlocked, matching spec.md
	// §4.13's "or 1 if available_bytes <= 0" rule.
	AvailableBytes int64
}

// withDefaults returns a copy of c with every unset field filled in per
// spec.md §6.
func (c Config) withDefaults() Config {
	if c.DatabaseName == "" {
		c.DatabaseName = DefaultDatabaseName
	}
	if c.SchemaVersion == 0 {
		c.SchemaVersion = DefaultSchemaVersion
	}
	if c.MaxEventsPerQuery == 0 {
		c.MaxEventsPerQuery = DefaultMaxEventsPerQuery
	}
	if c.SnapshotInterval == 0 {
		c.SnapshotInterval = DefaultSnapshotInterval
	}
	if c.HashAlgorithm == "" {
		c.HashAlgorithm = "SHA-256"
	}
	if c.StateReducer == nil {
		c.StateReducer = defaultReducer
	}
	if c.IDGenerator == nil {
		c.IDGenerator = writepipeline.DefaultIDGenerator
	}
	return c
}

// defaultReducer is the "last-write-wins" reducer spec.md §6 describes:
// the new state is simply the latest event's payload.
func defaultReducer(_ any, event model.Event) any {
	return event.Payload
}
