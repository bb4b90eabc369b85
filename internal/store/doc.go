// Package store provides the SQLite-backed record store the rest of the
// event log is built on: an events table, a snapshots table, and a
// metadata table, each with the secondary indexes spec.md §4.2 requires.
//
// Patterns — connection setup, WAL pragmas, a schema version recorded
// in the metadata table — are carried from the teacher's
// internal/store/store.go. Unlike the teacher, this store has no
// foreign keys between tables (events and snapshots are independent
// append logs) and no ON CONFLICT DO NOTHING idempotency on insert:
// spec §4.2 requires insert to fail on a primary-key collision, not
// silently absorb it.
package store
