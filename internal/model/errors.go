package model

import "fmt"

// IntegrityViolationError signals a hash-chain or stored-hash mismatch,
// detected by the verifier, the archive exporter, or the archive importer.
type IntegrityViolationError struct {
	EventID  string
	Expected string
	Actual   string
}

func (e *IntegrityViolationError) Error() string {
	return fmt.Sprintf("integrity violation: event %s expected %q, got %q", e.EventID, e.Expected, e.Actual)
}

// StorageFullError is reserved for callers that wrap the core with a
// budget check; the core itself never constructs one, but it is part of
// the closed taxonomy so wrapping code can return it through the same
// error channel.
type StorageFullError struct {
	Used int64
	Max  int64
}

func (e *StorageFullError) Error() string {
	return fmt.Sprintf("storage full: used %d of %d bytes", e.Used, e.Max)
}

// InvalidQueryError signals a bad cursor, an out-of-range timestamp, or a
// malformed date passed to one of the query operations.
type InvalidQueryError struct {
	Field  string
	Reason string
}

func (e *InvalidQueryError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid query: field %q", e.Field)
	}
	return fmt.Sprintf("invalid query: field %q: %s", e.Field, e.Reason)
}

// InvalidEventError signals that write-input validation failed, or that
// diff-source reconstruction encountered a malformed payload.
type InvalidEventError struct {
	Field  string
	Reason string
}

func (e *InvalidEventError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid event: field %q", e.Field)
	}
	return fmt.Sprintf("invalid event: field %q: %s", e.Field, e.Reason)
}

// SnapshotFailedError signals that a snapshot could not be created: no
// events exist, or the space is already fully compacted. Reducers have
// no error return, so a reducer never causes this error.
type SnapshotFailedError struct {
	SpaceID string
	Reason  string
}

func (e *SnapshotFailedError) Error() string {
	return fmt.Sprintf("snapshot failed for space %q: %s", e.SpaceID, e.Reason)
}

// ImportFailedError signals any archive codec or chain-verification
// failure encountered while importing an archive.
type ImportFailedError struct {
	Reason  string
	EventID string
}

func (e *ImportFailedError) Error() string {
	if e.EventID == "" {
		return fmt.Sprintf("import failed: %s", e.Reason)
	}
	return fmt.Sprintf("import failed: %s (event %s)", e.Reason, e.EventID)
}

// DatabaseError wraps any fault surfaced by the underlying record store.
type DatabaseError struct {
	Operation string
	Reason    string
	Err       error
}

func (e *DatabaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("database error during %s: %s: %v", e.Operation, e.Reason, e.Err)
	}
	return fmt.Sprintf("database error during %s: %s", e.Operation, e.Reason)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// NewDatabaseError wraps err as a DatabaseError for the given operation.
func NewDatabaseError(operation string, err error) *DatabaseError {
	return &DatabaseError{Operation: operation, Reason: err.Error(), Err: err}
}
