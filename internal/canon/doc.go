// Package canon implements MarshalCanonical, the key-sorted,
// whitespace-free JSON serialization used as the input to every event
// and snapshot hash (spec §4.1). The event log's other serializer —
// fixed-insertion-order JSON for the .rblogs archive body (spec §4.9) —
// lives in internal/archive, since it has nothing to do with hashing.
//
// The two must never be conflated: canonical form is stable across
// differing map iteration orders (hash input); archive form is stable
// for byte-level round trips (wire format). See the teacher's
// internal/ir/canonical.go for the RFC 8785 precedent this package
// generalizes — unlike the teacher's sealed IR value set, this package's
// inputs may contain JSON null and JSON numbers of any shape, since the
// event log's payload and snapshot state are caller-defined free-form
// JSON rather than a closed intermediate representation.
package canon
