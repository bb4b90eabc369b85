// Package model defines the entities shared across every component of the
// event log: events, snapshots, and the error taxonomy they fail with.
package model

// EventType is one of the eleven enumerated event tags a caller may write.
type EventType string

// The fixed set of event types. No other value is accepted by the write
// pipeline.
const (
	EventSpaceCreated    EventType = "space_created"
	EventSpaceEvolved    EventType = "space_evolved"
	EventSpaceForked     EventType = "space_forked"
	EventSpaceDeleted    EventType = "space_deleted"
	EventStateChanged    EventType = "state_changed"
	EventActionInvoked   EventType = "action_invoked"
	EventIntentSubmitted EventType = "intent_submitted"
	EventIntentQueued    EventType = "intent_queued"
	EventIntentResolved  EventType = "intent_resolved"
	EventUserFeedback    EventType = "user_feedback"
	EventSystemEvent     EventType = "system_event"
)

// validEventTypes is the membership set used by write-path and archive
// import validation.
var validEventTypes = map[EventType]bool{
	EventSpaceCreated:    true,
	EventSpaceEvolved:    true,
	EventSpaceForked:     true,
	EventSpaceDeleted:    true,
	EventStateChanged:    true,
	EventActionInvoked:   true,
	EventIntentSubmitted: true,
	EventIntentQueued:    true,
	EventIntentResolved:  true,
	EventUserFeedback:    true,
	EventSystemEvent:     true,
}

// IsValidEventType reports whether t is one of the eleven enumerated tags.
func IsValidEventType(t EventType) bool {
	return validEventTypes[t]
}

// Event is the atomic, immutable append unit of a space's hash chain.
type Event struct {
	ID              string
	Type            EventType
	SpaceID         string
	Timestamp       string
	SequenceNumber  int64
	Hash            string
	PreviousHash    *string
	Version         int
	Payload         map[string]any
}

// HashInput builds the canonical-serialization input for this event's
// hash: every field except Hash itself, per spec.md §4.1. It is returned
// as a plain map so internal/canon never needs to know about model.Event.
func (e Event) HashInput() map[string]any {
	var prev any
	if e.PreviousHash != nil {
		prev = *e.PreviousHash
	}
	return map[string]any{
		"id":             e.ID,
		"type":           string(e.Type),
		"space_id":       e.SpaceID,
		"timestamp":      e.Timestamp,
		"sequence_number": e.SequenceNumber,
		"previous_hash":  prev,
		"version":        e.Version,
		"payload":        e.Payload,
	}
}

// Snapshot is a checkpoint of reducer-produced state pinned to a specific
// event sequence number within one space.
type Snapshot struct {
	ID                  string
	SpaceID             string
	EventSequenceNumber int64
	Timestamp           string
	State               any
	Hash                string
}
