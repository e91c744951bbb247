package types

import (
	"encoding/json"
	"time"
)

// Event types published after a write has been committed.
const (
	EventUserRegistered = "user.registered"
	EventUserUpdated    = "user.updated"
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// Event is the envelope published to the events channel.
type Event struct {
	// Type is one of the Event* constants.
	Type string `json:"type"`

	// SubjectID is the id of the user or product the event is about.
	SubjectID string `json:"subject_id"`

	// ActorID is the id of the authenticated user that caused the event, if any.
	ActorID string `json:"actor_id,omitempty"`

	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}
