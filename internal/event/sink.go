// Package event carries the fire-and-forget user lifecycle notifications.
// Envelopes are zero-payload: consumers receive only the internal user id
// and fetch the full profile themselves, keeping the schema stable across
// profile-field changes.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeUserRegistered = "user.registered"
	TypeUserDeleted    = "user.deleted"
)

// Envelope is the published message.
type Envelope struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEnvelope stamps a fresh envelope for the given user.
func NewEnvelope(eventType string, userID int64) Envelope {
	return Envelope{
		EventID:    uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
}

// Sink is an at-least-once, best-effort publish primitive. Publish errors
// are the caller's to swallow; the sink never retries.
type Sink interface {
	Publish(ctx context.Context, topic string, e Envelope) error
}
