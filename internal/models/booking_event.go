package models

import (
	"encoding/json"
	"time"
)

// Booking event operations.
const (
	EventSessionBooked      = "session.booked"
	EventSessionRescheduled = "session.rescheduled"
	EventSessionCancelled   = "session.cancelled"
	EventSessionStatusSet   = "session.status_set"
	EventSeriesBooked       = "series.booked"
	EventSeriesRescheduled  = "series.rescheduled"
	EventSeriesCancelled    = "series.cancelled"
	EventWindowsReplaced    = "windows.replaced"
)

// Booking event entity types.
const (
	EntitySession      = "session"
	EntitySubscription = "subscription"
	EntityTutor        = "tutor"
)

// BookingEvent is an immutable audit record of a successful booking
// mutation, persisted off the request path.
type BookingEvent struct {
	ID         string          `db:"id" json:"id"`
	ActorID    string          `db:"actor_id" json:"actor_id"`
	ActorRole  UserRole        `db:"actor_role" json:"actor_role"`
	Operation  string          `db:"operation" json:"operation"`
	EntityType string          `db:"entity_type" json:"entity_type"`
	EntityID   string          `db:"entity_id" json:"entity_id"`
	Payload    json.RawMessage `db:"payload" json:"payload,omitempty"`
	OccurredAt time.Time       `db:"occurred_at" json:"occurred_at"`
}
