package dto

import (
	"encoding/json"

	"github.com/tutorbase/booking-api/internal/models"
)

// BookingEventResponse is the wire shape of one audit event.
type BookingEventResponse struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actor_id"`
	ActorRole  models.UserRole `json:"actor_role"`
	Operation  string          `json:"operation"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt int64           `json:"occurred_at"`
}

// NewBookingEventResponses converts an audit trail for the wire.
func NewBookingEventResponses(events []models.BookingEvent) []BookingEventResponse {
	out := make([]BookingEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, BookingEventResponse{
			ID:         e.ID,
			ActorID:    e.ActorID,
			ActorRole:  e.ActorRole,
			Operation:  e.Operation,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Payload:    e.Payload,
			OccurredAt: e.OccurredAt.UnixMilli(),
		})
	}
	return out
}
