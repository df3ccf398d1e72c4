package dto

import "github.com/tutorbase/booking-api/internal/models"

// SessionResponse is the wire shape of one booked session. Instants travel
// as Unix epoch milliseconds.
type SessionResponse struct {
	ID              string               `json:"id"`
	TutorID         string               `json:"tutor_id"`
	ParentID        string               `json:"parent_id"`
	StudentName     string               `json:"student_name"`
	ScheduledAt     int64                `json:"scheduled_at"`
	EndsAt          int64                `json:"ends_at"`
	DurationMinutes int                  `json:"duration_minutes"`
	Status          models.SessionStatus `json:"status"`
	IsTrial         bool                 `json:"is_trial"`
	SubscriptionID  *string              `json:"subscription_id,omitempty"`
	CreatedAt       int64                `json:"created_at"`
	UpdatedAt       int64                `json:"updated_at"`
}

// NewSessionResponse converts a session for the wire.
func NewSessionResponse(s models.Session) SessionResponse {
	return SessionResponse{
		ID:              s.ID,
		TutorID:         s.TutorID,
		ParentID:        s.ParentID,
		StudentName:     s.StudentName,
		ScheduledAt:     s.ScheduledAt.UnixMilli(),
		EndsAt:          s.EndsAt().UnixMilli(),
		DurationMinutes: s.DurationMinutes,
		Status:          s.Status,
		IsTrial:         s.IsTrial,
		SubscriptionID:  s.SubscriptionID,
		CreatedAt:       s.CreatedAt.UnixMilli(),
		UpdatedAt:       s.UpdatedAt.UnixMilli(),
	}
}

// NewSessionResponses converts a session list for the wire.
func NewSessionResponses(sessions []models.Session) []SessionResponse {
	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, NewSessionResponse(s))
	}
	return out
}

// SeriesCancelResponse reports how many sessions a series cancellation
// released.
type SeriesCancelResponse struct {
	SubscriptionID    string `json:"subscription_id"`
	CancelledSessions int    `json:"cancelled_sessions"`
}
