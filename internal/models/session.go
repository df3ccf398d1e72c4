package models

import "time"

// SessionStatus enumerates the lifecycle states of a booked session.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionNoShow    SessionStatus = "no_show"
	SessionCancelled SessionStatus = "cancelled"
)

// Blocks reports whether a session in this status occupies tutor time.
// Only cancellation frees the interval; completed and no-show sessions
// keep occupying the time they were held in.
func (s SessionStatus) Blocks() bool {
	return s != SessionCancelled && s != ""
}

// Terminal reports whether the status permits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionNoShow || s == SessionCancelled
}

// Session is a concrete booked meeting between a tutor and a student.
type Session struct {
	ID              string        `db:"id" json:"id"`
	TutorID         string        `db:"tutor_id" json:"tutor_id"`
	ParentID        string        `db:"parent_id" json:"parent_id"`
	StudentName     string        `db:"student_name" json:"student_name"`
	ScheduledAt     time.Time     `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	Status          SessionStatus `db:"status" json:"status"`
	IsTrial         bool          `db:"is_trial" json:"is_trial"`
	SubscriptionID  *string       `db:"subscription_id" json:"subscription_id,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// EndsAt returns the exclusive end of the occupied interval.
func (s *Session) EndsAt() time.Time {
	return s.ScheduledAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// SessionFilter describes query params for listing sessions.
type SessionFilter struct {
	TutorID        string
	ParentID       string
	SubscriptionID string
	Status         *SessionStatus
	From           *time.Time
	To             *time.Time
	Page           int
	PageSize       int
}
