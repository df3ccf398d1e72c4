package models

import "time"

// SubscriptionFrequency fixes the cadence of a recurring series.
type SubscriptionFrequency string

const (
	FrequencyWeekly   SubscriptionFrequency = "weekly"
	FrequencyBiweekly SubscriptionFrequency = "biweekly"
)

// StepDays returns the day offset between consecutive series occurrences.
func (f SubscriptionFrequency) StepDays() int {
	if f == FrequencyBiweekly {
		return 14
	}
	return 7
}

// Valid reports whether the frequency is a known cadence.
func (f SubscriptionFrequency) Valid() bool {
	return f == FrequencyWeekly || f == FrequencyBiweekly
}

// SubscriptionStatus enumerates subscription lifecycle states.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCompleted SubscriptionStatus = "completed"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription groups a recurring series of sessions between one tutor and
// one guardian's student. Its series is the set of non-cancelled sessions
// referencing it, ordered by scheduled time.
type Subscription struct {
	ID                     string                `db:"id" json:"id"`
	TutorID                string                `db:"tutor_id" json:"tutor_id"`
	ParentID               string                `db:"parent_id" json:"parent_id"`
	StudentName            string                `db:"student_name" json:"student_name"`
	Frequency              SubscriptionFrequency `db:"frequency" json:"frequency"`
	TotalSessions          int                   `db:"total_sessions" json:"total_sessions"`
	DefaultDurationMinutes int                   `db:"default_duration_minutes" json:"default_duration_minutes"`
	Status                 SubscriptionStatus    `db:"status" json:"status"`
	CreatedAt              time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time             `db:"updated_at" json:"updated_at"`
}
