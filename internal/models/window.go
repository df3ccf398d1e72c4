package models

import "time"

// AvailabilityWindow is a weekly recurring block during which a tutor
// accepts bookings. Times are "HH:MM" wall clock in the reference zone;
// windows never span midnight, so StartTime must precede EndTime.
type AvailabilityWindow struct {
	ID        string    `db:"id" json:"id"`
	TutorID   string    `db:"tutor_id" json:"tutor_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
