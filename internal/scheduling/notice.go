package scheduling

import (
	"time"

	"github.com/tutorbase/booking-api/internal/models"
)

// ModifiableAt reports whether a session starting at scheduledAt may still
// be rescheduled or cancelled at now. The boundary is inclusive: exactly
// minNotice ahead is allowed, one instant less is not. Sessions already
// started or in the past are never modifiable.
func ModifiableAt(scheduledAt, now time.Time, minNotice time.Duration) bool {
	return scheduledAt.Sub(now) >= minNotice
}

// FirstUnmodifiable scans the still-scheduled members of a series and
// returns the first one inside the notice cutoff, or nil when every member
// may be modified. One late member blocks the whole series.
func FirstUnmodifiable(sessions []models.Session, now time.Time, minNotice time.Duration) *models.Session {
	for i := range sessions {
		s := &sessions[i]
		if s.Status != models.SessionScheduled {
			continue
		}
		if !ModifiableAt(s.ScheduledAt, now, minNotice) {
			return s
		}
	}
	return nil
}
