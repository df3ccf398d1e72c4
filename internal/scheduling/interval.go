// Package scheduling holds the pure booking arithmetic: slot resolution,
// interval conflict detection, modification notice policy and series
// replanning. Everything here is side-effect free; persistence and
// serialization live in the repository and service layers.
package scheduling

import (
	"time"

	"github.com/tutorbase/booking-api/internal/models"
)

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) share any instant. Back-to-back intervals do not overlap;
// zero-length intervals overlap nothing.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// FirstConflict returns the first blocking session whose occupied interval
// overlaps [start, end), or nil when the interval is free. Cancelled
// sessions are ignored.
func FirstConflict(start, end time.Time, busy []models.Session) *models.Session {
	for i := range busy {
		s := &busy[i]
		if !s.Status.Blocks() {
			continue
		}
		if Overlaps(start, end, s.ScheduledAt, s.EndsAt()) {
			return s
		}
	}
	return nil
}
