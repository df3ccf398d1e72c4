package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/tutorbase/booking-api/internal/models"
)

// PlannedOccurrence is one session's target placement in a series replan.
type PlannedOccurrence struct {
	SessionID string
	Start     time.Time
	End       time.Time
}

// Reasons a series plan fails validation.
const (
	ViolationOutsideWindows = "outside_windows"
	ViolationConflict       = "conflict"
	ViolationPast           = "past"
	ViolationSelfOverlap    = "self_overlap"
)

// PlanViolation pinpoints the first occurrence that cannot be placed.
type PlanViolation struct {
	SessionID string
	Start     time.Time
	Reason    string
}

func (v *PlanViolation) Error() string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("occurrence %s at %s: %s", v.SessionID, v.Start.Format(time.RFC3339), v.Reason)
}

// PlanSeries regenerates the remaining occurrences of a series from a new
// anchor date. The k-th still-scheduled session (zero-based, ordered by its
// current scheduled time) lands on anchor's date plus k*stepDays, keeping
// its own time-of-day and duration. Sessions in other states are left out
// of the plan.
func PlanSeries(sessions []models.Session, anchor time.Time, stepDays int, loc *time.Location) []PlannedOccurrence {
	if stepDays <= 0 {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	remaining := make([]models.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.Status == models.SessionScheduled {
			remaining = append(remaining, s)
		}
	}
	sort.Slice(remaining, func(i, j int) bool {
		if remaining[i].ScheduledAt.Equal(remaining[j].ScheduledAt) {
			return remaining[i].ID < remaining[j].ID
		}
		return remaining[i].ScheduledAt.Before(remaining[j].ScheduledAt)
	})

	anchorDay := startOfDay(anchor, loc)

	plan := make([]PlannedOccurrence, 0, len(remaining))
	for k, s := range remaining {
		day := anchorDay.AddDate(0, 0, k*stepDays)
		orig := s.ScheduledAt.In(loc)
		start := time.Date(day.Year(), day.Month(), day.Day(), orig.Hour(), orig.Minute(), orig.Second(), 0, loc)

		plan = append(plan, PlannedOccurrence{
			SessionID: s.ID,
			Start:     start,
			End:       start.Add(time.Duration(s.DurationMinutes) * time.Minute),
		})
	}

	return plan
}

// GenerateSeries lays out a brand-new series: count occurrences of the
// given duration, the first starting exactly at anchor, each following one
// stepDays later at anchor's time-of-day. Session ids are left empty; the
// caller assigns them on insert.
func GenerateSeries(anchor time.Time, count, stepDays int, duration time.Duration, loc *time.Location) []PlannedOccurrence {
	if count <= 0 || stepDays <= 0 || duration <= 0 {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	anchor = anchor.In(loc)
	anchorDay := startOfDay(anchor, loc)

	plan := make([]PlannedOccurrence, 0, count)
	for k := 0; k < count; k++ {
		day := anchorDay.AddDate(0, 0, k*stepDays)
		start := time.Date(day.Year(), day.Month(), day.Day(), anchor.Hour(), anchor.Minute(), anchor.Second(), 0, loc)
		plan = append(plan, PlannedOccurrence{Start: start, End: start.Add(duration)})
	}

	return plan
}

// ValidateSeriesPlan checks every planned occurrence: it must sit entirely
// inside an active window, stay clear of the tutor's other blocking
// sessions (busy must already exclude the series itself), land strictly in
// the future, and not collide with its plan siblings. The first violation
// aborts the whole plan; partial application is never allowed.
func ValidateSeriesPlan(plan []PlannedOccurrence, windows []models.AvailabilityWindow, busy []models.Session, now time.Time, loc *time.Location) *PlanViolation {
	if loc == nil {
		loc = time.UTC
	}

	for i, occ := range plan {
		if !occ.Start.After(now) {
			return &PlanViolation{SessionID: occ.SessionID, Start: occ.Start, Reason: ViolationPast}
		}
		if !WithinActiveWindow(windows, occ.Start, occ.End, loc) {
			return &PlanViolation{SessionID: occ.SessionID, Start: occ.Start, Reason: ViolationOutsideWindows}
		}
		if FirstConflict(occ.Start, occ.End, busy) != nil {
			return &PlanViolation{SessionID: occ.SessionID, Start: occ.Start, Reason: ViolationConflict}
		}
		for j := 0; j < i; j++ {
			if Overlaps(occ.Start, occ.End, plan[j].Start, plan[j].End) {
				return &PlanViolation{SessionID: occ.SessionID, Start: occ.Start, Reason: ViolationSelfOverlap}
			}
		}
	}

	return nil
}
