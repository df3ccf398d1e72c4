package scheduling

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tutorbase/booking-api/internal/models"
)

// ParseClock converts a 24-hour "HH:MM" wall-clock string into minutes
// after midnight.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("clock value %q must be HH:MM", s)
	}

	hour, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, fmt.Errorf("clock value %q must be HH:MM", s)
	}
	minute, err := strconv.Atoi(s[3:])
	if err != nil {
		return 0, fmt.Errorf("clock value %q must be HH:MM", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}

	return hour*60 + minute, nil
}

// ValidateWindow checks an availability window definition: a known weekday,
// well-formed clock strings and a start strictly before the end. Windows
// spanning midnight are rejected.
func ValidateWindow(w models.AvailabilityWindow) error {
	if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week %d outside 0..6", w.DayOfWeek)
	}

	start, err := ParseClock(w.StartTime)
	if err != nil {
		return fmt.Errorf("start_time: %w", err)
	}
	end, err := ParseClock(w.EndTime)
	if err != nil {
		return fmt.Errorf("end_time: %w", err)
	}

	if start >= end {
		return fmt.Errorf("start_time %s must precede end_time %s", w.StartTime, w.EndTime)
	}

	return nil
}

// windowBounds materializes a window on a concrete calendar day into
// absolute instants. day must be midnight in loc.
func windowBounds(w models.AvailabilityWindow, day time.Time, loc *time.Location) (time.Time, time.Time, bool) {
	startMin, err := ParseClock(w.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	endMin, err := ParseClock(w.EndTime)
	if err != nil || startMin >= endMin {
		return time.Time{}, time.Time{}, false
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), startMin/60, startMin%60, 0, 0, loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), endMin/60, endMin%60, 0, 0, loc)
	return start, end, true
}

// startOfDay truncates t to midnight in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// WithinActiveWindow reports whether [start, end) lies entirely inside at
// least one active window on start's weekday.
func WithinActiveWindow(windows []models.AvailabilityWindow, start, end time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	day := startOfDay(start, loc)

	for _, w := range windows {
		if !w.Active || w.DayOfWeek != int(day.Weekday()) {
			continue
		}
		ws, we, ok := windowBounds(w, day, loc)
		if !ok {
			continue
		}
		if !start.Before(ws) && !end.After(we) {
			return true
		}
	}

	return false
}
