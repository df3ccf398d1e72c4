package scheduling

import (
	"sort"
	"time"

	"github.com/tutorbase/booking-api/internal/models"
)

// ResolveParams carries everything slot resolution needs. Busy is the
// tutor's booked set; callers exclude sessions that should not block (for
// example the session being rescheduled) before resolving.
type ResolveParams struct {
	Windows  []models.AvailabilityWindow
	Busy     []models.Session
	From     time.Time
	To       time.Time
	Duration time.Duration
	Step     time.Duration
	Now      time.Time
	Location *time.Location
}

// ResolveSlots expands weekly availability windows into the ascending,
// de-duplicated list of bookable slot starts inside [From, To].
//
// A cursor walks each active window in Step increments from the window
// start. A cursor position becomes a slot when the whole interval
// [cursor, cursor+Duration) fits inside the window, the cursor is strictly
// in the future, and the interval overlaps no blocking session. Overlapping
// windows may propose the same start twice; the result carries it once.
// An empty result is a valid outcome, not an error.
func ResolveSlots(p ResolveParams) []time.Time {
	if p.Duration <= 0 || p.Step <= 0 {
		return nil
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	if p.To.Before(p.From) {
		return nil
	}

	byDay := indexWindows(p.Windows)
	if len(byDay) == 0 {
		return nil
	}

	seen := make(map[int64]struct{})
	var slots []time.Time

	lastDay := startOfDay(p.To, loc)
	for day := startOfDay(p.From, loc); !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		for _, w := range byDay[int(day.Weekday())] {
			start, end, ok := windowBounds(w, day, loc)
			if !ok {
				continue
			}

			for cursor := start; !cursor.Add(p.Duration).After(end); cursor = cursor.Add(p.Step) {
				if !cursor.After(p.Now) {
					continue
				}
				if cursor.Before(p.From) || cursor.After(p.To) {
					continue
				}
				if FirstConflict(cursor, cursor.Add(p.Duration), p.Busy) != nil {
					continue
				}

				key := cursor.UnixNano()
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				slots = append(slots, cursor)
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return slots
}

// SlotAvailable reports whether start is a bookable slot: step-aligned
// within an active window, entirely inside it, strictly in the future and
// free of conflicts. It is the membership test matching ResolveSlots.
func SlotAvailable(p ResolveParams, start time.Time) bool {
	if p.Duration <= 0 || p.Step <= 0 {
		return false
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	if !start.After(p.Now) {
		return false
	}

	end := start.Add(p.Duration)
	day := startOfDay(start, loc)

	for _, w := range p.Windows {
		if !w.Active || w.DayOfWeek != int(day.Weekday()) {
			continue
		}
		ws, we, ok := windowBounds(w, day, loc)
		if !ok {
			continue
		}
		if start.Before(ws) || end.After(we) {
			continue
		}
		if start.Sub(ws)%p.Step != 0 {
			continue
		}

		return FirstConflict(start, end, p.Busy) == nil
	}

	return false
}

func indexWindows(windows []models.AvailabilityWindow) map[int][]models.AvailabilityWindow {
	byDay := make(map[int][]models.AvailabilityWindow)
	for _, w := range windows {
		if !w.Active {
			continue
		}
		if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
			continue
		}
		byDay[w.DayOfWeek] = append(byDay[w.DayOfWeek], w)
	}
	return byDay
}
