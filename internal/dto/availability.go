package dto

import (
	"time"

	"github.com/tutorbase/booking-api/internal/models"
)

// WindowResponse is the wire shape of one weekly availability window.
type WindowResponse struct {
	ID        string `json:"id"`
	TutorID   string `json:"tutor_id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Active    bool   `json:"active"`
}

// NewWindowResponses converts a window list for the wire.
func NewWindowResponses(windows []models.AvailabilityWindow) []WindowResponse {
	out := make([]WindowResponse, 0, len(windows))
	for _, w := range windows {
		out = append(out, WindowResponse{
			ID:        w.ID,
			TutorID:   w.TutorID,
			DayOfWeek: w.DayOfWeek,
			StartTime: w.StartTime,
			EndTime:   w.EndTime,
			Active:    w.Active,
		})
	}
	return out
}

// SlotsResponse carries a resolved slot preview. Slots are the bookable
// start instants in epoch milliseconds, ascending. From and To echo the
// requested range when the caller pinned one.
type SlotsResponse struct {
	TutorID         string  `json:"tutor_id"`
	From            *int64  `json:"from,omitempty"`
	To              *int64  `json:"to,omitempty"`
	DurationMinutes int     `json:"duration_minutes"`
	Slots           []int64 `json:"slots"`
}

// NewSlotsResponse converts resolved slot starts for the wire.
func NewSlotsResponse(tutorID string, from, to *time.Time, durationMinutes int, slots []time.Time) SlotsResponse {
	out := make([]int64, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.UnixMilli())
	}
	resp := SlotsResponse{
		TutorID:         tutorID,
		DurationMinutes: durationMinutes,
		Slots:           out,
	}
	if from != nil {
		ms := from.UnixMilli()
		resp.From = &ms
	}
	if to != nil {
		ms := to.UnixMilli()
		resp.To = &ms
	}
	return resp
}
