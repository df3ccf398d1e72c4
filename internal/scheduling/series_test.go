package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/booking-api/internal/models"
)

func seriesFixture() []models.Session {
	// Weekly Tuesdays 15:00, eight booked, first three already consumed.
	// 2026-01-06 is a Tuesday.
	first := time.Date(2026, time.January, 6, 15, 0, 0, 0, time.UTC)

	sessions := make([]models.Session, 0, 8)
	for i := 0; i < 8; i++ {
		status := models.SessionScheduled
		if i < 3 {
			status = models.SessionCompleted
		}
		sessions = append(sessions, models.Session{
			ID:              string(rune('a' + i)),
			SubscriptionID:  strptr("sub-1"),
			ScheduledAt:     first.AddDate(0, 0, 7*i),
			DurationMinutes: 60,
			Status:          status,
		})
	}
	return sessions
}

func strptr(s string) *string { return &s }

func TestPlanSeriesPreservesTimeOfDayAndSteps(t *testing.T) {
	sessions := seriesFixture()

	// 2026-03-05 is a Thursday; anchor mid-day to prove only the date counts.
	anchor := time.Date(2026, time.March, 5, 11, 45, 0, 0, time.UTC)

	plan := PlanSeries(sessions, anchor, 7, time.UTC)
	require.Len(t, plan, 5, "only still-scheduled members are replanned")

	for k, occ := range plan {
		expected := time.Date(2026, time.March, 5+7*k, 15, 0, 0, 0, time.UTC)
		assert.Equal(t, expected, occ.Start, "occurrence %d", k)
		assert.Equal(t, expected.Add(time.Hour), occ.End)
	}

	// Ordering follows the current schedule: the 4th original session is
	// element 0 of the plan.
	assert.Equal(t, "d", plan[0].SessionID)
	assert.Equal(t, "h", plan[4].SessionID)
}

func TestPlanSeriesBiweeklyStep(t *testing.T) {
	sessions := seriesFixture()
	anchor := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)

	plan := PlanSeries(sessions, anchor, 14, time.UTC)
	require.Len(t, plan, 5)

	for k := 1; k < len(plan); k++ {
		assert.Equal(t, plan[k-1].Start.AddDate(0, 0, 14), plan[k].Start)
	}
}

func TestPlanSeriesKeepsEachSessionsOwnClock(t *testing.T) {
	sessions := []models.Session{
		{ID: "early", ScheduledAt: time.Date(2026, time.January, 6, 9, 30, 0, 0, time.UTC), DurationMinutes: 45, Status: models.SessionScheduled},
		{ID: "late", ScheduledAt: time.Date(2026, time.January, 13, 18, 15, 0, 0, time.UTC), DurationMinutes: 90, Status: models.SessionScheduled},
	}
	anchor := time.Date(2026, time.February, 2, 0, 0, 0, 0, time.UTC)

	plan := PlanSeries(sessions, anchor, 7, time.UTC)
	require.Len(t, plan, 2)

	assert.Equal(t, time.Date(2026, time.February, 2, 9, 30, 0, 0, time.UTC), plan[0].Start)
	assert.Equal(t, 45*time.Minute, plan[0].End.Sub(plan[0].Start))
	assert.Equal(t, time.Date(2026, time.February, 9, 18, 15, 0, 0, time.UTC), plan[1].Start)
	assert.Equal(t, 90*time.Minute, plan[1].End.Sub(plan[1].Start))
}

func TestGenerateSeries(t *testing.T) {
	anchor := time.Date(2026, time.March, 5, 15, 0, 0, 0, time.UTC)

	plan := GenerateSeries(anchor, 4, 7, time.Hour, time.UTC)
	require.Len(t, plan, 4)

	for k, occ := range plan {
		expected := anchor.AddDate(0, 0, 7*k)
		assert.Equal(t, expected, occ.Start, "occurrence %d", k)
		assert.Equal(t, expected.Add(time.Hour), occ.End)
		assert.Empty(t, occ.SessionID)
	}

	assert.Nil(t, GenerateSeries(anchor, 0, 7, time.Hour, time.UTC))
	assert.Nil(t, GenerateSeries(anchor, 4, 0, time.Hour, time.UTC))

	biweekly := GenerateSeries(anchor, 3, 14, 90*time.Minute, time.UTC)
	require.Len(t, biweekly, 3)
	assert.Equal(t, anchor.AddDate(0, 0, 28), biweekly[2].Start)
	assert.Equal(t, 90*time.Minute, biweekly[2].End.Sub(biweekly[2].Start))
}

func TestValidateSeriesPlan(t *testing.T) {
	// Thursdays 14:00-18:00 open. 2026-03-05 is a Thursday.
	windows := []models.AvailabilityWindow{
		{DayOfWeek: 4, StartTime: "14:00", EndTime: "18:00", Active: true},
	}
	now := time.Date(2026, time.February, 20, 0, 0, 0, 0, time.UTC)

	okPlan := []PlannedOccurrence{
		{SessionID: "d", Start: time.Date(2026, time.March, 5, 15, 0, 0, 0, time.UTC), End: time.Date(2026, time.March, 5, 16, 0, 0, 0, time.UTC)},
		{SessionID: "e", Start: time.Date(2026, time.March, 12, 15, 0, 0, 0, time.UTC), End: time.Date(2026, time.March, 12, 16, 0, 0, 0, time.UTC)},
	}

	t.Run("clean plan passes", func(t *testing.T) {
		assert.Nil(t, ValidateSeriesPlan(okPlan, windows, nil, now, time.UTC))
	})

	t.Run("one conflicting occurrence rejects the whole plan", func(t *testing.T) {
		busy := []models.Session{{
			ID:              "other-student",
			ScheduledAt:     time.Date(2026, time.March, 12, 15, 30, 0, 0, time.UTC),
			DurationMinutes: 60,
			Status:          models.SessionScheduled,
		}}

		v := ValidateSeriesPlan(okPlan, windows, busy, now, time.UTC)
		require.NotNil(t, v)
		assert.Equal(t, "e", v.SessionID)
		assert.Equal(t, ViolationConflict, v.Reason)
	})

	t.Run("occurrence outside windows", func(t *testing.T) {
		plan := append([]PlannedOccurrence{}, okPlan...)
		plan[1].Start = time.Date(2026, time.March, 12, 17, 30, 0, 0, time.UTC)
		plan[1].End = plan[1].Start.Add(time.Hour)

		v := ValidateSeriesPlan(plan, windows, nil, now, time.UTC)
		require.NotNil(t, v)
		assert.Equal(t, ViolationOutsideWindows, v.Reason)
	})

	t.Run("occurrence in the past", func(t *testing.T) {
		late := time.Date(2026, time.March, 5, 15, 0, 0, 0, time.UTC)
		v := ValidateSeriesPlan(okPlan, windows, nil, late, time.UTC)
		require.NotNil(t, v)
		assert.Equal(t, ViolationPast, v.Reason)
	})

	t.Run("cancelled booking does not block", func(t *testing.T) {
		busy := []models.Session{{
			ID:              "gone",
			ScheduledAt:     time.Date(2026, time.March, 5, 15, 0, 0, 0, time.UTC),
			DurationMinutes: 60,
			Status:          models.SessionCancelled,
		}}

		assert.Nil(t, ValidateSeriesPlan(okPlan, windows, busy, now, time.UTC))
	})
}
