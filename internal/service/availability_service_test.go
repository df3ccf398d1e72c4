package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/booking-api/internal/models"
	"github.com/tutorbase/booking-api/pkg/config"
	appErrors "github.com/tutorbase/booking-api/pkg/errors"
)

type windowRepoStub struct {
	windows  []models.AvailabilityWindow
	replaced [][]models.AvailabilityWindow
}

func (s *windowRepoStub) ListByTutor(_ context.Context, _ sqlx.ExtContext, _ string) ([]models.AvailabilityWindow, error) {
	return s.windows, nil
}

func (s *windowRepoStub) ReplaceForTutor(_ context.Context, _ string, windows []models.AvailabilityWindow) error {
	s.replaced = append(s.replaced, windows)
	s.windows = windows
	return nil
}

type cacheRepoFake struct {
	entries map[string][]byte
	deleted []string
}

func newCacheRepoFake() *cacheRepoFake {
	return &cacheRepoFake{entries: map[string][]byte{}}
}

func (f *cacheRepoFake) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *cacheRepoFake) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

func (f *cacheRepoFake) DeleteByPattern(_ context.Context, pattern string) error {
	f.deleted = append(f.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
		}
	}
	return nil
}

type availabilityFixture struct {
	svc      *AvailabilityService
	windows  *windowRepoStub
	sessions *sessionRepoStub
	cacheRaw *cacheRepoFake
	events   *eventRecorderStub
}

func newAvailabilityFixture(t *testing.T, now time.Time) *availabilityFixture {
	t.Helper()
	f := &availabilityFixture{
		windows: &windowRepoStub{windows: []models.AvailabilityWindow{
			{ID: "w-mon", TutorID: "tutor-1", DayOfWeek: 1, StartTime: "16:00", EndTime: "20:00", Active: true},
			{ID: "w-wed", TutorID: "tutor-1", DayOfWeek: 3, StartTime: "16:00", EndTime: "20:00", Active: true},
		}},
		sessions: newSessionRepoStub(),
		cacheRaw: newCacheRepoFake(),
		events:   &eventRecorderStub{},
	}
	cache := NewCacheService(f.cacheRaw, nil, time.Minute, nil, true)
	f.svc = NewAvailabilityService(AvailabilityServiceParams{
		Windows:  f.windows,
		Sessions: f.sessions,
		Events:   f.events,
		Cache:    cache,
		Config: config.BookingConfig{
			SlotStepMinutes: 30,
			HorizonDays:     28,
			SlotsCacheTTL:   time.Minute,
		},
	})
	f.svc.now = func() time.Time { return now }
	return f
}

func TestPreviewSlotsTwoWeekHorizon(t *testing.T) {
	f := newAvailabilityFixture(t, bookingNow)
	f.sessions.blocking = []models.Session{
		{ID: "busy-1", TutorID: "tutor-1", ScheduledAt: mondayFive, DurationMinutes: 60, Status: models.SessionScheduled},
	}

	slots, cached, err := f.svc.PreviewSlots(context.Background(), "tutor-1", SlotQuery{
		From:            bookingNow,
		To:              bookingNow.AddDate(0, 0, 14),
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	assert.False(t, cached)

	// Four Mondays/Wednesdays carry 7 hour-slots each; the first Monday
	// loses 16:30, 17:00 and 17:30 to the 17:00-18:00 booking.
	assert.Len(t, slots, 25)
	assert.Equal(t, mondayFour, slots[0])

	index := map[time.Time]bool{}
	for _, s := range slots {
		index[s] = true
	}
	assert.True(t, index[mondayFour], "16:00 stays: ends exactly where the booking starts")
	assert.True(t, index[mondayFive.Add(time.Hour)], "18:00 stays: back-to-back is legal")
	assert.False(t, index[mondayFour.Add(30*time.Minute)])
	assert.False(t, index[mondayFive])
	assert.False(t, index[mondayFive.Add(30*time.Minute)])

	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i].After(slots[i-1]), "slots must ascend")
	}
}

func TestPreviewSlotsServedFromCache(t *testing.T) {
	f := newAvailabilityFixture(t, bookingNow)

	q := SlotQuery{From: bookingNow, To: bookingNow.AddDate(0, 0, 7), DurationMinutes: 60}
	first, cached, err := f.svc.PreviewSlots(context.Background(), "tutor-1", q)
	require.NoError(t, err)
	assert.False(t, cached)

	second, cached, err := f.svc.PreviewSlots(context.Background(), "tutor-1", q)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, second)
}

func TestPreviewSlotsRequiresDuration(t *testing.T) {
	f := newAvailabilityFixture(t, bookingNow)

	_, _, err := f.svc.PreviewSlots(context.Background(), "tutor-1", SlotQuery{From: bookingNow})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPreviewSlotsInvertedRangeIsEmpty(t *testing.T) {
	f := newAvailabilityFixture(t, bookingNow)

	slots, _, err := f.svc.PreviewSlots(context.Background(), "tutor-1", SlotQuery{
		From:            bookingNow.AddDate(0, 0, 7),
		To:              bookingNow,
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestReplaceWindowsRejectsMalformedWindow(t *testing.T) {
	f := newAvailabilityFixture(t, bookingNow)

	_, err := f.svc.ReplaceWindows(context.Background(), adminActor, "tutor-1", []WindowInput{
		{DayOfWeek: 1, StartTime: "16:00", EndTime: "20:00"},
		{DayOfWeek: 2, StartTime: "18:00", EndTime: "09:00"},
	})
	require.Error(t, err)

	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidWindow.Code, typed.Code)
	assert.Contains(t, typed.Message, "window 1")
	assert.Empty(t, f.windows.replaced)
}

func TestReplaceWindowsPersistsAndInvalidatesPreviews(t *testing.T) {
	f := newAvailabilityFixture(t, bookingNow)

	// Warm a preview so the replace has something to evict.
	_, _, err := f.svc.PreviewSlots(context.Background(), "tutor-1", SlotQuery{From: bookingNow, DurationMinutes: 60})
	require.NoError(t, err)
	require.NotEmpty(t, f.cacheRaw.entries)

	windows, err := f.svc.ReplaceWindows(context.Background(), adminActor, "tutor-1", []WindowInput{
		{DayOfWeek: 5, StartTime: "09:00", EndTime: "12:30"},
	})
	require.NoError(t, err)

	require.Len(t, windows, 1)
	assert.Equal(t, 5, windows[0].DayOfWeek)
	assert.True(t, windows[0].Active, "windows default to active")
	require.Len(t, f.windows.replaced, 1)

	assert.Empty(t, f.cacheRaw.entries, "stale previews must be evicted")
	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventWindowsReplaced, f.events.events[0].operation)
	assert.Equal(t, models.EntityTutor, f.events.events[0].entityType)
}
