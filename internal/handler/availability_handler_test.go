package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/booking-api/internal/middleware"
	"github.com/tutorbase/booking-api/internal/models"
	"github.com/tutorbase/booking-api/internal/service"
)

type availabilityServiceMock struct {
	windows  []models.AvailabilityWindow
	slots    []time.Time
	cacheHit bool
	err      error

	lastTutorID string
	lastActor   models.JWTClaims
	lastInputs  []service.WindowInput
	lastQuery   service.SlotQuery
}

func (m *availabilityServiceMock) ListWindows(_ context.Context, tutorID string) ([]models.AvailabilityWindow, error) {
	m.lastTutorID = tutorID
	return m.windows, m.err
}

func (m *availabilityServiceMock) ReplaceWindows(_ context.Context, actor models.JWTClaims, tutorID string, inputs []service.WindowInput) ([]models.AvailabilityWindow, error) {
	m.lastActor = actor
	m.lastTutorID = tutorID
	m.lastInputs = inputs
	return m.windows, m.err
}

func (m *availabilityServiceMock) PreviewSlots(_ context.Context, tutorID string, q service.SlotQuery) ([]time.Time, bool, error) {
	m.lastTutorID = tutorID
	m.lastQuery = q
	return m.slots, m.cacheHit, m.err
}

func TestAvailabilityHandlerReplaceWindows(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &availabilityServiceMock{windows: []models.AvailabilityWindow{
		{ID: "w-1", TutorID: "tutor-1", DayOfWeek: 1, StartTime: "16:00", EndTime: "20:00", Active: true},
	}}
	handler := NewAvailabilityHandler(mock)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPut, "/tutors/tutor-1/windows", []service.WindowInput{
		{DayOfWeek: 1, StartTime: "16:00", EndTime: "20:00"},
	})
	c.Params = gin.Params{{Key: "id", Value: "tutor-1"}}
	c.Set(middleware.ContextUserKey, tutorClaims)

	handler.ReplaceWindows(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tutor-1", mock.lastTutorID)
	assert.Equal(t, "tutor-1", mock.lastActor.UserID)
	require.Len(t, mock.lastInputs, 1)
	assert.Equal(t, "16:00", mock.lastInputs[0].StartTime)

	envelope := decodeEnvelope(t, rec)
	data := envelope.Data.([]interface{})
	require.Len(t, data, 1)
}

func TestAvailabilityHandlerReplaceWindowsInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAvailabilityHandler(&availabilityServiceMock{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/tutors/tutor-1/windows", bytes.NewReader([]byte(`{"not":"a list"}`)))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "tutor-1"}}
	c.Set(middleware.ContextUserKey, tutorClaims)

	handler.ReplaceWindows(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailabilityHandlerReplaceWindowsUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAvailabilityHandler(&availabilityServiceMock{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPut, "/tutors/tutor-1/windows", []service.WindowInput{})
	c.Params = gin.Params{{Key: "id", Value: "tutor-1"}}

	handler.ReplaceWindows(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAvailabilityHandlerPreviewSlots(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &availabilityServiceMock{
		slots:    []time.Time{handlerSlotStart, handlerSlotStart.Add(30 * time.Minute)},
		cacheHit: true,
	}
	handler := NewAvailabilityHandler(mock)

	from := handlerSlotStart.Add(-8 * time.Hour)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet,
		"/tutors/tutor-1/slots?from="+epochString(from)+"&duration=60", nil)
	c.Params = gin.Params{{Key: "id", Value: "tutor-1"}}
	c.Set(middleware.ContextUserKey, guardianClaims)

	handler.PreviewSlots(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tutor-1", mock.lastTutorID)
	assert.Equal(t, 60, mock.lastQuery.DurationMinutes)
	assert.Equal(t, from.UnixMilli(), mock.lastQuery.From.UnixMilli())
	assert.True(t, mock.lastQuery.To.IsZero(), "absent to stays zero for the service default")

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	data := envelope.Data.(map[string]interface{})
	slots := data["slots"].([]interface{})
	require.Len(t, slots, 2)
	assert.Equal(t, float64(handlerSlotStart.UnixMilli()), slots[0])
	_, hasTo := data["to"]
	assert.False(t, hasTo, "unpinned range end is omitted")
}

func TestAvailabilityHandlerPreviewSlotsBadRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAvailabilityHandler(&availabilityServiceMock{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/tutors/tutor-1/slots?from=tomorrow&duration=60", nil)
	c.Params = gin.Params{{Key: "id", Value: "tutor-1"}}
	c.Set(middleware.ContextUserKey, guardianClaims)

	handler.PreviewSlots(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailabilityHandlerListWindows(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &availabilityServiceMock{windows: []models.AvailabilityWindow{
		{ID: "w-1", TutorID: "tutor-1", DayOfWeek: 3, StartTime: "09:00", EndTime: "12:00", Active: true},
	}}
	handler := NewAvailabilityHandler(mock)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/tutors/tutor-1/windows", nil)
	c.Params = gin.Params{{Key: "id", Value: "tutor-1"}}
	c.Set(middleware.ContextUserKey, guardianClaims)

	handler.ListWindows(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope.Data.([]interface{})
	require.Len(t, data, 1)
	window := data[0].(map[string]interface{})
	assert.Equal(t, float64(3), window["day_of_week"])
}
