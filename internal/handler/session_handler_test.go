package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/booking-api/internal/middleware"
	"github.com/tutorbase/booking-api/internal/models"
	"github.com/tutorbase/booking-api/internal/service"
)

type responseEnvelope struct {
	Data       interface{}            `json:"data"`
	Meta       map[string]interface{} `json:"meta"`
	Pagination *models.Pagination     `json:"pagination"`
	Error      *envelopeError         `json:"error"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	adminClaims    = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	guardianClaims = &models.JWTClaims{UserID: "parent-1", Role: models.RoleGuardian}
	tutorClaims    = &models.JWTClaims{UserID: "tutor-1", Role: models.RoleTutor}
)

var handlerSlotStart = time.Date(2026, time.March, 2, 16, 0, 0, 0, time.UTC)

func sampleSession() *models.Session {
	return &models.Session{
		ID:              "sess-1",
		TutorID:         "tutor-1",
		ParentID:        "parent-1",
		StudentName:     "Ada",
		ScheduledAt:     handlerSlotStart,
		DurationMinutes: 60,
		Status:          models.SessionScheduled,
	}
}

type bookingServiceMock struct {
	session    *models.Session
	sessions   []models.Session
	pagination *models.Pagination
	err        error

	lastActor  models.JWTClaims
	lastID     string
	lastBook   service.BookSessionRequest
	lastFilter models.SessionFilter
}

func (m *bookingServiceMock) BookSession(_ context.Context, actor models.JWTClaims, req service.BookSessionRequest) (*models.Session, error) {
	m.lastActor = actor
	m.lastBook = req
	return m.session, m.err
}

func (m *bookingServiceMock) RescheduleSession(_ context.Context, actor models.JWTClaims, sessionID string, _ service.RescheduleSessionRequest) (*models.Session, error) {
	m.lastActor = actor
	m.lastID = sessionID
	return m.session, m.err
}

func (m *bookingServiceMock) CancelSession(_ context.Context, actor models.JWTClaims, sessionID string) (*models.Session, error) {
	m.lastActor = actor
	m.lastID = sessionID
	return m.session, m.err
}

func (m *bookingServiceMock) SetSessionStatus(_ context.Context, actor models.JWTClaims, sessionID string, _ service.SetSessionStatusRequest) (*models.Session, error) {
	m.lastActor = actor
	m.lastID = sessionID
	return m.session, m.err
}

func (m *bookingServiceMock) GetSession(_ context.Context, id string) (*models.Session, error) {
	m.lastID = id
	return m.session, m.err
}

func (m *bookingServiceMock) ListSessions(_ context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error) {
	m.lastFilter = filter
	return m.sessions, m.pagination, m.err
}

type eventListerMock struct {
	events    []models.BookingEvent
	err       error
	lastID    string
	lastLimit int
}

func (m *eventListerMock) ListByEntity(_ context.Context, _, entityID string, limit int) ([]models.BookingEvent, error) {
	m.lastID = entityID
	m.lastLimit = limit
	return m.events, m.err
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func jsonRequest(method, target string, payload interface{}) *http.Request {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSessionHandlerBookSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &bookingServiceMock{session: sampleSession()}
	handler := NewSessionHandler(mock, &eventListerMock{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/sessions", service.BookSessionRequest{
		TutorID:         "tutor-1",
		ParentID:        "parent-1",
		StudentName:     "Ada",
		ScheduledAt:     handlerSlotStart.UnixMilli(),
		DurationMinutes: 60,
	})
	c.Set(middleware.ContextUserKey, guardianClaims)

	handler.Book(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "parent-1", mock.lastActor.UserID)
	assert.Equal(t, handlerSlotStart.UnixMilli(), mock.lastBook.ScheduledAt)

	envelope := decodeEnvelope(t, rec)
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, "sess-1", data["id"])
	assert.Equal(t, float64(handlerSlotStart.UnixMilli()), data["scheduled_at"])
}

func TestSessionHandlerBookInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSessionHandler(&bookingServiceMock{}, &eventListerMock{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader([]byte(`{"tutor_id":`)))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, guardianClaims)

	handler.Book(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandlerBookUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSessionHandler(&bookingServiceMock{}, &eventListerMock{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/sessions", service.BookSessionRequest{})

	handler.Book(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionHandlerGetEnforcesOwnership(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		claims *models.JWTClaims
		status int
	}{
		{name: "owning guardian", claims: guardianClaims, status: http.StatusOK},
		{name: "owning tutor", claims: tutorClaims, status: http.StatusOK},
		{name: "admin", claims: adminClaims, status: http.StatusOK},
		{name: "stranger", claims: &models.JWTClaims{UserID: "parent-9", Role: models.RoleGuardian}, status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSessionHandler(&bookingServiceMock{session: sampleSession()}, &eventListerMock{})
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/sessions/sess-1", nil)
			c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
			c.Set(middleware.ContextUserKey, tt.claims)

			handler.Get(c)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestSessionHandlerCancelReturnsCancelledSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cancelled := sampleSession()
	cancelled.Status = models.SessionCancelled
	mock := &bookingServiceMock{session: cancelled}
	handler := NewSessionHandler(mock, &eventListerMock{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/sessions/sess-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
	c.Set(middleware.ContextUserKey, guardianClaims)

	handler.Cancel(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sess-1", mock.lastID)

	envelope := decodeEnvelope(t, rec)
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, string(models.SessionCancelled), data["status"])
}

func TestSessionHandlerSetStatusInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSessionHandler(&bookingServiceMock{}, &eventListerMock{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPatch, "/sessions/sess-1/status", bytes.NewReader([]byte(`not json`)))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
	c.Set(middleware.ContextUserKey, tutorClaims)

	handler.SetStatus(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandlerEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lister := &eventListerMock{events: []models.BookingEvent{
		{ID: "ev-1", Operation: models.EventSessionBooked, EntityType: models.EntitySession, EntityID: "sess-1", OccurredAt: handlerSlotStart},
	}}
	handler := NewSessionHandler(&bookingServiceMock{}, lister)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/sessions/sess-1/events", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
	c.Set(middleware.ContextUserKey, adminClaims)

	handler.Events(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sess-1", lister.lastID)
	assert.Equal(t, 50, lister.lastLimit)

	envelope := decodeEnvelope(t, rec)
	data := envelope.Data.([]interface{})
	require.Len(t, data, 1)
}

func TestSessionHandlerListByTutor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &bookingServiceMock{
		sessions:   []models.Session{*sampleSession()},
		pagination: &models.Pagination{Page: 2, PageSize: 10, TotalCount: 11},
	}
	handler := NewSessionHandler(mock, &eventListerMock{})

	from := handlerSlotStart.Add(-time.Hour)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet,
		"/tutors/tutor-1/sessions?from="+epochString(from)+"&status=scheduled&page=2&pageSize=10", nil)
	c.Params = gin.Params{{Key: "id", Value: "tutor-1"}}
	c.Set(middleware.ContextUserKey, tutorClaims)

	handler.ListByTutor(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tutor-1", mock.lastFilter.TutorID)
	assert.Equal(t, 2, mock.lastFilter.Page)
	assert.Equal(t, 10, mock.lastFilter.PageSize)
	require.NotNil(t, mock.lastFilter.From)
	assert.Equal(t, from.UnixMilli(), mock.lastFilter.From.UnixMilli())
	require.NotNil(t, mock.lastFilter.Status)
	assert.Equal(t, models.SessionScheduled, *mock.lastFilter.Status)

	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 11, envelope.Pagination.TotalCount)
}

func TestSessionHandlerListRejectsBadRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSessionHandler(&bookingServiceMock{}, &eventListerMock{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/parents/parent-1/sessions?from=yesterday", nil)
	c.Params = gin.Params{{Key: "id", Value: "parent-1"}}
	c.Set(middleware.ContextUserKey, guardianClaims)

	handler.ListByParent(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestSessionHandlerListRejectsUnknownStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSessionHandler(&bookingServiceMock{}, &eventListerMock{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/tutors/tutor-1/sessions?status=paused", nil)
	c.Params = gin.Params{{Key: "id", Value: "tutor-1"}}
	c.Set(middleware.ContextUserKey, tutorClaims)

	handler.ListByTutor(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func epochString(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
