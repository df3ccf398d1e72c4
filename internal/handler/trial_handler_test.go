package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/booking-api/internal/middleware"
	"github.com/tutorbase/booking-api/internal/models"
)

type trialServiceMock struct {
	eligibility *models.TrialEligibility
	err         error
	lastID      string
}

func (m *trialServiceMock) Eligibility(_ context.Context, parentID string) (*models.TrialEligibility, error) {
	m.lastID = parentID
	return m.eligibility, m.err
}

func TestTrialHandlerEligibility(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &trialServiceMock{eligibility: &models.TrialEligibility{
		ParentID:   "parent-1",
		TrialsUsed: 1,
		TrialCap:   2,
		Eligible:   true,
	}}
	handler := NewTrialHandler(mock)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/parents/parent-1/trial-eligibility", nil)
	c.Params = gin.Params{{Key: "id", Value: "parent-1"}}
	c.Set(middleware.ContextUserKey, guardianClaims)

	handler.Eligibility(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "parent-1", mock.lastID)

	envelope := decodeEnvelope(t, rec)
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["trials_used"])
	assert.Equal(t, true, data["eligible"])
}
