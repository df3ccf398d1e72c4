package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/booking-api/internal/models"
	"github.com/tutorbase/booking-api/pkg/config"
	appErrors "github.com/tutorbase/booking-api/pkg/errors"
)

func TestTrialEligibility(t *testing.T) {
	tests := []struct {
		name     string
		usage    map[string]int
		used     int
		eligible bool
	}{
		{name: "no usage row yet", usage: map[string]int{}, used: 0, eligible: true},
		{name: "one trial used", usage: map[string]int{"parent-1": 1}, used: 1, eligible: true},
		{name: "cap reached", usage: map[string]int{"parent-1": 2}, used: 2, eligible: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewTrialService(&trialRepoStub{usage: tt.usage}, config.BookingConfig{TrialCap: 2}, nil)

			got, err := svc.Eligibility(context.Background(), "parent-1")
			require.NoError(t, err)
			assert.Equal(t, "parent-1", got.ParentID)
			assert.Equal(t, tt.used, got.TrialsUsed)
			assert.Equal(t, 2, got.TrialCap)
			assert.Equal(t, tt.eligible, got.Eligible)
		})
	}
}

type failingTrialReader struct{}

func (failingTrialReader) GetUsage(_ context.Context, _ sqlx.ExtContext, _ string) (*models.TrialUsage, error) {
	return nil, errors.New("connection reset")
}

func TestTrialEligibilityStoreFailure(t *testing.T) {
	svc := NewTrialService(failingTrialReader{}, config.BookingConfig{}, nil)

	_, err := svc.Eligibility(context.Background(), "parent-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
