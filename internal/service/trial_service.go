package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/tutorbase/booking-api/internal/models"
	"github.com/tutorbase/booking-api/pkg/config"
	appErrors "github.com/tutorbase/booking-api/pkg/errors"
)

type trialUsageReader interface {
	GetUsage(ctx context.Context, exec sqlx.ExtContext, parentID string) (*models.TrialUsage, error)
}

// TrialService answers eligibility lookups. Consumption happens inside the
// booking transaction, not here.
type TrialService struct {
	trials trialUsageReader
	cap    int
	logger *zap.Logger
}

// NewTrialService constructs the trial read-model.
func NewTrialService(trials trialUsageReader, cfg config.BookingConfig, logger *zap.Logger) *TrialService {
	trialCap := cfg.TrialCap
	if trialCap <= 0 {
		trialCap = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrialService{trials: trials, cap: trialCap, logger: logger}
}

// Eligibility reports how many trials the guardian has used against the
// cap. Guardians with no usage row yet have used zero.
func (s *TrialService) Eligibility(ctx context.Context, parentID string) (*models.TrialEligibility, error) {
	used := 0
	usage, err := s.trials.GetUsage(ctx, nil, parentID)
	switch {
	case err == nil:
		used = usage.TrialsUsed
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trial usage")
	}

	return &models.TrialEligibility{
		ParentID:   parentID,
		TrialsUsed: used,
		TrialCap:   s.cap,
		Eligible:   used < s.cap,
	}, nil
}
