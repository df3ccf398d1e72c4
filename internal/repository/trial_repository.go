package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tutorbase/booking-api/internal/models"
)

// TrialRepository tracks per-guardian trial consumption.
type TrialRepository struct {
	db *sqlx.DB
}

// NewTrialRepository constructs the repository.
func NewTrialRepository(db *sqlx.DB) *TrialRepository {
	return &TrialRepository{db: db}
}

func (r *TrialRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockParent takes the transaction-scoped advisory lock serializing trial
// bookings for one guardian. The per-tutor lock alone does not cover two
// trial bookings against different tutors racing the same cap.
func (r *TrialRepository) LockParent(ctx context.Context, exec sqlx.ExtContext, parentID string) error {
	const query = `SELECT pg_advisory_xact_lock(hashtextextended($1, 1))`

	if _, err := r.exec(exec).ExecContext(ctx, query, parentID); err != nil {
		return fmt.Errorf("acquire parent trial lock: %w", err)
	}
	return nil
}

// GetUsage returns the guardian's trial counter. Guardians with no row yet
// have used zero trials; callers treat sql.ErrNoRows accordingly.
func (r *TrialRepository) GetUsage(ctx context.Context, exec sqlx.ExtContext, parentID string) (*models.TrialUsage, error) {
	const query = `SELECT parent_id, trials_used, updated_at FROM trial_usages WHERE parent_id = $1`

	var usage models.TrialUsage
	if err := sqlx.GetContext(ctx, r.exec(exec), &usage, query, parentID); err != nil {
		return nil, err
	}
	return &usage, nil
}

// ConsumeOnce burns one trial for the given booking. The consumption is
// keyed by session id: the first call increments the guardian's counter,
// any replay of the same session id is a no-op reporting consumed=false.
func (r *TrialRepository) ConsumeOnce(ctx context.Context, exec sqlx.ExtContext, parentID, sessionID string) (bool, error) {
	target := r.exec(exec)
	now := time.Now().UTC()

	const markQuery = `INSERT INTO trial_consumptions (session_id, parent_id, consumed_at)
VALUES ($1, $2, $3)
ON CONFLICT (session_id) DO NOTHING`

	res, err := target.ExecContext(ctx, markQuery, sessionID, parentID, now)
	if err != nil {
		return false, fmt.Errorf("mark trial consumption: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark trial consumption: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	const bumpQuery = `INSERT INTO trial_usages (parent_id, trials_used, updated_at)
VALUES ($1, 1, $2)
ON CONFLICT (parent_id) DO UPDATE
SET trials_used = trial_usages.trials_used + 1,
    updated_at = EXCLUDED.updated_at`

	if _, err := target.ExecContext(ctx, bumpQuery, parentID, now); err != nil {
		return false, fmt.Errorf("increment trial usage: %w", err)
	}
	return true, nil
}
