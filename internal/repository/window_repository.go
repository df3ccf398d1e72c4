package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorbase/booking-api/internal/models"
)

// WindowRepository persists tutors' weekly availability windows.
type WindowRepository struct {
	db *sqlx.DB
}

// NewWindowRepository constructs the repository.
func NewWindowRepository(db *sqlx.DB) *WindowRepository {
	return &WindowRepository{db: db}
}

func (r *WindowRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByTutor returns every window of a tutor ordered by weekday and start.
func (r *WindowRepository) ListByTutor(ctx context.Context, exec sqlx.ExtContext, tutorID string) ([]models.AvailabilityWindow, error) {
	const query = `SELECT id, tutor_id, day_of_week, start_time, end_time, active, created_at, updated_at
FROM availability_windows WHERE tutor_id = $1 ORDER BY day_of_week ASC, start_time ASC`

	var windows []models.AvailabilityWindow
	if err := sqlx.SelectContext(ctx, r.exec(exec), &windows, query, tutorID); err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	return windows, nil
}

// ReplaceForTutor swaps a tutor's whole weekly definition in one
// transaction. Windows are owned by the tutor's settings action, so a full
// replace is the only mutation.
func (r *WindowRepository) ReplaceForTutor(ctx context.Context, tutorID string, windows []models.AvailabilityWindow) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin window replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM availability_windows WHERE tutor_id = $1`, tutorID); err != nil {
		return fmt.Errorf("clear availability windows: %w", err)
	}

	const insertQuery = `INSERT INTO availability_windows (id, tutor_id, day_of_week, start_time, end_time, active, created_at, updated_at)
VALUES (:id, :tutor_id, :day_of_week, :start_time, :end_time, :active, :created_at, :updated_at)`

	now := time.Now().UTC()
	for i := range windows {
		w := &windows[i]
		if w.ID == "" {
			w.ID = uuid.NewString()
		}
		w.TutorID = tutorID
		if w.CreatedAt.IsZero() {
			w.CreatedAt = now
		}
		w.UpdatedAt = now

		if _, err = sqlx.NamedExecContext(ctx, tx, insertQuery, w); err != nil {
			return fmt.Errorf("insert availability window: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit window replace: %w", err)
	}
	return nil
}
