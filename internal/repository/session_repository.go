package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tutorbase/booking-api/internal/models"
	appErrors "github.com/tutorbase/booking-api/pkg/errors"
)

const sessionColumns = `id, tutor_id, parent_id, student_name, scheduled_at, duration_minutes, status, is_trial, subscription_id, created_at, updated_at`

// SessionRepository persists booked sessions. Write methods accept an
// sqlx.ExtContext so the booking service can run them inside the per-tutor
// transaction; passing nil falls back to the pool.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockTutor serializes all booking writes for one tutor for the remainder
// of the surrounding transaction. hashtextextended folds the tutor id into
// the bigint advisory-lock keyspace.
func (r *SessionRepository) LockTutor(ctx context.Context, exec sqlx.ExtContext, tutorID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, tutorID); err != nil {
		return fmt.Errorf("acquire tutor booking lock: %w", err)
	}
	return nil
}

// GetByID fetches one session.
func (r *SessionRepository) GetByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	var session models.Session
	if err := sqlx.GetContext(ctx, r.exec(exec), &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// BlockingFilter scopes ListBlocking to the intervals that matter for a
// conflict check.
type BlockingFilter struct {
	TutorID               string
	From                  *time.Time
	To                    *time.Time
	ExcludeSessionID      string
	ExcludeSubscriptionID string
}

// ListBlocking returns the tutor's time-occupying sessions, optionally
// bounded to an interval and with the moving session or series excluded.
// Only cancelled sessions are left out.
func (r *SessionRepository) ListBlocking(ctx context.Context, exec sqlx.ExtContext, filter BlockingFilter) ([]models.Session, error) {
	var (
		conditions = []string{"tutor_id = $1", "status <> 'cancelled'"}
		args       = []interface{}{filter.TutorID}
	)

	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("scheduled_at + make_interval(mins => duration_minutes) > $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("scheduled_at < $%d", len(args)))
	}
	if filter.ExcludeSessionID != "" {
		args = append(args, filter.ExcludeSessionID)
		conditions = append(conditions, fmt.Sprintf("id <> $%d", len(args)))
	}
	if filter.ExcludeSubscriptionID != "" {
		args = append(args, filter.ExcludeSubscriptionID)
		conditions = append(conditions, fmt.Sprintf("(subscription_id IS NULL OR subscription_id <> $%d)", len(args)))
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY scheduled_at ASC`

	var sessions []models.Session
	if err := sqlx.SelectContext(ctx, r.exec(exec), &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list blocking sessions: %w", err)
	}
	return sessions, nil
}

// ListBySubscription returns all sessions of a series ordered by schedule.
func (r *SessionRepository) ListBySubscription(ctx context.Context, exec sqlx.ExtContext, subscriptionID string) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE subscription_id = $1 ORDER BY scheduled_at ASC, id ASC`

	var sessions []models.Session
	if err := sqlx.SelectContext(ctx, r.exec(exec), &sessions, query, subscriptionID); err != nil {
		return nil, fmt.Errorf("list subscription sessions: %w", err)
	}
	return sessions, nil
}

// CountActiveBySubscription counts the series members that still consume
// subscription capacity (everything not cancelled).
func (r *SessionRepository) CountActiveBySubscription(ctx context.Context, exec sqlx.ExtContext, subscriptionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions WHERE subscription_id = $1 AND status <> 'cancelled'`

	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, query, subscriptionID); err != nil {
		return 0, fmt.Errorf("count subscription sessions: %w", err)
	}
	return count, nil
}

// Insert stores a new session. Unique and exclusion constraint trips are
// surfaced as concurrent booking conflicts so the caller can retry.
func (r *SessionRepository) Insert(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	if session.Status == "" {
		session.Status = models.SessionScheduled
	}

	const query = `INSERT INTO sessions (id, tutor_id, parent_id, student_name, scheduled_at, duration_minutes, status, is_trial, subscription_id, created_at, updated_at)
VALUES (:id, :tutor_id, :parent_id, :student_name, :scheduled_at, :duration_minutes, :status, :is_trial, :subscription_id, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, session); err != nil {
		return mapBookingWriteError(err, "insert session")
	}
	return nil
}

// UpdateSchedule moves a session to a new start.
func (r *SessionRepository) UpdateSchedule(ctx context.Context, exec sqlx.ExtContext, id string, scheduledAt time.Time) error {
	const query = `UPDATE sessions SET scheduled_at = $1, updated_at = $2 WHERE id = $3`

	if _, err := r.exec(exec).ExecContext(ctx, query, scheduledAt, time.Now().UTC(), id); err != nil {
		return mapBookingWriteError(err, "update session schedule")
	}
	return nil
}

// SessionReschedule pairs a session with its new start for bulk series
// updates.
type SessionReschedule struct {
	ID          string
	ScheduledAt time.Time
}

// BulkUpdateSchedule moves every listed session; the caller wraps it in the
// per-tutor transaction so the batch is all-or-nothing.
func (r *SessionRepository) BulkUpdateSchedule(ctx context.Context, exec sqlx.ExtContext, updates []SessionReschedule) error {
	const query = `UPDATE sessions SET scheduled_at = $1, updated_at = $2 WHERE id = $3`

	now := time.Now().UTC()
	target := r.exec(exec)
	for _, u := range updates {
		if _, err := target.ExecContext(ctx, query, u.ScheduledAt, now, u.ID); err != nil {
			return mapBookingWriteError(err, "update series schedule")
		}
	}
	return nil
}

// UpdateStatus transitions a session's lifecycle state.
func (r *SessionRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SessionStatus) error {
	const query = `UPDATE sessions SET status = $1, updated_at = $2 WHERE id = $3`

	if _, err := r.exec(exec).ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return nil
}

// CancelBySubscription cancels every still-scheduled member of a series and
// reports how many rows changed.
func (r *SessionRepository) CancelBySubscription(ctx context.Context, exec sqlx.ExtContext, subscriptionID string) (int64, error) {
	const query = `UPDATE sessions SET status = 'cancelled', updated_at = $1 WHERE subscription_id = $2 AND status = 'scheduled'`

	res, err := r.exec(exec).ExecContext(ctx, query, time.Now().UTC(), subscriptionID)
	if err != nil {
		return 0, fmt.Errorf("cancel subscription sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cancel subscription sessions: %w", err)
	}
	return affected, nil
}

// List returns sessions matching the filter plus pagination metadata.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error) {
	var (
		conditions []string
		args       []interface{}
	)

	appendCondition := func(expr string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(expr, len(args)))
	}

	if filter.TutorID != "" {
		appendCondition("tutor_id = $%d", filter.TutorID)
	}
	if filter.ParentID != "" {
		appendCondition("parent_id = $%d", filter.ParentID)
	}
	if filter.SubscriptionID != "" {
		appendCondition("subscription_id = $%d", filter.SubscriptionID)
	}
	if filter.Status != nil {
		appendCondition("status = $%d", *filter.Status)
	}
	if filter.From != nil {
		appendCondition("scheduled_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		appendCondition("scheduled_at <= $%d", *filter.To)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM sessions`+where, args...); err != nil {
		return nil, nil, fmt.Errorf("count sessions: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`SELECT %s FROM sessions%s ORDER BY scheduled_at ASC LIMIT $%d OFFSET $%d`,
		sessionColumns, where, len(args)-1, len(args))

	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, nil, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// mapBookingWriteError converts constraint violations raised by the
// sessions exclusion/unique guards into the typed concurrency conflict.
func mapBookingWriteError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505", "23P01": // unique_violation, exclusion_violation
			return appErrors.Wrap(err, appErrors.ErrConcurrentBookingConflict.Code, appErrors.ErrConcurrentBookingConflict.Status, appErrors.ErrConcurrentBookingConflict.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
