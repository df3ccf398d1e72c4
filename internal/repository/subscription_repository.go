package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorbase/booking-api/internal/models"
)

const subscriptionColumns = `id, tutor_id, parent_id, student_name, frequency, total_sessions, default_duration_minutes, status, created_at, updated_at`

// SubscriptionRepository persists recurring series definitions.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository constructs the repository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// GetByID fetches one subscription.
func (r *SubscriptionRepository) GetByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	var sub models.Subscription
	if err := sqlx.GetContext(ctx, r.exec(exec), &sub, query, id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Insert stores a new subscription.
func (r *SubscriptionRepository) Insert(ctx context.Context, exec sqlx.ExtContext, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	if sub.Status == "" {
		sub.Status = models.SubscriptionActive
	}

	const query = `INSERT INTO subscriptions (id, tutor_id, parent_id, student_name, frequency, total_sessions, default_duration_minutes, status, created_at, updated_at)
VALUES (:id, :tutor_id, :parent_id, :student_name, :frequency, :total_sessions, :default_duration_minutes, :status, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, sub); err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// UpdateStatus transitions a subscription's lifecycle state.
func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SubscriptionStatus) error {
	const query = `UPDATE subscriptions SET status = $1, updated_at = $2 WHERE id = $3`

	if _, err := r.exec(exec).ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}
	return nil
}
