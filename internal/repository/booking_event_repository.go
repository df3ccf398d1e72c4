package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorbase/booking-api/internal/models"
)

// BookingEventRepository appends to the immutable booking audit trail.
type BookingEventRepository struct {
	db *sqlx.DB
}

// NewBookingEventRepository constructs the repository.
func NewBookingEventRepository(db *sqlx.DB) *BookingEventRepository {
	return &BookingEventRepository{db: db}
}

// Insert appends one event.
func (r *BookingEventRepository) Insert(ctx context.Context, event *models.BookingEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	const query = `INSERT INTO booking_events (id, actor_id, actor_role, operation, entity_type, entity_id, payload, occurred_at)
VALUES (:id, :actor_id, :actor_role, :operation, :entity_type, :entity_id, :payload, :occurred_at)`

	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("insert booking event: %w", err)
	}
	return nil
}

// ListByEntity returns the latest events for one entity, newest first.
func (r *BookingEventRepository) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]models.BookingEvent, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	const query = `SELECT id, actor_id, actor_role, operation, entity_type, entity_id, payload, occurred_at
FROM booking_events WHERE entity_type = $1 AND entity_id = $2 ORDER BY occurred_at DESC LIMIT $3`

	var events []models.BookingEvent
	if err := r.db.SelectContext(ctx, &events, query, entityType, entityID, limit); err != nil {
		return nil, fmt.Errorf("list booking events: %w", err)
	}
	return events, nil
}
