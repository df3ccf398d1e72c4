package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tutorbase/booking-api/internal/models"
	"github.com/tutorbase/booking-api/pkg/config"
	appErrors "github.com/tutorbase/booking-api/pkg/errors"
	"github.com/tutorbase/booking-api/pkg/jobs"
)

type bookingEventRepository interface {
	Insert(ctx context.Context, event *models.BookingEvent) error
	ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]models.BookingEvent, error)
}

// EventService persists booking audit events off the request path through
// the in-memory job queue. Recording never fails the triggering operation:
// a full queue drops the event with a warning.
type EventService struct {
	repo   bookingEventRepository
	queue  *jobs.Queue
	logger *zap.Logger
	now    func() time.Time
}

// NewEventService wires the asynchronous recorder.
func NewEventService(repo bookingEventRepository, cfg config.EventsConfig, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &EventService{repo: repo, logger: logger, now: time.Now}
	s.queue = jobs.NewQueue("booking-events", s.persist, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		BufferSize: cfg.QueueSize,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *EventService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains and stops the queue workers.
func (s *EventService) Stop() {
	s.queue.Stop()
}

// Record enqueues one audit event for asynchronous persistence.
func (s *EventService) Record(actor models.JWTClaims, operation, entityType, entityID string, payload interface{}) {
	var raw json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			s.logger.Warn("booking event payload not serializable",
				zap.String("operation", operation), zap.Error(err))
		} else {
			raw = encoded
		}
	}

	event := &models.BookingEvent{
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Operation:  operation,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    raw,
		OccurredAt: s.now().UTC(),
	}
	if err := s.queue.Enqueue(jobs.Job{Type: operation, Payload: event}); err != nil {
		s.logger.Warn("booking event dropped",
			zap.String("operation", operation),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

// ListByEntity returns the persisted audit trail for one entity, newest
// first.
func (s *EventService) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]models.BookingEvent, error) {
	events, err := s.repo.ListByEntity(ctx, entityType, entityID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking events")
	}
	return events, nil
}

func (s *EventService) persist(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(*models.BookingEvent)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	return s.repo.Insert(ctx, event)
}
