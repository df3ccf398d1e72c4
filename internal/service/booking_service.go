package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/tutorbase/booking-api/internal/models"
	"github.com/tutorbase/booking-api/internal/repository"
	"github.com/tutorbase/booking-api/internal/scheduling"
	"github.com/tutorbase/booking-api/pkg/config"
	appErrors "github.com/tutorbase/booking-api/pkg/errors"
)

type bookingWindowReader interface {
	ListByTutor(ctx context.Context, exec sqlx.ExtContext, tutorID string) ([]models.AvailabilityWindow, error)
}

type bookingSessionRepository interface {
	LockTutor(ctx context.Context, exec sqlx.ExtContext, tutorID string) error
	GetByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Session, error)
	ListBlocking(ctx context.Context, exec sqlx.ExtContext, filter repository.BlockingFilter) ([]models.Session, error)
	ListBySubscription(ctx context.Context, exec sqlx.ExtContext, subscriptionID string) ([]models.Session, error)
	CountActiveBySubscription(ctx context.Context, exec sqlx.ExtContext, subscriptionID string) (int, error)
	Insert(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error
	UpdateSchedule(ctx context.Context, exec sqlx.ExtContext, id string, scheduledAt time.Time) error
	BulkUpdateSchedule(ctx context.Context, exec sqlx.ExtContext, updates []repository.SessionReschedule) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SessionStatus) error
	CancelBySubscription(ctx context.Context, exec sqlx.ExtContext, subscriptionID string) (int64, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error)
}

type bookingSubscriptionRepository interface {
	GetByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Subscription, error)
	Insert(ctx context.Context, exec sqlx.ExtContext, sub *models.Subscription) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SubscriptionStatus) error
}

type bookingTrialRepository interface {
	LockParent(ctx context.Context, exec sqlx.ExtContext, parentID string) error
	GetUsage(ctx context.Context, exec sqlx.ExtContext, parentID string) (*models.TrialUsage, error)
	ConsumeOnce(ctx context.Context, exec sqlx.ExtContext, parentID, sessionID string) (bool, error)
}

type bookingEventRecorder interface {
	Record(actor models.JWTClaims, operation, entityType, entityID string, payload interface{})
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// BookingService owns every mutation of the booked set. All writes for a
// tutor run inside one transaction holding that tutor's advisory lock, with
// the slot re-validated against the live booked set under the lock.
type BookingService struct {
	tx            txProvider
	windows       bookingWindowReader
	sessions      bookingSessionRepository
	subscriptions bookingSubscriptionRepository
	trials        bookingTrialRepository
	events        bookingEventRecorder
	cache         *CacheService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	cfg           config.BookingConfig
	loc           *time.Location
	now           func() time.Time
}

// BookingServiceParams groups constructor dependencies.
type BookingServiceParams struct {
	Tx            txProvider
	Windows       bookingWindowReader
	Sessions      bookingSessionRepository
	Subscriptions bookingSubscriptionRepository
	Trials        bookingTrialRepository
	Events        bookingEventRecorder
	Cache         *CacheService
	Metrics       *MetricsService
	Validator     *validator.Validate
	Logger        *zap.Logger
	Config        config.BookingConfig
	Location      *time.Location
}

// NewBookingService wires the booking orchestrator with sane defaults.
func NewBookingService(params BookingServiceParams) *BookingService {
	cfg := params.Config
	if cfg.MinNoticeHours <= 0 {
		cfg.MinNoticeHours = 12
	}
	if cfg.SlotStepMinutes <= 0 {
		cfg.SlotStepMinutes = 30
	}
	if cfg.TrialCap <= 0 {
		cfg.TrialCap = 2
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterValidation("booking_frequency", func(fl validator.FieldLevel) bool {
		return models.SubscriptionFrequency(strings.ToLower(fl.Field().String())).Valid()
	})
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &BookingService{
		tx:            params.Tx,
		windows:       params.Windows,
		sessions:      params.Sessions,
		subscriptions: params.Subscriptions,
		trials:        params.Trials,
		events:        params.Events,
		cache:         params.Cache,
		metrics:       params.Metrics,
		validator:     validate,
		logger:        logger,
		cfg:           cfg,
		loc:           loc,
		now:           time.Now,
	}
}

// BookSessionRequest is the payload for booking a single session.
type BookSessionRequest struct {
	TutorID         string  `json:"tutor_id" validate:"required"`
	ParentID        string  `json:"parent_id" validate:"required"`
	StudentName     string  `json:"student_name" validate:"required"`
	ScheduledAt     int64   `json:"scheduled_at" validate:"required"`
	DurationMinutes int     `json:"duration_minutes" validate:"required,min=15,max=480"`
	Trial           bool    `json:"trial"`
	SubscriptionID  *string `json:"subscription_id,omitempty"`
}

// RescheduleSessionRequest moves one session to a new start.
type RescheduleSessionRequest struct {
	ScheduledAt int64 `json:"scheduled_at" validate:"required"`
}

// SetSessionStatusRequest finalises a past session.
type SetSessionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=completed no_show"`
}

// CreateSubscriptionRequest books a recurring series in one shot. Anchor is
// the first occurrence's start instant in epoch milliseconds.
type CreateSubscriptionRequest struct {
	TutorID         string `json:"tutor_id" validate:"required"`
	ParentID        string `json:"parent_id" validate:"required"`
	StudentName     string `json:"student_name" validate:"required"`
	Frequency       string `json:"frequency" validate:"required,booking_frequency"`
	TotalSessions   int    `json:"total_sessions" validate:"required,min=1,max=52"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=15,max=480"`
	Anchor          int64  `json:"anchor" validate:"required"`
}

// RescheduleSeriesRequest replans every remaining session of a subscription
// from a new anchor. Only the anchor's date matters; each session keeps its
// own time-of-day.
type RescheduleSeriesRequest struct {
	Anchor int64 `json:"anchor" validate:"required"`
}

// BookSession books a single or trial session. Trial eligibility is checked
// before any slot work so capped guardians are rejected without touching
// the calendar; the start must be a member of the tutor's live resolved
// slot set.
func (s *BookingService) BookSession(ctx context.Context, actor models.JWTClaims, req BookSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if req.Trial && req.SubscriptionID != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a trial session cannot belong to a subscription")
	}
	if err := guardianActsFor(actor, req.ParentID); err != nil {
		return nil, err
	}

	start := time.UnixMilli(req.ScheduledAt).In(s.loc)
	duration := time.Duration(req.DurationMinutes) * time.Minute

	var session *models.Session
	err := s.withTutorLock(ctx, req.TutorID, func(tx *sqlx.Tx) error {
		if req.Trial {
			if err := s.trials.LockParent(ctx, tx, req.ParentID); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire trial lock")
			}
			if err := s.ensureTrialEligible(ctx, tx, req.ParentID); err != nil {
				return err
			}
		}
		if req.SubscriptionID != nil {
			if err := s.ensureSubscriptionBookable(ctx, tx, *req.SubscriptionID, req.TutorID, req.ParentID); err != nil {
				return err
			}
		}

		if err := s.ensureSlotOpen(ctx, tx, req.TutorID, start, duration, ""); err != nil {
			return err
		}

		session = &models.Session{
			ID:              uuid.NewString(),
			TutorID:         req.TutorID,
			ParentID:        req.ParentID,
			StudentName:     req.StudentName,
			ScheduledAt:     start,
			DurationMinutes: req.DurationMinutes,
			Status:          models.SessionScheduled,
			IsTrial:         req.Trial,
			SubscriptionID:  req.SubscriptionID,
		}
		if err := s.sessions.Insert(ctx, tx, session); err != nil {
			return err
		}

		if req.Trial {
			if _, err := s.trials.ConsumeOnce(ctx, tx, req.ParentID, session.ID); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume trial")
			}
		}
		return nil
	})
	s.recordOutcome("book_session", err)
	if err != nil {
		return nil, err
	}

	s.invalidateSlots(ctx, req.TutorID)
	s.recordEvent(actor, models.EventSessionBooked, models.EntitySession, session.ID, session)
	return session, nil
}

// RescheduleSession moves a scheduled session to a new start. The existing
// start must still satisfy the notice policy and the new start must be an
// open slot with the session itself excluded from the busy set.
func (s *BookingService) RescheduleSession(ctx context.Context, actor models.JWTClaims, sessionID string, req RescheduleSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}

	current, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := guardianActsFor(actor, current.ParentID); err != nil {
		return nil, err
	}

	newStart := time.UnixMilli(req.ScheduledAt).In(s.loc)
	duration := time.Duration(current.DurationMinutes) * time.Minute

	var updated *models.Session
	err = s.withTutorLock(ctx, current.TutorID, func(tx *sqlx.Tx) error {
		sess, err := s.loadSessionForUpdate(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if err := s.ensureModifiable(sess, "rescheduled"); err != nil {
			return err
		}
		if err := s.ensureSlotOpen(ctx, tx, sess.TutorID, newStart, duration, sess.ID); err != nil {
			return err
		}
		if err := s.sessions.UpdateSchedule(ctx, tx, sess.ID, newStart); err != nil {
			return err
		}
		sess.ScheduledAt = newStart
		updated = sess
		return nil
	})
	s.recordOutcome("reschedule_session", err)
	if err != nil {
		return nil, err
	}

	s.invalidateSlots(ctx, current.TutorID)
	s.recordEvent(actor, models.EventSessionRescheduled, models.EntitySession, updated.ID, updated)
	return updated, nil
}

// CancelSession marks a scheduled session cancelled, freeing its interval.
// Trials are not refunded on cancellation.
func (s *BookingService) CancelSession(ctx context.Context, actor models.JWTClaims, sessionID string) (*models.Session, error) {
	current, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := guardianActsFor(actor, current.ParentID); err != nil {
		return nil, err
	}

	var cancelled *models.Session
	err = s.withTutorLock(ctx, current.TutorID, func(tx *sqlx.Tx) error {
		sess, err := s.loadSessionForUpdate(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if err := s.ensureModifiable(sess, "cancelled"); err != nil {
			return err
		}
		if err := s.sessions.UpdateStatus(ctx, tx, sess.ID, models.SessionCancelled); err != nil {
			return err
		}
		sess.Status = models.SessionCancelled
		cancelled = sess
		return nil
	})
	s.recordOutcome("cancel_session", err)
	if err != nil {
		return nil, err
	}

	s.invalidateSlots(ctx, current.TutorID)
	s.recordEvent(actor, models.EventSessionCancelled, models.EntitySession, cancelled.ID, cancelled)
	return cancelled, nil
}

// SetSessionStatus finalises a session as completed or no_show once its end
// instant has passed. Only the session's tutor (or an admin) may do this.
// Finalising the last outstanding member of a fully-booked subscription also
// closes the subscription.
func (s *BookingService) SetSessionStatus(ctx context.Context, actor models.JWTClaims, sessionID string, req SetSessionStatusRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	target := models.SessionStatus(req.Status)

	current, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := tutorActsOn(actor, current.TutorID); err != nil {
		return nil, err
	}

	var finalised *models.Session
	err = s.withTutorLock(ctx, current.TutorID, func(tx *sqlx.Tx) error {
		sess, err := s.loadSessionForUpdate(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if sess.Status != models.SessionScheduled {
			return appErrors.Clone(appErrors.ErrModificationNotAllowed, "only scheduled sessions can be finalised")
		}
		if s.now().Before(sess.EndsAt()) {
			return appErrors.Clone(appErrors.ErrConflict, "session has not ended yet")
		}
		if err := s.sessions.UpdateStatus(ctx, tx, sess.ID, target); err != nil {
			return err
		}
		sess.Status = target
		if sess.SubscriptionID != nil {
			if err := s.maybeCompleteSubscription(ctx, tx, *sess.SubscriptionID); err != nil {
				return err
			}
		}
		finalised = sess
		return nil
	})
	s.recordOutcome("set_session_status", err)
	if err != nil {
		return nil, err
	}

	s.recordEvent(actor, models.EventSessionStatusSet, models.EntitySession, finalised.ID, finalised)
	return finalised, nil
}

// CreateSubscription books a recurring series atomically: the subscription
// row plus its first TotalSessions occurrences generated from the anchor
// slot at the chosen cadence. One bad occurrence aborts the whole series.
func (s *BookingService) CreateSubscription(ctx context.Context, actor models.JWTClaims, req CreateSubscriptionRequest) (*models.Subscription, []models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subscription payload")
	}
	if err := guardianActsFor(actor, req.ParentID); err != nil {
		return nil, nil, err
	}

	frequency := models.SubscriptionFrequency(strings.ToLower(req.Frequency))
	anchor := time.UnixMilli(req.Anchor).In(s.loc)
	duration := time.Duration(req.DurationMinutes) * time.Minute

	var (
		sub    *models.Subscription
		booked []models.Session
	)
	err := s.withTutorLock(ctx, req.TutorID, func(tx *sqlx.Tx) error {
		windows, err := s.windows.ListByTutor(ctx, tx, req.TutorID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability windows")
		}

		plan := scheduling.GenerateSeries(anchor, req.TotalSessions, frequency.StepDays(), duration, s.loc)
		lastEnd := plan[len(plan)-1].End
		busy, err := s.sessions.ListBlocking(ctx, tx, repository.BlockingFilter{TutorID: req.TutorID, From: &anchor, To: &lastEnd})
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booked sessions")
		}

		params := scheduling.ResolveParams{
			Windows:  windows,
			Busy:     busy,
			Duration: duration,
			Step:     s.cfg.SlotStep(),
			Now:      s.now(),
			Location: s.loc,
		}
		if !scheduling.SlotAvailable(params, anchor) {
			return appErrors.Clone(appErrors.ErrSlotUnavailable, fmt.Sprintf("anchor %s is not an open slot", anchor.Format(time.RFC3339)))
		}
		if violation := scheduling.ValidateSeriesPlan(plan, windows, busy, s.now(), s.loc); violation != nil {
			return appErrors.Clone(appErrors.ErrSeriesConflict, "series cannot be booked: "+violation.Error())
		}

		sub = &models.Subscription{
			ID:                     uuid.NewString(),
			TutorID:                req.TutorID,
			ParentID:               req.ParentID,
			StudentName:            req.StudentName,
			Frequency:              frequency,
			TotalSessions:          req.TotalSessions,
			DefaultDurationMinutes: req.DurationMinutes,
			Status:                 models.SubscriptionActive,
		}
		if err := s.subscriptions.Insert(ctx, tx, sub); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subscription")
		}

		booked = make([]models.Session, 0, len(plan))
		for _, occ := range plan {
			sess := models.Session{
				ID:              uuid.NewString(),
				TutorID:         req.TutorID,
				ParentID:        req.ParentID,
				StudentName:     req.StudentName,
				ScheduledAt:     occ.Start,
				DurationMinutes: req.DurationMinutes,
				Status:          models.SessionScheduled,
				SubscriptionID:  &sub.ID,
			}
			if err := s.sessions.Insert(ctx, tx, &sess); err != nil {
				return err
			}
			booked = append(booked, sess)
		}
		return nil
	})
	s.recordOutcome("create_subscription", err)
	if err != nil {
		return nil, nil, err
	}

	s.invalidateSlots(ctx, req.TutorID)
	s.recordEvent(actor, models.EventSeriesBooked, models.EntitySubscription, sub.ID, map[string]interface{}{
		"subscription": sub,
		"sessions":     len(booked),
	})
	return sub, booked, nil
}

// RescheduleSeries replans every still-scheduled member of a subscription
// from a new anchor date. Each member keeps its own time-of-day and
// duration; the k-th lands k cadence-steps after the anchor. All-or-nothing:
// one unmovable or conflicting member aborts the whole operation.
func (s *BookingService) RescheduleSeries(ctx context.Context, actor models.JWTClaims, subscriptionID string, req RescheduleSeriesRequest) ([]models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid series reschedule payload")
	}

	current, err := s.loadSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if err := guardianActsFor(actor, current.ParentID); err != nil {
		return nil, err
	}

	anchor := time.UnixMilli(req.Anchor).In(s.loc)

	var members []models.Session
	err = s.withTutorLock(ctx, current.TutorID, func(tx *sqlx.Tx) error {
		sub, err := s.loadSubscriptionForUpdate(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}

		members, err = s.sessions.ListBySubscription(ctx, tx, sub.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load series members")
		}
		now := s.now()
		if blocker := scheduling.FirstUnmodifiable(members, now, s.cfg.MinNotice()); blocker != nil {
			return appErrors.Clone(appErrors.ErrModificationNotAllowed,
				fmt.Sprintf("session %s starts too soon to be moved", blocker.ID))
		}

		plan := scheduling.PlanSeries(members, anchor, sub.Frequency.StepDays(), s.loc)
		if len(plan) == 0 {
			return appErrors.Clone(appErrors.ErrModificationNotAllowed, "subscription has no scheduled sessions left to move")
		}

		windows, err := s.windows.ListByTutor(ctx, tx, sub.TutorID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability windows")
		}
		busy, err := s.sessions.ListBlocking(ctx, tx, repository.BlockingFilter{
			TutorID:               sub.TutorID,
			From:                  &now,
			ExcludeSubscriptionID: sub.ID,
		})
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booked sessions")
		}
		if violation := scheduling.ValidateSeriesPlan(plan, windows, busy, now, s.loc); violation != nil {
			return appErrors.Clone(appErrors.ErrSeriesConflict, "series cannot be rescheduled: "+violation.Error())
		}

		updates := make([]repository.SessionReschedule, 0, len(plan))
		newStarts := make(map[string]time.Time, len(plan))
		for _, occ := range plan {
			updates = append(updates, repository.SessionReschedule{ID: occ.SessionID, ScheduledAt: occ.Start})
			newStarts[occ.SessionID] = occ.Start
		}
		if err := s.sessions.BulkUpdateSchedule(ctx, tx, updates); err != nil {
			return err
		}

		for i := range members {
			if start, ok := newStarts[members[i].ID]; ok {
				members[i].ScheduledAt = start
			}
		}
		sort.Slice(members, func(i, j int) bool {
			return members[i].ScheduledAt.Before(members[j].ScheduledAt)
		})
		return nil
	})
	s.recordOutcome("reschedule_series", err)
	if err != nil {
		return nil, err
	}

	s.invalidateSlots(ctx, current.TutorID)
	s.recordEvent(actor, models.EventSeriesRescheduled, models.EntitySubscription, subscriptionID, map[string]interface{}{
		"anchor":   anchor,
		"sessions": len(members),
	})
	return members, nil
}

// CancelSeries cancels every still-scheduled member of a subscription and
// the subscription itself. Completed and no_show members are untouched.
func (s *BookingService) CancelSeries(ctx context.Context, actor models.JWTClaims, subscriptionID string) (int64, error) {
	current, err := s.loadSubscription(ctx, subscriptionID)
	if err != nil {
		return 0, err
	}
	if err := guardianActsFor(actor, current.ParentID); err != nil {
		return 0, err
	}

	var affected int64
	err = s.withTutorLock(ctx, current.TutorID, func(tx *sqlx.Tx) error {
		sub, err := s.loadSubscriptionForUpdate(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}

		members, err := s.sessions.ListBySubscription(ctx, tx, sub.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load series members")
		}
		if blocker := scheduling.FirstUnmodifiable(members, s.now(), s.cfg.MinNotice()); blocker != nil {
			return appErrors.Clone(appErrors.ErrModificationNotAllowed,
				fmt.Sprintf("session %s starts too soon to be cancelled", blocker.ID))
		}

		affected, err = s.sessions.CancelBySubscription(ctx, tx, sub.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel series sessions")
		}
		if err := s.subscriptions.UpdateStatus(ctx, tx, sub.ID, models.SubscriptionCancelled); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel subscription")
		}
		return nil
	})
	s.recordOutcome("cancel_series", err)
	if err != nil {
		return 0, err
	}

	s.invalidateSlots(ctx, current.TutorID)
	s.recordEvent(actor, models.EventSeriesCancelled, models.EntitySubscription, subscriptionID, map[string]interface{}{
		"cancelled_sessions": affected,
	})
	return affected, nil
}

// GetSession returns one session by id.
func (s *BookingService) GetSession(ctx context.Context, id string) (*models.Session, error) {
	return s.loadSession(ctx, id)
}

// ListSessions pages through sessions matching the filter.
func (s *BookingService) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error) {
	sessions, pagination, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, pagination, nil
}

// ListSubscriptionSessions returns a subscription's members in schedule
// order, gated to its guardian, its tutor, or an admin.
func (s *BookingService) ListSubscriptionSessions(ctx context.Context, actor models.JWTClaims, subscriptionID string) (*models.Subscription, []models.Session, error) {
	sub, err := s.loadSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, nil, err
	}
	allowed := actor.Role == models.RoleAdmin ||
		(actor.Role == models.RoleGuardian && actor.UserID == sub.ParentID) ||
		(actor.Role == models.RoleTutor && actor.UserID == sub.TutorID)
	if !allowed {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "not a party to this subscription")
	}

	members, err := s.sessions.ListBySubscription(ctx, nil, sub.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load series members")
	}
	return sub, members, nil
}

func (s *BookingService) withTutorLock(ctx context.Context, tutorID string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.sessions.LockTutor(ctx, tx, tutorID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire tutor booking lock")
		return err
	}
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit booking transaction")
		return err
	}
	return nil
}

// ensureSlotOpen re-validates the requested interval against the live
// booked set. Callers must hold the tutor lock.
func (s *BookingService) ensureSlotOpen(ctx context.Context, tx *sqlx.Tx, tutorID string, start time.Time, duration time.Duration, excludeSessionID string) error {
	end := start.Add(duration)

	windows, err := s.windows.ListByTutor(ctx, tx, tutorID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability windows")
	}
	busy, err := s.sessions.ListBlocking(ctx, tx, repository.BlockingFilter{
		TutorID:          tutorID,
		From:             &start,
		To:               &end,
		ExcludeSessionID: excludeSessionID,
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booked sessions")
	}

	params := scheduling.ResolveParams{
		Windows:  windows,
		Busy:     busy,
		Duration: duration,
		Step:     s.cfg.SlotStep(),
		Now:      s.now(),
		Location: s.loc,
	}
	if !scheduling.SlotAvailable(params, start) {
		return appErrors.Clone(appErrors.ErrSlotUnavailable,
			fmt.Sprintf("%s is not an open slot for this tutor", start.Format(time.RFC3339)))
	}
	return nil
}

func (s *BookingService) ensureTrialEligible(ctx context.Context, tx *sqlx.Tx, parentID string) error {
	usage, err := s.trials.GetUsage(ctx, tx, parentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trial usage")
	}
	used := 0
	if usage != nil {
		used = usage.TrialsUsed
	}
	if used >= s.cfg.TrialCap {
		return appErrors.Clone(appErrors.ErrTrialLimitReached,
			fmt.Sprintf("guardian has used %d of %d trial sessions", used, s.cfg.TrialCap))
	}
	return nil
}

func (s *BookingService) ensureSubscriptionBookable(ctx context.Context, tx *sqlx.Tx, subscriptionID, tutorID, parentID string) error {
	sub, err := s.subscriptions.GetByID(ctx, tx, subscriptionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subscription not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}
	if sub.TutorID != tutorID || sub.ParentID != parentID {
		return appErrors.Clone(appErrors.ErrValidation, "subscription does not belong to this tutor and guardian")
	}
	if sub.Status != models.SubscriptionActive {
		return appErrors.Clone(appErrors.ErrModificationNotAllowed, "subscription is not active")
	}

	active, err := s.sessions.CountActiveBySubscription(ctx, tx, sub.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count subscription sessions")
	}
	if active >= sub.TotalSessions {
		return appErrors.Clone(appErrors.ErrConflict, "subscription has no remaining sessions")
	}
	return nil
}

// maybeCompleteSubscription closes a subscription once its whole allotment
// has been held. Cancelled members leave capacity open for a replacement
// booking, so they keep the subscription active.
func (s *BookingService) maybeCompleteSubscription(ctx context.Context, tx *sqlx.Tx, subscriptionID string) error {
	sub, err := s.subscriptions.GetByID(ctx, tx, subscriptionID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}
	if sub.Status != models.SubscriptionActive {
		return nil
	}

	members, err := s.sessions.ListBySubscription(ctx, tx, sub.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load series members")
	}
	held := 0
	for _, m := range members {
		switch m.Status {
		case models.SessionScheduled:
			return nil
		case models.SessionCompleted, models.SessionNoShow:
			held++
		}
	}
	if held < sub.TotalSessions {
		return nil
	}

	if err := s.subscriptions.UpdateStatus(ctx, tx, sub.ID, models.SubscriptionCompleted); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete subscription")
	}
	return nil
}

// ensureModifiable applies the notice policy to a single session. The verb
// only flavours the error message.
func (s *BookingService) ensureModifiable(sess *models.Session, verb string) error {
	if sess.Status.Terminal() {
		return appErrors.Clone(appErrors.ErrModificationNotAllowed,
			fmt.Sprintf("only scheduled sessions can be %s", verb))
	}
	if !scheduling.ModifiableAt(sess.ScheduledAt, s.now(), s.cfg.MinNotice()) {
		return appErrors.Clone(appErrors.ErrModificationNotAllowed,
			fmt.Sprintf("sessions cannot be %s within %s of their start", verb, s.cfg.MinNotice()))
	}
	return nil
}

func (s *BookingService) loadSession(ctx context.Context, id string) (*models.Session, error) {
	sess, err := s.sessions.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return sess, nil
}

// loadSessionForUpdate re-reads a session inside the tutor lock; state seen
// before the lock may be stale.
func (s *BookingService) loadSessionForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Session, error) {
	sess, err := s.sessions.GetByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return sess, nil
}

func (s *BookingService) loadSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	sub, err := s.subscriptions.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subscription not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}
	return sub, nil
}

func (s *BookingService) loadSubscriptionForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Subscription, error) {
	sub, err := s.subscriptions.GetByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subscription not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}
	if sub.Status != models.SubscriptionActive {
		return nil, appErrors.Clone(appErrors.ErrModificationNotAllowed, "subscription is not active")
	}
	return sub, nil
}

func (s *BookingService) invalidateSlots(ctx context.Context, tutorID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, slotsCachePattern(tutorID)); err != nil {
		s.logger.Warn("slot cache invalidation failed", zap.String("tutor_id", tutorID), zap.Error(err))
	}
}

func (s *BookingService) recordEvent(actor models.JWTClaims, operation, entityType, entityID string, payload interface{}) {
	if s.events == nil {
		return
	}
	s.events.Record(actor, operation, entityType, entityID, payload)
}

func (s *BookingService) recordOutcome(operation string, err error) {
	outcome := OutcomeAccepted
	if err != nil {
		outcome = OutcomeRejected
		if appErrors.FromError(err).Status >= http.StatusInternalServerError {
			outcome = OutcomeFailed
		}
	}
	s.metrics.RecordBookingOperation(operation, outcome)
}

// guardianActsFor rejects guardians touching someone else's bookings.
// Tutors never initiate bookings; admins pass.
func guardianActsFor(actor models.JWTClaims, parentID string) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleGuardian:
		if actor.UserID == parentID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "guardians may only manage their own bookings")
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "role may not manage bookings")
	}
}

func tutorActsOn(actor models.JWTClaims, tutorID string) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleTutor:
		if actor.UserID == tutorID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "tutors may only finalise their own sessions")
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "role may not finalise sessions")
	}
}

func slotsCacheKey(tutorID string, from, to time.Time, durationMinutes int) string {
	return fmt.Sprintf("slots:%s:%d:%d:%d", tutorID, from.UnixMilli(), to.UnixMilli(), durationMinutes)
}

func slotsCachePattern(tutorID string) string {
	return fmt.Sprintf("slots:%s:*", tutorID)
}
