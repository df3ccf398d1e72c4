package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/tutorbase/booking-api/internal/models"
	"github.com/tutorbase/booking-api/internal/repository"
	"github.com/tutorbase/booking-api/internal/scheduling"
	"github.com/tutorbase/booking-api/pkg/config"
	appErrors "github.com/tutorbase/booking-api/pkg/errors"
)

type availabilityWindowRepository interface {
	ListByTutor(ctx context.Context, exec sqlx.ExtContext, tutorID string) ([]models.AvailabilityWindow, error)
	ReplaceForTutor(ctx context.Context, tutorID string, windows []models.AvailabilityWindow) error
}

type availabilitySessionReader interface {
	ListBlocking(ctx context.Context, exec sqlx.ExtContext, filter repository.BlockingFilter) ([]models.Session, error)
}

// AvailabilityService manages tutor weekly windows and resolves them into
// bookable slot previews. Previews are cached per (tutor, range, duration)
// and invalidated by every booking mutation.
type AvailabilityService struct {
	windows  availabilityWindowRepository
	sessions availabilitySessionReader
	events   bookingEventRecorder
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      config.BookingConfig
	loc      *time.Location
	now      func() time.Time
}

// AvailabilityServiceParams groups constructor dependencies.
type AvailabilityServiceParams struct {
	Windows  availabilityWindowRepository
	Sessions availabilitySessionReader
	Events   bookingEventRecorder
	Cache    *CacheService
	Metrics  *MetricsService
	Logger   *zap.Logger
	Config   config.BookingConfig
	Location *time.Location
}

// NewAvailabilityService wires the availability workflows.
func NewAvailabilityService(params AvailabilityServiceParams) *AvailabilityService {
	cfg := params.Config
	if cfg.SlotStepMinutes <= 0 {
		cfg.SlotStepMinutes = 30
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 28
	}
	if cfg.SlotsCacheTTL <= 0 {
		cfg.SlotsCacheTTL = 2 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityService{
		windows:  params.Windows,
		sessions: params.Sessions,
		events:   params.Events,
		cache:    params.Cache,
		metrics:  params.Metrics,
		logger:   logger,
		cfg:      cfg,
		loc:      loc,
		now:      time.Now,
	}
}

// WindowInput is one weekly window in a replace payload.
type WindowInput struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Active    *bool  `json:"active"`
}

// SlotQuery bounds a slot preview. From and To are instants; zero values
// fall back to now and now+horizon.
type SlotQuery struct {
	From            time.Time
	To              time.Time
	DurationMinutes int
}

// ListWindows returns the tutor's full weekly window set.
func (s *AvailabilityService) ListWindows(ctx context.Context, tutorID string) ([]models.AvailabilityWindow, error) {
	windows, err := s.windows.ListByTutor(ctx, nil, tutorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability windows")
	}
	return windows, nil
}

// ReplaceWindows swaps the tutor's weekly window set atomically. Every
// window must be well-formed; overlapping windows are legal and the
// resolver de-duplicates the slots they both propose.
func (s *AvailabilityService) ReplaceWindows(ctx context.Context, actor models.JWTClaims, tutorID string, inputs []WindowInput) ([]models.AvailabilityWindow, error) {
	windows := make([]models.AvailabilityWindow, 0, len(inputs))
	for i, in := range inputs {
		active := true
		if in.Active != nil {
			active = *in.Active
		}
		w := models.AvailabilityWindow{
			TutorID:   tutorID,
			DayOfWeek: in.DayOfWeek,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
			Active:    active,
		}
		if err := scheduling.ValidateWindow(w); err != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidWindow, fmt.Sprintf("window %d: %v", i, err))
		}
		windows = append(windows, w)
	}

	if err := s.windows.ReplaceForTutor(ctx, tutorID, windows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace availability windows")
	}

	s.invalidate(ctx, tutorID)
	if s.events != nil {
		s.events.Record(actor, models.EventWindowsReplaced, models.EntityTutor, tutorID, map[string]interface{}{
			"windows": len(windows),
		})
	}

	return s.ListWindows(ctx, tutorID)
}

// PreviewSlots resolves the tutor's bookable slot starts for the query
// range. The boolean reports whether the answer came from cache.
func (s *AvailabilityService) PreviewSlots(ctx context.Context, tutorID string, q SlotQuery) ([]time.Time, bool, error) {
	if q.DurationMinutes <= 0 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "duration must be positive")
	}

	now := s.now()
	from := q.From
	if from.IsZero() {
		from = now
	}
	to := q.To
	if to.IsZero() {
		to = from.AddDate(0, 0, s.cfg.HorizonDays)
	}
	duration := time.Duration(q.DurationMinutes) * time.Minute

	cacheKey := slotsCacheKey(tutorID, from, to, q.DurationMinutes)
	if s.cache != nil && s.cache.Enabled() {
		var cached []int64
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			s.logger.Warn("slot cache read failed", zap.String("key", cacheKey), zap.Error(err))
		} else if hit {
			return epochsToTimes(cached, s.loc), true, nil
		}
	}

	queryStart := time.Now()
	windows, err := s.windows.ListByTutor(ctx, nil, tutorID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability windows")
	}
	s.metrics.ObserveDBQuery("windows_by_tutor", time.Since(queryStart))

	// Sessions starting after To can still collide with a slot that starts
	// just inside it, so the busy horizon extends by one duration.
	busyTo := to.Add(duration)
	queryStart = time.Now()
	busy, err := s.sessions.ListBlocking(ctx, nil, repository.BlockingFilter{TutorID: tutorID, From: &from, To: &busyTo})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booked sessions")
	}
	s.metrics.ObserveDBQuery("blocking_sessions", time.Since(queryStart))

	started := time.Now()
	slots := scheduling.ResolveSlots(scheduling.ResolveParams{
		Windows:  windows,
		Busy:     busy,
		From:     from,
		To:       to,
		Duration: duration,
		Step:     s.cfg.SlotStep(),
		Now:      now,
		Location: s.loc,
	})
	s.metrics.ObserveSlotResolution(time.Since(started), len(slots))

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, timesToEpochs(slots), s.cfg.SlotsCacheTTL); err != nil {
			s.logger.Warn("slot cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	return slots, false, nil
}

func (s *AvailabilityService) invalidate(ctx context.Context, tutorID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, slotsCachePattern(tutorID)); err != nil {
		s.logger.Warn("slot cache invalidation failed", zap.String("tutor_id", tutorID), zap.Error(err))
	}
}

func timesToEpochs(ts []time.Time) []int64 {
	out := make([]int64, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.UnixMilli())
	}
	return out
}

func epochsToTimes(ms []int64, loc *time.Location) []time.Time {
	out := make([]time.Time, 0, len(ms))
	for _, m := range ms {
		out = append(out, time.UnixMilli(m).In(loc))
	}
	return out
}
