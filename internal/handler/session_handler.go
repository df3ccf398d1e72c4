package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorbase/booking-api/internal/dto"
	"github.com/tutorbase/booking-api/internal/models"
	"github.com/tutorbase/booking-api/internal/service"
	appErrors "github.com/tutorbase/booking-api/pkg/errors"
	"github.com/tutorbase/booking-api/pkg/response"
)

type bookingService interface {
	BookSession(ctx context.Context, actor models.JWTClaims, req service.BookSessionRequest) (*models.Session, error)
	RescheduleSession(ctx context.Context, actor models.JWTClaims, sessionID string, req service.RescheduleSessionRequest) (*models.Session, error)
	CancelSession(ctx context.Context, actor models.JWTClaims, sessionID string) (*models.Session, error)
	SetSessionStatus(ctx context.Context, actor models.JWTClaims, sessionID string, req service.SetSessionStatusRequest) (*models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error)
}

type bookingEventLister interface {
	ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]models.BookingEvent, error)
}

// SessionHandler exposes single-session booking operations.
type SessionHandler struct {
	service bookingService
	events  bookingEventLister
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(service bookingService, events bookingEventLister) *SessionHandler {
	return &SessionHandler{service: service, events: events}
}

// Book godoc
// @Summary Book a single or trial session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.BookSessionRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Book(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.BookSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}

	session, err := h.service.BookSession(c.Request.Context(), *claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewSessionResponse(*session))
}

// Get godoc
// @Summary Fetch one session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	session, err := h.service.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims.Role != models.RoleAdmin && claims.UserID != session.ParentID && claims.UserID != session.TutorID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSessionResponse(*session), nil)
}

// Reschedule godoc
// @Summary Move one session to a new slot
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.RescheduleSessionRequest true "New start instant"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/schedule [patch]
func (h *SessionHandler) Reschedule(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RescheduleSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reschedule payload"))
		return
	}

	session, err := h.service.RescheduleSession(c.Request.Context(), *claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSessionResponse(*session), nil)
}

// Cancel godoc
// @Summary Cancel one session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	session, err := h.service.CancelSession(c.Request.Context(), *claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSessionResponse(*session), nil)
}

// SetStatus godoc
// @Summary Mark a finished session completed or no-show
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.SetSessionStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/status [patch]
func (h *SessionHandler) SetStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SetSessionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	session, err := h.service.SetSessionStatus(c.Request.Context(), *claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSessionResponse(*session), nil)
}

// Events godoc
// @Summary Audit trail for one session, newest first
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param limit query int false "Maximum events returned"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/events [get]
func (h *SessionHandler) Events(c *gin.Context) {
	events, err := h.events.ListByEntity(c.Request.Context(), models.EntitySession, c.Param("id"), parseQueryInt(c, "limit", 50))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewBookingEventResponses(events), nil)
}

// ListByTutor godoc
// @Summary List a tutor's booked sessions
// @Tags Sessions
// @Produce json
// @Param id path string true "Tutor ID"
// @Param from query int false "Range start (epoch ms)"
// @Param to query int false "Range end (epoch ms)"
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/sessions [get]
func (h *SessionHandler) ListByTutor(c *gin.Context) {
	h.list(c, models.SessionFilter{TutorID: c.Param("id")})
}

// ListByParent godoc
// @Summary List a guardian's booked sessions
// @Tags Parents
// @Produce json
// @Param id path string true "Parent ID"
// @Param from query int false "Range start (epoch ms)"
// @Param to query int false "Range end (epoch ms)"
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /parents/{id}/sessions [get]
func (h *SessionHandler) ListByParent(c *gin.Context) {
	h.list(c, models.SessionFilter{ParentID: c.Param("id")})
}

func (h *SessionHandler) list(c *gin.Context, filter models.SessionFilter) {
	from, err := parseEpochQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseEpochQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.From = from
	filter.To = to
	filter.Page = parseQueryInt(c, "page", 1)
	filter.PageSize = parseQueryInt(c, "pageSize", 50)

	if raw := c.Query("status"); raw != "" {
		status := models.SessionStatus(raw)
		switch status {
		case models.SessionScheduled, models.SessionCompleted, models.SessionNoShow, models.SessionCancelled:
			filter.Status = &status
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown session status"))
			return
		}
	}

	sessions, pagination, err := h.service.ListSessions(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSessionResponses(sessions), pagination)
}
