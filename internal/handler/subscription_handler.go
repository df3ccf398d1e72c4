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

type subscriptionService interface {
	CreateSubscription(ctx context.Context, actor models.JWTClaims, req service.CreateSubscriptionRequest) (*models.Subscription, []models.Session, error)
	ListSubscriptionSessions(ctx context.Context, actor models.JWTClaims, subscriptionID string) (*models.Subscription, []models.Session, error)
	RescheduleSeries(ctx context.Context, actor models.JWTClaims, subscriptionID string, req service.RescheduleSeriesRequest) ([]models.Session, error)
	CancelSeries(ctx context.Context, actor models.JWTClaims, subscriptionID string) (int64, error)
}

// SubscriptionHandler exposes recurring-series operations.
type SubscriptionHandler struct {
	service subscriptionService
}

// NewSubscriptionHandler constructs the handler.
func NewSubscriptionHandler(service subscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// Create godoc
// @Summary Create a subscription and book its initial series
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param payload body service.CreateSubscriptionRequest true "Subscription payload"
// @Success 201 {object} response.Envelope
// @Router /subscriptions [post]
func (h *SubscriptionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subscription payload"))
		return
	}

	sub, sessions, err := h.service.CreateSubscription(c.Request.Context(), *claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewSubscriptionResponse(*sub, sessions))
}

// Sessions godoc
// @Summary List a subscription's series members
// @Tags Subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} response.Envelope
// @Router /subscriptions/{id}/sessions [get]
func (h *SubscriptionHandler) Sessions(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	sub, sessions, err := h.service.ListSubscriptionSessions(c.Request.Context(), *claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSubscriptionResponse(*sub, sessions), nil)
}

// Reschedule godoc
// @Summary Move every scheduled series member to a new anchor
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Subscription ID"
// @Param payload body service.RescheduleSeriesRequest true "New anchor instant"
// @Success 200 {object} response.Envelope
// @Router /subscriptions/{id}/schedule [patch]
func (h *SubscriptionHandler) Reschedule(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RescheduleSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid series reschedule payload"))
		return
	}

	sessions, err := h.service.RescheduleSeries(c.Request.Context(), *claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSessionResponses(sessions), nil)
}

// Cancel godoc
// @Summary Cancel every remaining scheduled session in a series
// @Tags Subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} response.Envelope
// @Router /subscriptions/{id} [delete]
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	subscriptionID := c.Param("id")
	affected, err := h.service.CancelSeries(c.Request.Context(), *claims, subscriptionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SeriesCancelResponse{
		SubscriptionID:    subscriptionID,
		CancelledSessions: int(affected),
	}, nil)
}
