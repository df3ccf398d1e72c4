package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tutorbase/booking-api/internal/dto"
	"github.com/tutorbase/booking-api/internal/middleware"
	"github.com/tutorbase/booking-api/internal/models"
	"github.com/tutorbase/booking-api/internal/service"
	appErrors "github.com/tutorbase/booking-api/pkg/errors"
	"github.com/tutorbase/booking-api/pkg/response"
)

type availabilityService interface {
	ListWindows(ctx context.Context, tutorID string) ([]models.AvailabilityWindow, error)
	ReplaceWindows(ctx context.Context, actor models.JWTClaims, tutorID string, inputs []service.WindowInput) ([]models.AvailabilityWindow, error)
	PreviewSlots(ctx context.Context, tutorID string, q service.SlotQuery) ([]time.Time, bool, error)
}

// AvailabilityHandler exposes tutor window management and slot previews.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(service availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// ListWindows godoc
// @Summary List a tutor's weekly availability windows
// @Tags Availability
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/windows [get]
func (h *AvailabilityHandler) ListWindows(c *gin.Context) {
	windows, err := h.service.ListWindows(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewWindowResponses(windows), nil)
}

// ReplaceWindows godoc
// @Summary Replace a tutor's weekly availability windows
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Tutor ID"
// @Param payload body []service.WindowInput true "Full weekly window set"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/windows [put]
func (h *AvailabilityHandler) ReplaceWindows(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var inputs []service.WindowInput
	if err := c.ShouldBindJSON(&inputs); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid windows payload"))
		return
	}

	windows, err := h.service.ReplaceWindows(c.Request.Context(), *claims, c.Param("id"), inputs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewWindowResponses(windows), nil)
}

// PreviewSlots godoc
// @Summary Preview a tutor's bookable slots
// @Tags Availability
// @Produce json
// @Param id path string true "Tutor ID"
// @Param from query int false "Range start (epoch ms, defaults to now)"
// @Param to query int false "Range end (epoch ms, defaults to from+horizon)"
// @Param duration query int true "Session duration in minutes"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/slots [get]
func (h *AvailabilityHandler) PreviewSlots(c *gin.Context) {
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

	q := service.SlotQuery{DurationMinutes: parseQueryInt(c, "duration", 0)}
	if from != nil {
		q.From = *from
	}
	if to != nil {
		q.To = *to
	}

	tutorID := c.Param("id")
	start := time.Now()
	slots, cacheHit, err := h.service.PreviewSlots(c.Request.Context(), tutorID, q)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()

	payload := dto.NewSlotsResponse(tutorID, from, to, q.DurationMinutes, slots)
	response.JSON(c, http.StatusOK, payload, nil, meta)
}
