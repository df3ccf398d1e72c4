package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorbase/booking-api/internal/models"
	"github.com/tutorbase/booking-api/pkg/response"
)

type trialService interface {
	Eligibility(ctx context.Context, parentID string) (*models.TrialEligibility, error)
}

// TrialHandler answers guardian trial-eligibility lookups.
type TrialHandler struct {
	service trialService
}

// NewTrialHandler constructs the handler.
func NewTrialHandler(service trialService) *TrialHandler {
	return &TrialHandler{service: service}
}

// Eligibility godoc
// @Summary Check how many trial sessions a guardian has left
// @Tags Parents
// @Produce json
// @Param id path string true "Parent ID"
// @Success 200 {object} response.Envelope
// @Router /parents/{id}/trial-eligibility [get]
func (h *TrialHandler) Eligibility(c *gin.Context) {
	eligibility, err := h.service.Eligibility(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, eligibility, nil)
}
