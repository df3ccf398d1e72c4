package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tutorbase/booking-api/internal/service"
	appErrors "github.com/tutorbase/booking-api/pkg/errors"
	"github.com/tutorbase/booking-api/pkg/response"
)

type exportService interface {
	TutorSchedule(ctx context.Context, tutorID string, from, to time.Time, format string) (*service.ScheduleExport, error)
}

// ExportHandler streams tutor schedule exports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// TutorSchedule godoc
// @Summary Export a tutor's schedule as CSV or PDF
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Tutor ID"
// @Param format query string true "csv or pdf"
// @Param from query int true "Range start (epoch ms)"
// @Param to query int true "Range end (epoch ms)"
// @Success 200 {file} binary
// @Router /tutors/{id}/sessions/export [get]
func (h *ExportHandler) TutorSchedule(c *gin.Context) {
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
	if from == nil || to == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to are required"))
		return
	}

	result, err := h.service.TutorSchedule(c.Request.Context(), c.Param("id"), *from, *to, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
