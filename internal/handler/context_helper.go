package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tutorbase/booking-api/internal/middleware"
	"github.com/tutorbase/booking-api/internal/models"
	appErrors "github.com/tutorbase/booking-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func parseQueryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

// parseEpochQuery reads an epoch-millisecond query parameter. Absent
// parameters return nil rather than an error.
func parseEpochQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be epoch milliseconds")
	}
	parsed := time.UnixMilli(ms).UTC()
	return &parsed, nil
}
