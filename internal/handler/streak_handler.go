package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opencursus/cursus-api/internal/service"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
	"github.com/opencursus/cursus-api/pkg/response"
)

// StreakHandler exposes streak lookups and the maintenance sweep.
type StreakHandler struct {
	service *service.StreakService
	metrics *service.MetricsService
}

// NewStreakHandler creates a new handler.
func NewStreakHandler(svc *service.StreakService, metrics *service.MetricsService) *StreakHandler {
	return &StreakHandler{service: svc, metrics: metrics}
}

// Mine returns the caller's streak record.
func (h *StreakHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	streak, err := h.service.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, streak, nil)
}

// Get returns one student's streak record.
func (h *StreakHandler) Get(c *gin.Context) {
	streak, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, streak, nil)
}

// Sweep zeroes streaks whose last submission week is out of tolerance. Guarded
// by the shared-secret middleware, called by the scheduler.
func (h *StreakHandler) Sweep(c *gin.Context) {
	start := time.Now()
	reset, err := h.service.Sweep(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveSweep(reset, time.Since(start))
	response.JSON(c, http.StatusOK, gin.H{"reset_count": reset}, nil)
}
