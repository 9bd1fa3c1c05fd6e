package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencursus/cursus-api/internal/models"
	"github.com/opencursus/cursus-api/internal/service"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
	"github.com/opencursus/cursus-api/pkg/export"
	"github.com/opencursus/cursus-api/pkg/response"
)

// HonorRollHandler exposes the leaderboard, hall of fame and monthly MVP views.
type HonorRollHandler struct {
	service *service.HonorRollService
	csv     *export.CSVExporter
}

// NewHonorRollHandler creates a new handler.
func NewHonorRollHandler(svc *service.HonorRollService) *HonorRollHandler {
	return &HonorRollHandler{service: svc, csv: export.NewCSVExporter()}
}

// Leaderboard returns the streak leaderboard for an audience. The staff board
// is restricted to callers allowed to view it.
func (h *HonorRollHandler) Leaderboard(c *gin.Context) {
	audience, err := h.audience(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	entries, err := h.service.Leaderboard(c.Request.Context(), audience)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// HallOfFame returns students who completed every published course, per
// category.
func (h *HonorRollHandler) HallOfFame(c *gin.Context) {
	fame, err := h.service.HallOfFame(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fame, nil)
}

// MVP returns the busiest student and staff member for a month. Defaults to
// the current month when the query parameter is absent.
func (h *HonorRollHandler) MVP(c *gin.Context) {
	result, err := h.service.MVP(c.Request.Context(), c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export downloads the leaderboard as CSV.
func (h *HonorRollHandler) Export(c *gin.Context) {
	audience, err := h.audience(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	dataset, err := h.service.LeaderboardDataset(c.Request.Context(), audience)
	if err != nil {
		response.Error(c, err)
		return
	}

	data, err := h.csv.Render(*dataset)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dataset.Name+".csv"))
	c.Data(http.StatusOK, "text/csv", data)
}

func (h *HonorRollHandler) audience(c *gin.Context) (models.Audience, error) {
	audience := models.Audience(c.DefaultQuery("audience", string(models.AudiencePublic)))
	switch audience {
	case models.AudiencePublic:
		return audience, nil
	case models.AudienceStaff:
		claims := claimsFromContext(c)
		if claims == nil || !claims.Capabilities().CanViewStaffBoard {
			return "", appErrors.Clone(appErrors.ErrForbidden, "staff board requires staff access")
		}
		return audience, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "unknown audience")
}
