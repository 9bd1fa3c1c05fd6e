package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencursus/cursus-api/internal/models"
	"github.com/opencursus/cursus-api/internal/service"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
	"github.com/opencursus/cursus-api/pkg/response"
)

// ProfileHandler exposes admin mutations on accounts.
type ProfileHandler struct {
	service *service.ProfileService
}

// NewProfileHandler creates a new handler.
func NewProfileHandler(svc *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// Get returns one profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// UpdateRole changes an account's role. Granting admin-level roles requires a
// super admin caller.
func (h *ProfileHandler) UpdateRole(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Role models.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "role required"))
		return
	}

	if err := h.service.UpdateRole(c.Request.Context(), claims, c.Param("id"), payload.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetStaff flips the staff flag on an account.
func (h *ProfileHandler) SetStaff(c *gin.Context) {
	var payload struct {
		IsStaff bool `json:"is_staff"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.SetStaff(c.Request.Context(), c.Param("id"), payload.IsStaff); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetDeadfiled archives or restores an account. Deadfiling zeroes the
// account's current streak.
func (h *ProfileHandler) SetDeadfiled(c *gin.Context) {
	var payload struct {
		Deadfiled bool `json:"deadfiled"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.SetDeadfiled(c.Request.Context(), c.Param("id"), payload.Deadfiled); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetCertificatePermissions grants or revokes attestation and seal rights.
func (h *ProfileHandler) SetCertificatePermissions(c *gin.Context) {
	var payload struct {
		CanAttest bool `json:"can_attest"`
		CanSign   bool `json:"can_sign"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.SetCertificatePermissions(c.Request.Context(), c.Param("id"), payload.CanAttest, payload.CanSign); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignSupervisor links a student to a supervisor, or clears the link.
func (h *ProfileHandler) AssignSupervisor(c *gin.Context) {
	var payload struct {
		SupervisorID *string `json:"supervisor_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.AssignSupervisor(c.Request.Context(), c.Param("id"), payload.SupervisorID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignStudyRoute puts a student on a study route, or clears it.
func (h *ProfileHandler) AssignStudyRoute(c *gin.Context) {
	var payload struct {
		StudyRouteID *string `json:"study_route_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.AssignStudyRoute(c.Request.Context(), c.Param("id"), payload.StudyRouteID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
