package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencursus/cursus-api/internal/models"
	"github.com/opencursus/cursus-api/internal/service"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
	"github.com/opencursus/cursus-api/pkg/response"
)

// EnrollmentHandler exposes enrollment flows: free courses, invoice requests
// and the paid-order webhook.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler creates a new handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// Enroll opens an enrollment for the caller. Free courses activate
// immediately; with "invoice" payment the enrollment waits for manual
// verification.
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		CourseID string `json:"course_id" binding:"required"`
		Payment  string `json:"payment"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "course id required"))
		return
	}

	var (
		enrollment *models.Enrollment
		err        error
	)
	if payload.Payment == "invoice" {
		enrollment, err = h.service.EnrollWithInvoice(c.Request.Context(), claims.UserID, payload.CourseID)
	} else {
		enrollment, err = h.service.Enroll(c.Request.Context(), claims.UserID, payload.CourseID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// PaidOrder is the payment provider webhook. It is idempotent: replays of a
// confirmed order return the existing enrollment.
func (h *EnrollmentHandler) PaidOrder(c *gin.Context) {
	var order models.PaidOrder
	if err := c.ShouldBindJSON(&order); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid order payload"))
		return
	}

	enrollment, err := h.service.ConfirmPaidOrder(c.Request.Context(), order)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// VerifyInvoice activates a pending invoice enrollment.
func (h *EnrollmentHandler) VerifyInvoice(c *gin.Context) {
	enrollment, err := h.service.VerifyInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// RejectInvoice removes a pending invoice enrollment.
func (h *EnrollmentHandler) RejectInvoice(c *gin.Context) {
	if err := h.service.RejectInvoice(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Mine lists the caller's enrollments.
func (h *EnrollmentHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	enrollments, err := h.service.ListByStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}
