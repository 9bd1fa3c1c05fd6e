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

// CertificateHandler exposes the certificate issuance workflow.
type CertificateHandler struct {
	service *service.CertificateService
	pdf     *export.CertificatePDFExporter
	boards  *service.HonorRollService
	metrics *service.MetricsService
}

// NewCertificateHandler creates a new handler.
func NewCertificateHandler(svc *service.CertificateService, boards *service.HonorRollService, metrics *service.MetricsService) *CertificateHandler {
	return &CertificateHandler{
		service: svc,
		pdf:     export.NewCertificatePDFExporter(),
		boards:  boards,
		metrics: metrics,
	}
}

// Mine lists the caller's certificates.
func (h *CertificateHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	certificates, err := h.service.ListByStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, certificates, nil)
}

// Queue lists certificates waiting in a workflow state, oldest first.
func (h *CertificateHandler) Queue(c *gin.Context) {
	status := models.CertificateStatus(c.DefaultQuery("status", string(models.CertificatePendingAttestation)))
	certificates, err := h.service.ListQueue(c.Request.Context(), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, certificates, nil)
}

// Get returns one certificate.
func (h *CertificateHandler) Get(c *gin.Context) {
	certificate, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, certificate, nil)
}

// Attest assigns a certificate number and moves the certificate to the seal
// queue.
func (h *CertificateHandler) Attest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Number string `json:"certificate_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "certificate number required"))
		return
	}

	certificate, err := h.service.Attest(c.Request.Context(), claims.Capabilities(), claims.UserID, c.Param("id"), payload.Number)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.CountCertificateTransition(string(models.CertificatePendingSeal))
	response.JSON(c, http.StatusOK, certificate, nil)
}

// Seal issues an attested certificate. The response carries the issued
// certificate and, when one exists, the recommended next course.
func (h *CertificateHandler) Seal(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.service.Seal(c.Request.Context(), claims.Capabilities(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.CountCertificateTransition(string(models.CertificateIssued))
	if result.NextCourse != nil {
		h.metrics.CountRecommendation()
	}
	if h.boards != nil {
		h.boards.Invalidate(c.Request.Context())
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// BackEnter records an already-issued certificate directly, bypassing the
// attestation and seal steps.
func (h *CertificateHandler) BackEnter(c *gin.Context) {
	var req service.BackEnterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid certificate payload"))
		return
	}

	certificate, err := h.service.BackEnter(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, certificate)
}

// SetMailStatus updates the physical mailing state of an issued certificate.
func (h *CertificateHandler) SetMailStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		MailStatus models.MailStatus `json:"mail_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "mail status required"))
		return
	}

	if err := h.service.SetMailStatus(c.Request.Context(), claims.Capabilities(), c.Param("id"), payload.MailStatus); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download renders the issued certificate as a PDF.
func (h *CertificateHandler) Download(c *gin.Context) {
	doc, err := h.service.Document(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	data, err := h.pdf.Render(*doc)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate"))
		return
	}

	filename := fmt.Sprintf("certificate-%s.pdf", doc.Number)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}
