package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencursus/cursus-api/internal/models"
	"github.com/opencursus/cursus-api/internal/service"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
	"github.com/opencursus/cursus-api/pkg/response"
	"github.com/opencursus/cursus-api/pkg/storage"
)

// SubmissionHandler exposes the lesson submission lifecycle.
type SubmissionHandler struct {
	service *service.SubmissionService
	assets  *storage.Resolver
	boards  *service.HonorRollService
	metrics *service.MetricsService
}

// NewSubmissionHandler creates a new handler.
func NewSubmissionHandler(svc *service.SubmissionService, assets *storage.Resolver, boards *service.HonorRollService, metrics *service.MetricsService) *SubmissionHandler {
	return &SubmissionHandler{service: svc, assets: assets, boards: boards, metrics: metrics}
}

// resolveImages attaches signed URLs for answers that carry an image path.
// Resolution failures leave the URL empty, the path is still returned.
func (h *SubmissionHandler) resolveImages(answers []models.Answer) {
	if h.assets == nil {
		return
	}
	for i := range answers {
		if answers[i].ImagePath == nil {
			continue
		}
		if url, err := h.assets.PublicURL(storage.AssetAnswerImage, *answers[i].ImagePath); err == nil {
			answers[i].ImageURL = url
		}
	}
}

// StartDraft opens or returns the caller's draft for a lesson.
func (h *SubmissionHandler) StartDraft(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	submission, err := h.service.StartDraft(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// SaveAnswer stores one answer on the caller's editable submission.
func (h *SubmissionHandler) SaveAnswer(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SaveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid answer payload"))
		return
	}
	req.SubmissionID = c.Param("id")

	if err := h.service.SaveAnswer(c.Request.Context(), claims.UserID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit hands the caller's submission in for grading.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	submission, err := h.service.Submit(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Review assembles a submission with its answers, the out-of-order advisory
// and the cumulative question offset for graders.
func (h *SubmissionHandler) Review(c *gin.Context) {
	review, err := h.service.Review(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.resolveImages(review.Answers)
	response.JSON(c, http.StatusOK, review, nil)
}

// Grade applies a grading decision to a submitted submission.
func (h *SubmissionHandler) Grade(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}
	req.SubmissionID = c.Param("id")

	submission, err := h.service.Grade(c.Request.Context(), claims.Capabilities(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.CountGrade(req.Pass)
	if req.Pass && h.boards != nil {
		h.boards.Invalidate(c.Request.Context())
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Mine returns the caller's submission and answers for a lesson.
func (h *SubmissionHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	submission, answers, err := h.service.GetForStudent(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.resolveImages(answers)
	response.JSON(c, http.StatusOK, gin.H{"submission": submission, "answers": answers}, nil)
}
