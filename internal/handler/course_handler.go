package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencursus/cursus-api/internal/models"
	"github.com/opencursus/cursus-api/internal/service"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
	"github.com/opencursus/cursus-api/pkg/response"
)

// CourseHandler exposes the course catalog and its admin mutations.
type CourseHandler struct {
	service *service.CourseService
}

// NewCourseHandler creates a new handler.
func NewCourseHandler(svc *service.CourseService) *CourseHandler {
	return &CourseHandler{service: svc}
}

// List returns the catalog, optionally filtered by category. Unpublished
// courses are visible to course managers only.
func (h *CourseHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	category := models.CourseCategory(c.Query("category"))
	courses, err := h.service.List(c.Request.Context(), category, claims.Capabilities())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Get returns one course.
func (h *CourseHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	course, err := h.service.Get(c.Request.Context(), c.Param("id"), claims.Capabilities())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create registers a course.
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}

	course, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update modifies a course.
func (h *CourseHandler) Update(c *gin.Context) {
	var req service.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}

	course, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// ListLessons returns a course's lessons in position order.
func (h *CourseHandler) ListLessons(c *gin.Context) {
	lessons, err := h.service.ListLessons(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// AddLesson appends a lesson to a course.
func (h *CourseHandler) AddLesson(c *gin.Context) {
	var payload struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "lesson title required"))
		return
	}

	lesson, err := h.service.AddLesson(c.Request.Context(), c.Param("id"), payload.Title)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// RemoveLesson deletes a lesson.
func (h *CourseHandler) RemoveLesson(c *gin.Context) {
	if err := h.service.RemoveLesson(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListQuestions returns a lesson's questions in position order.
func (h *CourseHandler) ListQuestions(c *gin.Context) {
	questions, err := h.service.ListQuestions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, questions, nil)
}

// AddQuestion appends a question to a lesson.
func (h *CourseHandler) AddQuestion(c *gin.Context) {
	var payload struct {
		Prompt string `json:"prompt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "question prompt required"))
		return
	}

	question, err := h.service.AddQuestion(c.Request.Context(), c.Param("id"), payload.Prompt)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, question)
}
