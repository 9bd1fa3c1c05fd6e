package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencursus/cursus-api/internal/service"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
	"github.com/opencursus/cursus-api/pkg/response"
)

// RouteHandler exposes study route administration and the next-course
// recommendation.
type RouteHandler struct {
	service *service.RouteService
	metrics *service.MetricsService
}

// NewRouteHandler creates a new handler.
func NewRouteHandler(svc *service.RouteService, metrics *service.MetricsService) *RouteHandler {
	return &RouteHandler{service: svc, metrics: metrics}
}

// List returns all study routes.
func (h *RouteHandler) List(c *gin.Context) {
	routes, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, routes, nil)
}

// Get returns one route with its course lineup.
func (h *RouteHandler) Get(c *gin.Context) {
	route, courses, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"route": route, "courses": courses}, nil)
}

// Create registers a study route.
func (h *RouteHandler) Create(c *gin.Context) {
	var payload struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "route name required"))
		return
	}

	route, err := h.service.Create(c.Request.Context(), payload.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, route)
}

// AddCourse appends a course to a route's lineup.
func (h *RouteHandler) AddCourse(c *gin.Context) {
	var payload struct {
		CourseID string `json:"course_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "course id required"))
		return
	}

	if err := h.service.AddCourse(c.Request.Context(), c.Param("id"), payload.CourseID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// NextCourse recommends the caller's next course after completing one. A null
// body means there is nothing left to recommend.
func (h *RouteHandler) NextCourse(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	next, err := h.service.NextCourse(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if next != nil {
		h.metrics.CountRecommendation()
	}
	response.JSON(c, http.StatusOK, gin.H{"next_course": next}, nil)
}
