package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/opencursus/cursus-api/internal/models"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
)

type routeRepo interface {
	FindByID(ctx context.Context, id string) (*models.StudyRoute, error)
	List(ctx context.Context) ([]models.StudyRoute, error)
	Create(ctx context.Context, route *models.StudyRoute) error
	ListCourses(ctx context.Context, routeID string) ([]models.RouteCourse, error)
	AddCourse(ctx context.Context, routeID, courseID string) error
}

type routeProfileRepo interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

type routeCourseRepo interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	NextInCategory(ctx context.Context, category models.CourseCategory, position int) (*models.CourseRef, error)
}

type completedCourses interface {
	CompletedCourseIDs(ctx context.Context, studentID string) (map[string]bool, error)
}

// RouteService manages study routes and computes next-course recommendations.
// The recommendation is advisory only; it grants no access and creates no
// enrollment.
type RouteService struct {
	routes       routeRepo
	profiles     routeProfileRepo
	courses      routeCourseRepo
	certificates completedCourses
	logger       *zap.Logger
}

// NewRouteService constructs the service.
func NewRouteService(routes routeRepo, profiles routeProfileRepo, courses routeCourseRepo, certificates completedCourses, logger *zap.Logger) *RouteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteService{routes: routes, profiles: profiles, courses: courses, certificates: certificates, logger: logger}
}

// NextCourse proposes the course a student should take after completing the
// given one. Route-based selection wins when the student has an assigned
// route; otherwise the next published course in the same category is used.
// A nil result without error means there is nothing left to recommend.
func (s *RouteService) NextCourse(ctx context.Context, studentID, completedCourseID string) (*models.CourseRef, error) {
	profile, err := s.profiles.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	completed, err := s.certificates.CompletedCourseIDs(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completed courses")
	}
	// The just-completed course may not have a certificate row yet.
	completed[completedCourseID] = true

	if profile.StudyRouteID != nil {
		ref, err := s.nextOnRoute(ctx, *profile.StudyRouteID, completedCourseID, completed)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			return ref, nil
		}
	}
	return s.nextInCategory(ctx, completedCourseID, completed)
}

// nextOnRoute scans forward from the completed course's position for the
// first published course not yet completed. A completed course absent from
// the route restarts the scan at the beginning.
func (s *RouteService) nextOnRoute(ctx context.Context, routeID, completedCourseID string, completed map[string]bool) (*models.CourseRef, error) {
	entries, err := s.routes.ListCourses(ctx, routeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load route courses")
	}

	fromPosition := 0
	for _, entry := range entries {
		if entry.CourseID == completedCourseID {
			fromPosition = entry.Position
			break
		}
	}

	for _, entry := range entries {
		if entry.Position <= fromPosition {
			continue
		}
		if !entry.Published || completed[entry.CourseID] {
			continue
		}
		return &models.CourseRef{ID: entry.CourseID, Title: entry.Title, Slug: entry.Slug}, nil
	}
	return nil, nil
}

func (s *RouteService) nextInCategory(ctx context.Context, completedCourseID string, completed map[string]bool) (*models.CourseRef, error) {
	course, err := s.courses.FindByID(ctx, completedCourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	position := course.Position
	for {
		ref, err := s.courses.NextInCategory(ctx, course.Category, position)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find next course")
		}
		if !completed[ref.ID] {
			return ref, nil
		}
		next, err := s.courses.FindByID(ctx, ref.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load next course")
		}
		position = next.Position
	}
}

// List returns all study routes.
func (s *RouteService) List(ctx context.Context) ([]models.StudyRoute, error) {
	routes, err := s.routes.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list routes")
	}
	return routes, nil
}

// Get returns one route with its ordered courses.
func (s *RouteService) Get(ctx context.Context, id string) (*models.StudyRoute, []models.RouteCourse, error) {
	route, err := s.routes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "route not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load route")
	}
	courses, err := s.routes.ListCourses(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load route courses")
	}
	return route, courses, nil
}

// Create registers a new route.
func (s *RouteService) Create(ctx context.Context, name string) (*models.StudyRoute, error) {
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "route name is required")
	}
	route := &models.StudyRoute{Name: name}
	if err := s.routes.Create(ctx, route); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create route")
	}
	return route, nil
}

// AddCourse appends a course to the end of a route.
func (s *RouteService) AddCourse(ctx context.Context, routeID, courseID string) error {
	if _, err := s.routes.FindByID(ctx, routeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "route not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load route")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.routes.AddCourse(ctx, routeID, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add course to route")
	}
	return nil
}
