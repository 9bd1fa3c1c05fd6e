package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencursus/cursus-api/internal/models"
)

type mockRouteRepo struct {
	routes  map[string]models.StudyRoute
	courses map[string][]models.RouteCourse
}

func (m *mockRouteRepo) FindByID(ctx context.Context, id string) (*models.StudyRoute, error) {
	route, ok := m.routes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &route, nil
}

func (m *mockRouteRepo) List(ctx context.Context) ([]models.StudyRoute, error) {
	var result []models.StudyRoute
	for _, route := range m.routes {
		result = append(result, route)
	}
	return result, nil
}

func (m *mockRouteRepo) Create(ctx context.Context, route *models.StudyRoute) error {
	if m.routes == nil {
		m.routes = make(map[string]models.StudyRoute)
	}
	route.ID = "route-new"
	m.routes[route.ID] = *route
	return nil
}

func (m *mockRouteRepo) ListCourses(ctx context.Context, routeID string) ([]models.RouteCourse, error) {
	return m.courses[routeID], nil
}

func (m *mockRouteRepo) AddCourse(ctx context.Context, routeID, courseID string) error {
	m.courses[routeID] = append(m.courses[routeID], models.RouteCourse{
		CourseID: courseID, Position: len(m.courses[routeID]) + 1,
	})
	return nil
}

type mockRouteProfileRepo struct {
	profiles map[string]models.Profile
}

func (m *mockRouteProfileRepo) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	profile, ok := m.profiles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &profile, nil
}

type mockRouteCourseRepo struct {
	courses map[string]models.Course
}

func (m *mockRouteCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

func (m *mockRouteCourseRepo) NextInCategory(ctx context.Context, category models.CourseCategory, position int) (*models.CourseRef, error) {
	var best *models.Course
	for id := range m.courses {
		course := m.courses[id]
		if course.Category != category || !course.Published || course.Position <= position {
			continue
		}
		if best == nil || course.Position < best.Position {
			best = &course
		}
	}
	if best == nil {
		return nil, sql.ErrNoRows
	}
	return &models.CourseRef{ID: best.ID, Title: best.Title, Slug: best.Slug}, nil
}

type mockCompletedCourses struct {
	completed map[string]map[string]bool
}

func (m *mockCompletedCourses) CompletedCourseIDs(ctx context.Context, studentID string) (map[string]bool, error) {
	result := make(map[string]bool)
	for id, done := range m.completed[studentID] {
		result[id] = done
	}
	return result, nil
}

func routeFixture() (*mockRouteRepo, *mockRouteProfileRepo, *mockRouteCourseRepo, *mockCompletedCourses) {
	routeID := "route-1"
	routes := &mockRouteRepo{
		routes: map[string]models.StudyRoute{routeID: {ID: routeID, Name: "Standard"}},
		courses: map[string][]models.RouteCourse{routeID: {
			{CourseID: "course-a", Position: 1, Title: "Course A", Slug: "a", Published: true},
			{CourseID: "course-b", Position: 2, Title: "Course B", Slug: "b", Published: true},
			{CourseID: "course-c", Position: 3, Title: "Course C", Slug: "c", Published: true},
		}},
	}
	profiles := &mockRouteProfileRepo{profiles: map[string]models.Profile{
		"stu-1": {ID: "stu-1", StudyRouteID: &routeID},
		"stu-2": {ID: "stu-2"},
	}}
	courses := &mockRouteCourseRepo{courses: map[string]models.Course{
		"course-a": {ID: "course-a", Title: "Course A", Slug: "a", Category: models.CategoryBasics, Position: 1, Published: true},
		"course-b": {ID: "course-b", Title: "Course B", Slug: "b", Category: models.CategoryBasics, Position: 2, Published: true},
		"course-c": {ID: "course-c", Title: "Course C", Slug: "c", Category: models.CategoryBasics, Position: 3, Published: true},
	}}
	certs := &mockCompletedCourses{completed: map[string]map[string]bool{}}
	return routes, profiles, courses, certs
}

func TestNextCourseOnRouteSkipsCompleted(t *testing.T) {
	routes, profiles, courses, certs := routeFixture()
	certs.completed["stu-1"] = map[string]bool{"course-a": true}
	svc := NewRouteService(routes, profiles, courses, certs, nil)

	next, err := svc.NextCourse(context.Background(), "stu-1", "course-b")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "course-c", next.ID)
}

func TestNextCourseRouteExhaustedFallsBackToCategory(t *testing.T) {
	routes, profiles, courses, certs := routeFixture()
	certs.completed["stu-1"] = map[string]bool{"course-a": true, "course-b": true}
	// A fourth course outside the route but in the same category.
	courses.courses["course-d"] = models.Course{
		ID: "course-d", Title: "Course D", Slug: "d", Category: models.CategoryBasics, Position: 4, Published: true,
	}
	svc := NewRouteService(routes, profiles, courses, certs, nil)

	next, err := svc.NextCourse(context.Background(), "stu-1", "course-c")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "course-d", next.ID)
}

func TestNextCourseUnlistedCompletionRestartsRouteScan(t *testing.T) {
	routes, profiles, courses, certs := routeFixture()
	courses.courses["course-x"] = models.Course{
		ID: "course-x", Title: "Course X", Slug: "x", Category: models.CategoryAccs, Position: 1, Published: true,
	}
	svc := NewRouteService(routes, profiles, courses, certs, nil)

	// Completed course is not on the route: recommend from the route start.
	next, err := svc.NextCourse(context.Background(), "stu-1", "course-x")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "course-a", next.ID)
}

func TestNextCourseSkipsUnpublishedRouteEntries(t *testing.T) {
	routes, profiles, courses, certs := routeFixture()
	entries := routes.courses["route-1"]
	entries[1].Published = false
	routes.courses["route-1"] = entries
	svc := NewRouteService(routes, profiles, courses, certs, nil)

	next, err := svc.NextCourse(context.Background(), "stu-1", "course-a")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "course-c", next.ID)
}

func TestNextCourseCategoryFallbackWithoutRoute(t *testing.T) {
	routes, profiles, courses, certs := routeFixture()
	svc := NewRouteService(routes, profiles, courses, certs, nil)

	next, err := svc.NextCourse(context.Background(), "stu-2", "course-a")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "course-b", next.ID)
}

func TestNextCourseCategoryFallbackSkipsCompleted(t *testing.T) {
	routes, profiles, courses, certs := routeFixture()
	certs.completed["stu-2"] = map[string]bool{"course-b": true}
	svc := NewRouteService(routes, profiles, courses, certs, nil)

	next, err := svc.NextCourse(context.Background(), "stu-2", "course-a")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "course-c", next.ID)
}

func TestNextCourseTerminalStateReturnsNil(t *testing.T) {
	routes, profiles, courses, certs := routeFixture()
	certs.completed["stu-2"] = map[string]bool{"course-a": true, "course-b": true, "course-c": true}
	svc := NewRouteService(routes, profiles, courses, certs, nil)

	next, err := svc.NextCourse(context.Background(), "stu-2", "course-c")
	require.NoError(t, err)
	assert.Nil(t, next)
}
