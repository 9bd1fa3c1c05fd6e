package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencursus/cursus-api/internal/models"
)

// RouteRepository handles study route persistence.
type RouteRepository struct {
	db *sqlx.DB
}

// NewRouteRepository creates a new route repository.
func NewRouteRepository(db *sqlx.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// FindByID returns the route with the given id.
func (r *RouteRepository) FindByID(ctx context.Context, id string) (*models.StudyRoute, error) {
	var route models.StudyRoute
	const query = `SELECT id, name, created_at FROM study_routes WHERE id = $1`
	if err := r.db.GetContext(ctx, &route, query, id); err != nil {
		return nil, err
	}
	return &route, nil
}

// List returns all routes ordered by name.
func (r *RouteRepository) List(ctx context.Context) ([]models.StudyRoute, error) {
	var routes []models.StudyRoute
	const query = `SELECT id, name, created_at FROM study_routes ORDER BY name`
	if err := r.db.SelectContext(ctx, &routes, query); err != nil {
		return nil, fmt.Errorf("list study routes: %w", err)
	}
	return routes, nil
}

// Create inserts a new route.
func (r *RouteRepository) Create(ctx context.Context, route *models.StudyRoute) error {
	if route.ID == "" {
		route.ID = uuid.NewString()
	}
	route.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO study_routes (id, name, created_at) VALUES (:id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, route); err != nil {
		return fmt.Errorf("create study route: %w", err)
	}
	return nil
}

// ListCourses returns the route's entries with course fields, ordered by
// position within the route.
func (r *RouteRepository) ListCourses(ctx context.Context, routeID string) ([]models.RouteCourse, error) {
	var courses []models.RouteCourse
	const query = `SELECT rc.course_id, rc.position, c.title, c.slug, c.published
        FROM study_route_courses rc
        JOIN courses c ON c.id = rc.course_id
        WHERE rc.route_id = $1 ORDER BY rc.position`
	if err := r.db.SelectContext(ctx, &courses, query, routeID); err != nil {
		return nil, fmt.Errorf("list route courses: %w", err)
	}
	return courses, nil
}

// AddCourse appends a course at the end of the route.
func (r *RouteRepository) AddCourse(ctx context.Context, routeID, courseID string) error {
	const query = `INSERT INTO study_route_courses (route_id, course_id, position)
        VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM study_route_courses WHERE route_id = $1))`
	if _, err := r.db.ExecContext(ctx, query, routeID, courseID); err != nil {
		return fmt.Errorf("add route course: %w", err)
	}
	return nil
}
