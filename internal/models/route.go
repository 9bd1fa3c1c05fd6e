package models

import "time"

// StudyRoute is a named ordered sequence of courses driving next-course
// recommendations.
type StudyRoute struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StudyRouteCourse places a course at a 1-based position within a route.
type StudyRouteCourse struct {
	RouteID  string `db:"route_id" json:"route_id"`
	CourseID string `db:"course_id" json:"course_id"`
	Position int    `db:"position" json:"position"`
}

// RouteCourse is a route entry joined with the course fields the recommender
// needs.
type RouteCourse struct {
	CourseID  string `db:"course_id" json:"course_id"`
	Position  int    `db:"position" json:"position"`
	Title     string `db:"title" json:"title"`
	Slug      string `db:"slug" json:"slug"`
	Published bool   `db:"published" json:"published"`
}
