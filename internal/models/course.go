package models

import "time"

// CourseCategory is one of the fixed lineups courses are grouped into.
type CourseCategory string

const (
	CategoryBasics     CourseCategory = "basics"
	CategoryCongresses CourseCategory = "congresses"
	CategoryAccs       CourseCategory = "accs"
)

// Categories lists every lineup in display order.
var Categories = []CourseCategory{CategoryBasics, CategoryCongresses, CategoryAccs}

// Course is an enrollable unit of study. LessonCount is denormalized and kept
// in step with the child lesson rows.
type Course struct {
	ID          string         `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Slug        string         `db:"slug" json:"slug"`
	Category    CourseCategory `db:"category" json:"category"`
	Position    int            `db:"position" json:"position"`
	Published   bool           `db:"published" json:"published"`
	LessonCount int            `db:"lesson_count" json:"lesson_count"`
	PriceCents  int64          `db:"price_cents" json:"price_cents"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// CourseRef is the minimal course reference returned by the recommender.
type CourseRef struct {
	ID    string `db:"id" json:"id"`
	Title string `db:"title" json:"title"`
	Slug  string `db:"slug" json:"slug"`
}

// Lesson belongs to exactly one course. Positions are assigned in insertion
// order and are unique within the course.
type Lesson struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Title     string    `db:"title" json:"title"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Question belongs to exactly one lesson.
type Question struct {
	ID        string    `db:"id" json:"id"`
	LessonID  string    `db:"lesson_id" json:"lesson_id"`
	Position  int       `db:"position" json:"position"`
	Prompt    string    `db:"prompt" json:"prompt"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
