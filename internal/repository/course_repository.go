package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencursus/cursus-api/internal/models"
)

// CourseRepository handles course, lesson and question persistence.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, title, slug, category, position, published, lesson_count, price_cents, created_at, updated_at`

// FindByID returns the course with the given id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns)
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns courses, optionally restricted to published rows or a category.
func (r *CourseRepository) List(ctx context.Context, category models.CourseCategory, publishedOnly bool) ([]models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE 1=1", courseColumns)
	var args []interface{}
	if category != "" {
		query += fmt.Sprintf(" AND category = $%d", len(args)+1)
		args = append(args, category)
	}
	if publishedOnly {
		query += " AND published = true"
	}
	query += " ORDER BY category, position"
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Create inserts a new course at the end of its category.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, title, slug, category, position, published, lesson_count, price_cents, created_at, updated_at)
        VALUES (:id, :title, :slug, :category,
                (SELECT COALESCE(MAX(position), 0) + 1 FROM courses WHERE category = :category),
                :published, 0, :price_cents, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update persists mutable course fields.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, slug = :slug, published = :published,
                price_cents = :price_cents, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// NextInCategory returns the first published course in the category with a
// strictly greater position, or sql.ErrNoRows.
func (r *CourseRepository) NextInCategory(ctx context.Context, category models.CourseCategory, position int) (*models.CourseRef, error) {
	var ref models.CourseRef
	const query = `SELECT id, title, slug FROM courses
        WHERE category = $1 AND position > $2 AND published = true
        ORDER BY position ASC LIMIT 1`
	if err := r.db.GetContext(ctx, &ref, query, category, position); err != nil {
		return nil, err
	}
	return &ref, nil
}

// FindLessonByID returns the lesson with the given id.
func (r *CourseRepository) FindLessonByID(ctx context.Context, id string) (*models.Lesson, error) {
	var lesson models.Lesson
	const query = `SELECT id, course_id, title, position, created_at, updated_at FROM lessons WHERE id = $1`
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListLessons returns the course's lessons ordered by position.
func (r *CourseRepository) ListLessons(ctx context.Context, courseID string) ([]models.Lesson, error) {
	var lessons []models.Lesson
	const query = `SELECT id, course_id, title, position, created_at, updated_at
        FROM lessons WHERE course_id = $1 ORDER BY position`
	if err := r.db.SelectContext(ctx, &lessons, query, courseID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// LessonsBefore returns the lessons in the same course with a strictly
// smaller position, ordered by position.
func (r *CourseRepository) LessonsBefore(ctx context.Context, courseID string, position int) ([]models.Lesson, error) {
	var lessons []models.Lesson
	const query = `SELECT id, course_id, title, position, created_at, updated_at
        FROM lessons WHERE course_id = $1 AND position < $2 ORDER BY position`
	if err := r.db.SelectContext(ctx, &lessons, query, courseID, position); err != nil {
		return nil, fmt.Errorf("list prior lessons: %w", err)
	}
	return lessons, nil
}

// CreateLesson appends a lesson to the course and bumps the denormalized
// lesson count in the same transaction.
func (r *CourseRepository) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lesson.CreatedAt = now
	lesson.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const insert = `INSERT INTO lessons (id, course_id, title, position, created_at, updated_at)
        VALUES (:id, :course_id, :title,
                (SELECT COALESCE(MAX(position), 0) + 1 FROM lessons WHERE course_id = :course_id),
                :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, lesson); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("create lesson: %w", err)
	}
	const bump = `UPDATE courses SET lesson_count = lesson_count + 1, updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, bump, lesson.CourseID, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("bump lesson count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit lesson: %w", err)
	}
	return nil
}

// DeleteLesson removes a lesson with its questions and decrements the
// denormalized lesson count.
func (r *CourseRepository) DeleteLesson(ctx context.Context, lessonID, courseID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE lesson_id = $1`, lessonID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete lesson questions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, lessonID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete lesson: %w", err)
	}
	const drop = `UPDATE courses SET lesson_count = GREATEST(lesson_count - 1, 0), updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, drop, courseID, time.Now().UTC()); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("drop lesson count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit lesson delete: %w", err)
	}
	return nil
}

// ListQuestions returns the lesson's questions ordered by position.
func (r *CourseRepository) ListQuestions(ctx context.Context, lessonID string) ([]models.Question, error) {
	var questions []models.Question
	const query = `SELECT id, lesson_id, position, prompt, created_at
        FROM questions WHERE lesson_id = $1 ORDER BY position`
	if err := r.db.SelectContext(ctx, &questions, query, lessonID); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// CreateQuestion appends a question to the lesson.
func (r *CourseRepository) CreateQuestion(ctx context.Context, question *models.Question) error {
	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	question.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO questions (id, lesson_id, position, prompt, created_at)
        VALUES (:id, :lesson_id,
                (SELECT COALESCE(MAX(position), 0) + 1 FROM questions WHERE lesson_id = :lesson_id),
                :prompt, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, question); err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

// CountQuestionsBefore returns the number of questions in lessons of the same
// course with a strictly smaller position. Used for cumulative numbering.
func (r *CourseRepository) CountQuestionsBefore(ctx context.Context, courseID string, position int) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM questions q
        JOIN lessons l ON l.id = q.lesson_id
        WHERE l.course_id = $1 AND l.position < $2`
	if err := r.db.GetContext(ctx, &count, query, courseID, position); err != nil {
		return 0, fmt.Errorf("count prior questions: %w", err)
	}
	return count, nil
}
