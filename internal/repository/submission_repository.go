package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencursus/cursus-api/internal/models"
)

// SubmissionRepository handles lesson submission and answer persistence.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new submission repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = `id, student_id, lesson_id, status, grade, graded_by, graded_at, submitted_at, created_at, updated_at`

// FindByID returns the submission with the given id.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.LessonSubmission, error) {
	var submission models.LessonSubmission
	query := fmt.Sprintf("SELECT %s FROM lesson_submissions WHERE id = $1", submissionColumns)
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// FindByStudentAndLesson returns the student's submission for a lesson.
func (r *SubmissionRepository) FindByStudentAndLesson(ctx context.Context, studentID, lessonID string) (*models.LessonSubmission, error) {
	var submission models.LessonSubmission
	query := fmt.Sprintf("SELECT %s FROM lesson_submissions WHERE student_id = $1 AND lesson_id = $2", submissionColumns)
	if err := r.db.GetContext(ctx, &submission, query, studentID, lessonID); err != nil {
		return nil, err
	}
	return &submission, nil
}

// CreateDraft inserts a draft submission. The unique (student_id, lesson_id)
// index makes a concurrent duplicate insert a harmless no-op; the existing
// row is returned either way.
func (r *SubmissionRepository) CreateDraft(ctx context.Context, studentID, lessonID string) (*models.LessonSubmission, error) {
	now := time.Now().UTC()
	const query = `INSERT INTO lesson_submissions (id, student_id, lesson_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $5)
        ON CONFLICT (student_id, lesson_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), studentID, lessonID, models.SubmissionDraft, now); err != nil {
		return nil, fmt.Errorf("create draft submission: %w", err)
	}
	return r.FindByStudentAndLesson(ctx, studentID, lessonID)
}

// TransitionStatus moves the submission to a new status conditioned on the
// current one. Returns the affected row count; 0 means the submission was
// not in any of the expected statuses.
func (r *SubmissionRepository) TransitionStatus(ctx context.Context, id string, from []models.SubmissionStatus, to models.SubmissionStatus, submittedAt *time.Time) (int64, error) {
	args := []interface{}{id, to, time.Now().UTC(), submittedAt}
	query := fmt.Sprintf(`UPDATE lesson_submissions
        SET status = $2, updated_at = $3, submitted_at = COALESCE($4, submitted_at)
        WHERE id = $1 AND status IN (%s)`, inPlaceholders(len(from), len(args)))
	for _, s := range from {
		args = append(args, s)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("transition submission status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("transition submission status: %w", err)
	}
	return affected, nil
}

// RecordGrade applies a grading outcome conditioned on the submission being
// in "submitted". Returns the affected row count.
func (r *SubmissionRepository) RecordGrade(ctx context.Context, id string, status models.SubmissionStatus, grade *float64, gradedBy string, gradedAt time.Time) (int64, error) {
	const query = `UPDATE lesson_submissions
        SET status = $2, grade = $3, graded_by = $4, graded_at = $5, updated_at = $5
        WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, status, grade, gradedBy, gradedAt, models.SubmissionSubmitted)
	if err != nil {
		return 0, fmt.Errorf("record grade: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("record grade: %w", err)
	}
	return affected, nil
}

// StatusesByLessons returns the student's submission status keyed by lesson
// id, restricted to the given lessons.
func (r *SubmissionRepository) StatusesByLessons(ctx context.Context, studentID string, lessonIDs []string) (map[string]models.SubmissionStatus, error) {
	if len(lessonIDs) == 0 {
		return map[string]models.SubmissionStatus{}, nil
	}
	args := make([]interface{}, 0, len(lessonIDs)+1)
	args = append(args, studentID)
	query := fmt.Sprintf(`SELECT lesson_id, status FROM lesson_submissions
        WHERE student_id = $1 AND lesson_id IN (%s)`, inPlaceholders(len(lessonIDs), 1))
	for _, id := range lessonIDs {
		args = append(args, id)
	}
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch submission statuses: %w", err)
	}
	defer rows.Close()
	result := make(map[string]models.SubmissionStatus, len(lessonIDs))
	for rows.Next() {
		var lessonID string
		var status models.SubmissionStatus
		if err := rows.Scan(&lessonID, &status); err != nil {
			return nil, fmt.Errorf("scan submission status: %w", err)
		}
		result[lessonID] = status
	}
	return result, rows.Err()
}

// CountPassedInCourse counts the student's graded_pass submissions for
// lessons belonging to the course.
func (r *SubmissionRepository) CountPassedInCourse(ctx context.Context, studentID, courseID string) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM lesson_submissions s
        JOIN lessons l ON l.id = s.lesson_id
        WHERE s.student_id = $1 AND l.course_id = $2 AND s.status = $3`
	if err := r.db.GetContext(ctx, &count, query, studentID, courseID, models.SubmissionPass); err != nil {
		return 0, fmt.Errorf("count passed submissions: %w", err)
	}
	return count, nil
}

// UpsertAnswer inserts or updates the student's answer to a question.
func (r *SubmissionRepository) UpsertAnswer(ctx context.Context, answer *models.Answer) error {
	if answer.ID == "" {
		answer.ID = uuid.NewString()
	}
	answer.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO answers (id, submission_id, question_id, text, image_path, feedback, needs_correction, updated_at)
        VALUES (:id, :submission_id, :question_id, :text, :image_path, :feedback, :needs_correction, :updated_at)
        ON CONFLICT (submission_id, question_id)
        DO UPDATE SET text = EXCLUDED.text, image_path = EXCLUDED.image_path,
                needs_correction = false, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, answer); err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

// ListAnswers returns the submission's answers ordered by question.
func (r *SubmissionRepository) ListAnswers(ctx context.Context, submissionID string) ([]models.Answer, error) {
	var answers []models.Answer
	const query = `SELECT a.id, a.submission_id, a.question_id, a.text, a.image_path, a.feedback, a.needs_correction, a.updated_at
        FROM answers a
        JOIN questions q ON q.id = a.question_id
        WHERE a.submission_id = $1 ORDER BY q.position`
	if err := r.db.SelectContext(ctx, &answers, query, submissionID); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return answers, nil
}

// SetAnswerFeedback records supervisor feedback and the needs_correction flag
// on one answer.
func (r *SubmissionRepository) SetAnswerFeedback(ctx context.Context, answerID, feedback string, needsCorrection bool) error {
	const query = `UPDATE answers SET feedback = $2, needs_correction = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, answerID, feedback, needsCorrection, time.Now().UTC()); err != nil {
		return fmt.Errorf("set answer feedback: %w", err)
	}
	return nil
}
