package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/opencursus/cursus-api/internal/models"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
)

type progressionCourseRepo interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindLessonByID(ctx context.Context, id string) (*models.Lesson, error)
	LessonsBefore(ctx context.Context, courseID string, position int) ([]models.Lesson, error)
	CountQuestionsBefore(ctx context.Context, courseID string, position int) (int, error)
}

type progressionSubmissionRepo interface {
	StatusesByLessons(ctx context.Context, studentID string, lessonIDs []string) (map[string]models.SubmissionStatus, error)
	CountPassedInCourse(ctx context.Context, studentID, courseID string) (int, error)
}

// ProgressionService answers two questions: is a submission out of order, and
// has a student fully completed a course.
type ProgressionService struct {
	courses     progressionCourseRepo
	submissions progressionSubmissionRepo
	logger      *zap.Logger
}

// NewProgressionService constructs the service.
func NewProgressionService(courses progressionCourseRepo, submissions progressionSubmissionRepo, logger *zap.Logger) *ProgressionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressionService{courses: courses, submissions: submissions, logger: logger}
}

// OutOfOrder reports whether the student skipped any lesson before the given
// one, returning the skipped lesson titles as a grading advisory. A prior
// lesson counts as turned in once it is submitted or graded; a draft or a
// missing submission counts as skipped.
func (s *ProgressionService) OutOfOrder(ctx context.Context, studentID, lessonID string) (bool, []string, error) {
	lesson, err := s.courses.FindLessonByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return false, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	prior, err := s.courses.LessonsBefore(ctx, lesson.CourseID, lesson.Position)
	if err != nil {
		return false, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prior lessons")
	}
	if len(prior) == 0 {
		return false, nil, nil
	}

	ids := make([]string, len(prior))
	for i, l := range prior {
		ids[i] = l.ID
	}
	statuses, err := s.submissions.StatusesByLessons(ctx, studentID, ids)
	if err != nil {
		return false, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission statuses")
	}

	var skipped []string
	for _, l := range prior {
		status, ok := statuses[l.ID]
		if !ok || status == models.SubmissionDraft {
			skipped = append(skipped, l.Title)
		}
	}
	return len(skipped) > 0, skipped, nil
}

// IsCourseComplete reports whether the student has passed every lesson of the
// course. A course with no lessons is never complete.
func (s *ProgressionService) IsCourseComplete(ctx context.Context, studentID, courseID string) (bool, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.LessonCount <= 0 {
		return false, nil
	}

	passed, err := s.submissions.CountPassedInCourse(ctx, studentID, courseID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count passed lessons")
	}
	return passed >= course.LessonCount, nil
}

// QuestionOffset returns the number of questions in lessons before the given
// one within its course, used for cumulative question numbering in grading
// views.
func (s *ProgressionService) QuestionOffset(ctx context.Context, lessonID string) (int, error) {
	lesson, err := s.courses.FindLessonByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	offset, err := s.courses.CountQuestionsBefore(ctx, lesson.CourseID, lesson.Position)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count prior questions")
	}
	return offset, nil
}
