package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencursus/cursus-api/internal/models"
)

type mockProgressionCourseRepo struct {
	courses         map[string]models.Course
	lessons         map[string]models.Lesson
	questionsBefore map[string]int
}

func (m *mockProgressionCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

func (m *mockProgressionCourseRepo) FindLessonByID(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, ok := m.lessons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &lesson, nil
}

func (m *mockProgressionCourseRepo) LessonsBefore(ctx context.Context, courseID string, position int) ([]models.Lesson, error) {
	var prior []models.Lesson
	for _, lesson := range m.lessons {
		if lesson.CourseID == courseID && lesson.Position < position {
			prior = append(prior, lesson)
		}
	}
	// Position order matters for the advisory text.
	for i := 0; i < len(prior); i++ {
		for j := i + 1; j < len(prior); j++ {
			if prior[j].Position < prior[i].Position {
				prior[i], prior[j] = prior[j], prior[i]
			}
		}
	}
	return prior, nil
}

func (m *mockProgressionCourseRepo) CountQuestionsBefore(ctx context.Context, courseID string, position int) (int, error) {
	return m.questionsBefore[courseID], nil
}

type mockProgressionSubmissionRepo struct {
	statuses map[string]models.SubmissionStatus
	passed   map[string]int
}

func (m *mockProgressionSubmissionRepo) StatusesByLessons(ctx context.Context, studentID string, lessonIDs []string) (map[string]models.SubmissionStatus, error) {
	result := make(map[string]models.SubmissionStatus)
	for _, id := range lessonIDs {
		if status, ok := m.statuses[id]; ok {
			result[id] = status
		}
	}
	return result, nil
}

func (m *mockProgressionSubmissionRepo) CountPassedInCourse(ctx context.Context, studentID, courseID string) (int, error) {
	return m.passed[courseID], nil
}

func threeLessonCourse() *mockProgressionCourseRepo {
	return &mockProgressionCourseRepo{
		courses: map[string]models.Course{
			"course-1": {ID: "course-1", LessonCount: 3},
		},
		lessons: map[string]models.Lesson{
			"les-1": {ID: "les-1", CourseID: "course-1", Title: "Foundations", Position: 1},
			"les-2": {ID: "les-2", CourseID: "course-1", Title: "Practice", Position: 2},
			"les-3": {ID: "les-3", CourseID: "course-1", Title: "Review", Position: 3},
		},
		questionsBefore: map[string]int{},
	}
}

func TestOutOfOrderFlagsSkippedLessons(t *testing.T) {
	courses := threeLessonCourse()
	submissions := &mockProgressionSubmissionRepo{statuses: map[string]models.SubmissionStatus{}}
	svc := NewProgressionService(courses, submissions, nil)

	flagged, skipped, err := svc.OutOfOrder(context.Background(), "stu-1", "les-3")
	require.NoError(t, err)
	assert.True(t, flagged)
	assert.Equal(t, []string{"Foundations", "Practice"}, skipped)
}

func TestOutOfOrderAcceptsSubmittedPriorLessons(t *testing.T) {
	courses := threeLessonCourse()
	submissions := &mockProgressionSubmissionRepo{statuses: map[string]models.SubmissionStatus{
		"les-1": models.SubmissionPass,
		"les-2": models.SubmissionSubmitted,
	}}
	svc := NewProgressionService(courses, submissions, nil)

	flagged, skipped, err := svc.OutOfOrder(context.Background(), "stu-1", "les-3")
	require.NoError(t, err)
	assert.False(t, flagged)
	assert.Empty(t, skipped)
}

func TestOutOfOrderTreatsDraftAsSkipped(t *testing.T) {
	courses := threeLessonCourse()
	submissions := &mockProgressionSubmissionRepo{statuses: map[string]models.SubmissionStatus{
		"les-1": models.SubmissionDraft,
	}}
	svc := NewProgressionService(courses, submissions, nil)

	flagged, skipped, err := svc.OutOfOrder(context.Background(), "stu-1", "les-2")
	require.NoError(t, err)
	assert.True(t, flagged)
	assert.Equal(t, []string{"Foundations"}, skipped)
}

func TestOutOfOrderFirstLessonNeverFlagged(t *testing.T) {
	courses := threeLessonCourse()
	submissions := &mockProgressionSubmissionRepo{statuses: map[string]models.SubmissionStatus{}}
	svc := NewProgressionService(courses, submissions, nil)

	flagged, skipped, err := svc.OutOfOrder(context.Background(), "stu-1", "les-1")
	require.NoError(t, err)
	assert.False(t, flagged)
	assert.Empty(t, skipped)
}

func TestCourseCompletion(t *testing.T) {
	courses := threeLessonCourse()
	submissions := &mockProgressionSubmissionRepo{passed: map[string]int{"course-1": 2}}
	svc := NewProgressionService(courses, submissions, nil)

	complete, err := svc.IsCourseComplete(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	assert.False(t, complete)

	submissions.passed["course-1"] = 3
	complete, err = svc.IsCourseComplete(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	assert.True(t, complete)
}

func TestCourseWithNoLessonsIsNeverComplete(t *testing.T) {
	courses := &mockProgressionCourseRepo{
		courses: map[string]models.Course{"empty": {ID: "empty", LessonCount: 0}},
	}
	submissions := &mockProgressionSubmissionRepo{passed: map[string]int{"empty": 5}}
	svc := NewProgressionService(courses, submissions, nil)

	complete, err := svc.IsCourseComplete(context.Background(), "stu-1", "empty")
	require.NoError(t, err)
	assert.False(t, complete)
}

func TestQuestionOffset(t *testing.T) {
	courses := threeLessonCourse()
	courses.questionsBefore["course-1"] = 7
	svc := NewProgressionService(courses, &mockProgressionSubmissionRepo{}, nil)

	offset, err := svc.QuestionOffset(context.Background(), "les-3")
	require.NoError(t, err)
	assert.Equal(t, 7, offset)
}
