package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opencursus/cursus-api/internal/models"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
)

type submissionRepo interface {
	FindByID(ctx context.Context, id string) (*models.LessonSubmission, error)
	FindByStudentAndLesson(ctx context.Context, studentID, lessonID string) (*models.LessonSubmission, error)
	CreateDraft(ctx context.Context, studentID, lessonID string) (*models.LessonSubmission, error)
	TransitionStatus(ctx context.Context, id string, from []models.SubmissionStatus, to models.SubmissionStatus, submittedAt *time.Time) (int64, error)
	RecordGrade(ctx context.Context, id string, status models.SubmissionStatus, grade *float64, gradedBy string, gradedAt time.Time) (int64, error)
	UpsertAnswer(ctx context.Context, answer *models.Answer) error
	ListAnswers(ctx context.Context, submissionID string) ([]models.Answer, error)
	SetAnswerFeedback(ctx context.Context, answerID, feedback string, needsCorrection bool) error
}

type submissionLessonRepo interface {
	FindLessonByID(ctx context.Context, id string) (*models.Lesson, error)
}

type submissionEnrollmentRepo interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
}

type progressionGate interface {
	OutOfOrder(ctx context.Context, studentID, lessonID string) (bool, []string, error)
	IsCourseComplete(ctx context.Context, studentID, courseID string) (bool, error)
	QuestionOffset(ctx context.Context, lessonID string) (int, error)
}

type streakRecorder interface {
	RecordPass(ctx context.Context, studentID string, at time.Time) (*models.HonorRollStreak, error)
}

type certificateCreator interface {
	CreateOnCompletion(ctx context.Context, studentID, courseID string) (bool, error)
}

// SubmissionService runs the submission lifecycle from draft through grading.
// A grade-to-pass fans out to the streak tracker and, when it completes the
// course, the certificate workflow; those side effects are logged and
// swallowed so the grade itself never rolls back.
type SubmissionService struct {
	repo         submissionRepo
	lessons      submissionLessonRepo
	enrollments  submissionEnrollmentRepo
	progression  progressionGate
	streaks      streakRecorder
	certificates certificateCreator
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewSubmissionService constructs the service.
func NewSubmissionService(repo submissionRepo, lessons submissionLessonRepo, enrollments submissionEnrollmentRepo,
	progression progressionGate, streaks streakRecorder, certificates certificateCreator,
	validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		repo:         repo,
		lessons:      lessons,
		enrollments:  enrollments,
		progression:  progression,
		streaks:      streaks,
		certificates: certificates,
		validator:    validate,
		logger:       logger,
	}
}

// StartDraft opens (or returns) the student's draft for a lesson. Requires an
// active enrollment in the lesson's course.
func (s *SubmissionService) StartDraft(ctx context.Context, studentID, lessonID string) (*models.LessonSubmission, error) {
	lesson, err := s.lessons.FindLessonByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	enrollment, err := s.enrollments.FindByStudentAndCourse(ctx, studentID, lesson.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentActive {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment is awaiting invoice verification")
	}

	submission, err := s.repo.CreateDraft(ctx, studentID, lessonID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start submission")
	}
	return submission, nil
}

// SaveAnswerRequest carries one answer edit.
type SaveAnswerRequest struct {
	SubmissionID string  `json:"submission_id" validate:"required"`
	QuestionID   string  `json:"question_id" validate:"required"`
	Text         string  `json:"text"`
	ImagePath    *string `json:"image_path"`
}

// SaveAnswer stores the student's answer to one question. Only the owner may
// write, and only while the submission is editable (draft or corrections).
func (s *SubmissionService) SaveAnswer(ctx context.Context, studentID string, req SaveAnswerRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	submission, err := s.ownedSubmission(ctx, studentID, req.SubmissionID)
	if err != nil {
		return err
	}
	if submission.Status != models.SubmissionDraft && submission.Status != models.SubmissionCorrections {
		return appErrors.Clone(appErrors.ErrWrongStatus, "submission can no longer be edited")
	}

	answer := &models.Answer{
		SubmissionID: req.SubmissionID,
		QuestionID:   req.QuestionID,
		Text:         req.Text,
		ImagePath:    req.ImagePath,
	}
	if err := s.repo.UpsertAnswer(ctx, answer); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save answer")
	}
	return nil
}

// Submit turns in a draft or corrected submission for grading.
func (s *SubmissionService) Submit(ctx context.Context, studentID, submissionID string) (*models.LessonSubmission, error) {
	if _, err := s.ownedSubmission(ctx, studentID, submissionID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	affected, err := s.repo.TransitionStatus(ctx, submissionID,
		[]models.SubmissionStatus{models.SubmissionDraft, models.SubmissionCorrections},
		models.SubmissionSubmitted, &now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit")
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrWrongStatus, "submission is not in an editable state")
	}
	return s.reload(ctx, submissionID)
}

// Review builds the grading view: the submission with its answers, the
// out-of-order advisory and the cumulative question offset.
func (s *SubmissionService) Review(ctx context.Context, submissionID string) (*models.SubmissionReview, error) {
	submission, err := s.repo.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	answers, err := s.repo.ListAnswers(ctx, submissionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load answers")
	}

	outOfOrder, skipped, err := s.progression.OutOfOrder(ctx, submission.StudentID, submission.LessonID)
	if err != nil {
		return nil, err
	}
	offset, err := s.progression.QuestionOffset(ctx, submission.LessonID)
	if err != nil {
		return nil, err
	}

	return &models.SubmissionReview{
		Submission:     *submission,
		Answers:        answers,
		OutOfOrder:     outOfOrder,
		SkippedLessons: skipped,
		QuestionOffset: offset,
	}, nil
}

// AnswerFeedback carries per-answer grading feedback.
type AnswerFeedback struct {
	AnswerID        string `json:"answer_id" validate:"required"`
	Feedback        string `json:"feedback"`
	NeedsCorrection bool   `json:"needs_correction"`
}

// GradeRequest carries a grading decision.
type GradeRequest struct {
	SubmissionID string           `json:"submission_id" validate:"required"`
	Pass         bool             `json:"pass"`
	Grade        *float64         `json:"grade"`
	Feedback     []AnswerFeedback `json:"feedback" validate:"dive"`
}

// Grade applies a supervisor's decision to a submitted submission. On a pass
// the streak is updated and, when the course is now complete, a certificate is
// created; failures in either are logged and never fail the grade.
func (s *SubmissionService) Grade(ctx context.Context, caps models.Capabilities, graderID string, req GradeRequest) (*models.LessonSubmission, error) {
	if !caps.CanGradeSubmissions {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "grading permission required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	submission, err := s.repo.FindByID(ctx, req.SubmissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	status := models.SubmissionCorrections
	if req.Pass {
		status = models.SubmissionPass
	}
	gradedAt := time.Now().UTC()
	affected, err := s.repo.RecordGrade(ctx, req.SubmissionID, status, req.Grade, graderID, gradedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrWrongStatus, "submission has not been submitted for grading")
	}

	for _, fb := range req.Feedback {
		if err := s.repo.SetAnswerFeedback(ctx, fb.AnswerID, fb.Feedback, fb.NeedsCorrection); err != nil {
			s.logger.Sugar().Errorw("failed to save answer feedback",
				"submission_id", req.SubmissionID, "answer_id", fb.AnswerID, "error", err)
		}
	}

	if req.Pass {
		s.afterPass(ctx, submission, gradedAt)
	}
	return s.reload(ctx, req.SubmissionID)
}

// afterPass fans a passed grade out to the streak tracker and the certificate
// workflow. Fail open: the grade already landed.
func (s *SubmissionService) afterPass(ctx context.Context, submission *models.LessonSubmission, gradedAt time.Time) {
	if _, err := s.streaks.RecordPass(ctx, submission.StudentID, gradedAt); err != nil {
		s.logger.Sugar().Errorw("failed to update streak",
			"student_id", submission.StudentID, "submission_id", submission.ID, "error", err)
	}

	lesson, err := s.lessons.FindLessonByID(ctx, submission.LessonID)
	if err != nil {
		s.logger.Sugar().Errorw("failed to load lesson for completion check",
			"lesson_id", submission.LessonID, "error", err)
		return
	}
	complete, err := s.progression.IsCourseComplete(ctx, submission.StudentID, lesson.CourseID)
	if err != nil {
		s.logger.Sugar().Errorw("failed to check course completion",
			"student_id", submission.StudentID, "course_id", lesson.CourseID, "error", err)
		return
	}
	if !complete {
		return
	}
	if _, err := s.certificates.CreateOnCompletion(ctx, submission.StudentID, lesson.CourseID); err != nil {
		s.logger.Sugar().Errorw("failed to create certificate",
			"student_id", submission.StudentID, "course_id", lesson.CourseID, "error", err)
	}
}

// GetForStudent returns the student's submission for a lesson, if any.
func (s *SubmissionService) GetForStudent(ctx context.Context, studentID, lessonID string) (*models.LessonSubmission, []models.Answer, error) {
	submission, err := s.repo.FindByStudentAndLesson(ctx, studentID, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	answers, err := s.repo.ListAnswers(ctx, submission.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load answers")
	}
	return submission, answers, nil
}

func (s *SubmissionService) reload(ctx context.Context, submissionID string) (*models.LessonSubmission, error) {
	submission, err := s.repo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload submission")
	}
	return submission, nil
}

func (s *SubmissionService) ownedSubmission(ctx context.Context, studentID, submissionID string) (*models.LessonSubmission, error) {
	submission, err := s.repo.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if submission.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another student")
	}
	return submission, nil
}
