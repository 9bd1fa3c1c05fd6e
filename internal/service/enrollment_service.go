package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opencursus/cursus-api/internal/models"
	"github.com/opencursus/cursus-api/internal/repository"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
)

type enrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
	Delete(ctx context.Context, id string) error
}

type enrollmentCourseRepo interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// EnrollmentService links students to courses. Free courses and completed
// paid orders enroll as active; invoice enrollment waits for manual
// verification.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   enrollmentCourseRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(repo enrollmentRepository, courses enrollmentCourseRepo, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// Enroll creates a free enrollment. Paid courses must go through the checkout
// or invoice paths.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	course, err := s.publishedCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.PriceCents > 0 {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course requires payment")
	}
	return s.create(ctx, studentID, courseID, models.EnrollmentActive)
}

// EnrollWithInvoice creates an enrollment pending manual invoice
// verification.
func (s *EnrollmentService) EnrollWithInvoice(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	if _, err := s.publishedCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.create(ctx, studentID, courseID, models.EnrollmentPendingInvoice)
}

// ConfirmPaidOrder enrolls the student after the payment processor reports a
// completed order. Idempotent for repeated webhook deliveries.
func (s *EnrollmentService) ConfirmPaidOrder(ctx context.Context, order models.PaidOrder) (*models.Enrollment, error) {
	if err := s.validator.Struct(order); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid order payload")
	}
	if _, err := s.publishedCourse(ctx, order.CourseID); err != nil {
		return nil, err
	}

	enrollment, err := s.create(ctx, order.StudentID, order.CourseID, models.EnrollmentActive)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrConflict.Code {
			existing, findErr := s.repo.FindByStudentAndCourse(ctx, order.StudentID, order.CourseID)
			if findErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}
	s.logger.Sugar().Infow("paid order enrolled", "order_id", order.OrderID, "student_id", order.StudentID, "course_id", order.CourseID)
	return enrollment, nil
}

// VerifyInvoice activates a pending invoice enrollment.
func (s *EnrollmentService) VerifyInvoice(ctx context.Context, enrollmentID string) (*models.Enrollment, error) {
	enrollment, err := s.find(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentPendingInvoice {
		return nil, appErrors.Clone(appErrors.ErrWrongStatus, "enrollment is not pending invoice verification")
	}
	if err := s.repo.UpdateStatus(ctx, enrollmentID, models.EnrollmentActive); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate enrollment")
	}
	enrollment.Status = models.EnrollmentActive
	return enrollment, nil
}

// RejectInvoice removes a pending invoice enrollment.
func (s *EnrollmentService) RejectInvoice(ctx context.Context, enrollmentID string) error {
	enrollment, err := s.find(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if enrollment.Status != models.EnrollmentPendingInvoice {
		return appErrors.Clone(appErrors.ErrWrongStatus, "enrollment is not pending invoice verification")
	}
	if err := s.repo.Delete(ctx, enrollmentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	return nil
}

// ListByStudent returns the student's enrollments.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

func (s *EnrollmentService) create(ctx context.Context, studentID, courseID string, status models.EnrollmentStatus) (*models.Enrollment, error) {
	enrollment := &models.Enrollment{
		StudentID: studentID,
		CourseID:  courseID,
		Status:    status,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicateEnrollment) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, nil
}

func (s *EnrollmentService) find(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

func (s *EnrollmentService) publishedCourse(ctx context.Context, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.Published {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return course, nil
}
