package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opencursus/cursus-api/internal/models"
	"github.com/opencursus/cursus-api/internal/repository"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
	"github.com/opencursus/cursus-api/pkg/export"
)

type certificateRepo interface {
	FindByID(ctx context.Context, id string) (*models.Certificate, error)
	FindDetailByID(ctx context.Context, id string) (*models.CertificateDetail, error)
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Certificate, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Certificate, error)
	ListByStatus(ctx context.Context, status models.CertificateStatus) ([]models.Certificate, error)
	CreateIfAbsent(ctx context.Context, studentID, courseID string) (bool, error)
	CreateIssued(ctx context.Context, cert *models.Certificate) error
	Attest(ctx context.Context, id, number, attestedBy string, attestedAt time.Time) (int64, error)
	Seal(ctx context.Context, id, sealedBy string, sealedAt time.Time) (int64, error)
	SetMailStatus(ctx context.Context, id string, status models.MailStatus) (int64, error)
}

type certificateNotifier interface {
	Notify(ctx context.Context, profileID, subject, body string) error
}

type nextCourseFinder interface {
	NextCourse(ctx context.Context, studentID, completedCourseID string) (*models.CourseRef, error)
}

// CertificateService drives the issuance workflow: creation on course
// completion, the attest and seal transitions, back-entered imports, and the
// mail flag. Both transitions are conditional writes so racing actors cannot
// double-advance a certificate.
type CertificateService struct {
	repo        certificateRepo
	notifier    certificateNotifier
	recommender nextCourseFinder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCertificateService constructs the service.
func NewCertificateService(repo certificateRepo, notifier certificateNotifier, recommender nextCourseFinder, validate *validator.Validate, logger *zap.Logger) *CertificateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{repo: repo, notifier: notifier, recommender: recommender, validator: validate, logger: logger}
}

// CreateOnCompletion records a completed course as a pending_attestation
// certificate. A no-op when the pair already has one.
func (s *CertificateService) CreateOnCompletion(ctx context.Context, studentID, courseID string) (bool, error) {
	created, err := s.repo.CreateIfAbsent(ctx, studentID, courseID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create certificate")
	}
	if created {
		s.logger.Sugar().Infow("certificate created", "student_id", studentID, "course_id", courseID)
	}
	return created, nil
}

// BackEnterRequest describes a historical completion import.
type BackEnterRequest struct {
	StudentID   string     `json:"student_id" validate:"required"`
	CourseID    string     `json:"course_id" validate:"required"`
	Number      *string    `json:"certificate_number"`
	CompletedAt *time.Time `json:"completed_at"`
	Mailed      bool       `json:"mailed"`
}

// BackEnter creates an issued certificate directly, bypassing the attest and
// seal steps. Admin-only; the completion date defaults to now.
func (s *CertificateService) BackEnter(ctx context.Context, req BackEnterRequest) (*models.Certificate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	issuedAt := time.Now().UTC()
	if req.CompletedAt != nil {
		issuedAt = req.CompletedAt.UTC()
	}
	cert := &models.Certificate{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		IssuedAt:  &issuedAt,
	}
	if req.Number != nil {
		trimmed := strings.TrimSpace(*req.Number)
		if trimmed != "" {
			cert.Number = &trimmed
		}
	}
	if req.Mailed {
		mailed := models.MailMailed
		cert.MailStatus = &mailed
	}

	if err := s.repo.CreateIssued(ctx, cert); err != nil {
		if errors.Is(err, repository.ErrCertificateNumberTaken) {
			return nil, s.numberConflict(cert.Number)
		}
		if errors.Is(err, repository.ErrDuplicateCertificate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "certificate already exists for this student and course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to back-enter certificate")
	}
	return cert, nil
}

// Attest stamps a unique certificate number and moves the certificate from
// pending_attestation to pending_seal.
func (s *CertificateService) Attest(ctx context.Context, caps models.Capabilities, actorID, certificateID, number string) (*models.Certificate, error) {
	if !caps.CanAttestCertificates {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "attest permission required")
	}
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "certificate number is required")
	}

	affected, err := s.repo.Attest(ctx, certificateID, trimmed, actorID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrCertificateNumberTaken) {
			return nil, s.numberConflict(&trimmed)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attest certificate")
	}
	if affected == 0 {
		return nil, s.transitionConflict(ctx, certificateID, models.CertificatePendingAttestation)
	}
	return s.find(ctx, certificateID)
}

// SealResult pairs the issued certificate with the recommended next course.
type SealResult struct {
	Certificate *models.Certificate `json:"certificate"`
	NextCourse  *models.CourseRef   `json:"next_course,omitempty"`
}

// Seal moves a certificate from pending_seal to issued, notifies the student
// and computes the next-course recommendation. Notification and
// recommendation failures are logged, never propagated: the certificate is
// issued either way.
func (s *CertificateService) Seal(ctx context.Context, caps models.Capabilities, actorID, certificateID string) (*SealResult, error) {
	if !caps.CanSealCertificates {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "seal permission required")
	}

	affected, err := s.repo.Seal(ctx, certificateID, actorID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seal certificate")
	}
	if affected == 0 {
		return nil, s.transitionConflict(ctx, certificateID, models.CertificatePendingSeal)
	}

	cert, err := s.find(ctx, certificateID)
	if err != nil {
		return nil, err
	}

	result := &SealResult{Certificate: cert}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, cert.StudentID, "Your certificate has been issued",
			"Congratulations! Your course certificate has been sealed and issued."); err != nil {
			s.logger.Sugar().Errorw("failed to notify student of issuance", "certificate_id", cert.ID, "error", err)
		}
	}
	if s.recommender != nil {
		next, err := s.recommender.NextCourse(ctx, cert.StudentID, cert.CourseID)
		if err != nil {
			s.logger.Sugar().Errorw("failed to compute next course", "certificate_id", cert.ID, "error", err)
		} else {
			result.NextCourse = next
		}
	}
	return result, nil
}

// SetMailStatus flags an issued certificate as needing mailing or mailed.
func (s *CertificateService) SetMailStatus(ctx context.Context, caps models.Capabilities, certificateID string, status models.MailStatus) error {
	if !caps.CanAttestCertificates {
		return appErrors.Clone(appErrors.ErrForbidden, "attest permission required")
	}
	if status != models.MailNeedsMailing && status != models.MailMailed {
		return appErrors.Clone(appErrors.ErrValidation, "invalid mail status")
	}
	affected, err := s.repo.SetMailStatus(ctx, certificateID, status)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set mail status")
	}
	if affected == 0 {
		return s.transitionConflict(ctx, certificateID, models.CertificateIssued)
	}
	return nil
}

// Get returns one certificate.
func (s *CertificateService) Get(ctx context.Context, id string) (*models.Certificate, error) {
	return s.find(ctx, id)
}

// ListByStudent returns the student's certificates.
func (s *CertificateService) ListByStudent(ctx context.Context, studentID string) ([]models.Certificate, error) {
	certs, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certificates")
	}
	return certs, nil
}

// ListQueue returns the working queue for one workflow state.
func (s *CertificateService) ListQueue(ctx context.Context, status models.CertificateStatus) ([]models.Certificate, error) {
	certs, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certificate queue")
	}
	return certs, nil
}

// Document builds the printable view of an issued certificate.
func (s *CertificateService) Document(ctx context.Context, id string) (*export.CertificateDocument, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	if detail.Status != models.CertificateIssued {
		return nil, appErrors.Clone(appErrors.ErrWrongStatus, "certificate has not been issued")
	}

	doc := &export.CertificateDocument{
		StudentName: detail.StudentName,
		CourseTitle: detail.CourseTitle,
		BackEntered: detail.IsBackEntered,
	}
	if detail.Number != nil {
		doc.Number = *detail.Number
	}
	if detail.IssuedAt != nil {
		doc.IssuedAt = *detail.IssuedAt
	}
	if detail.AttestedBy != nil {
		doc.AttestedBy = *detail.AttestedBy
	}
	if detail.SealedBy != nil {
		doc.SealedBy = *detail.SealedBy
	}
	return doc, nil
}

func (s *CertificateService) find(ctx context.Context, id string) (*models.Certificate, error) {
	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	return cert, nil
}

// transitionConflict distinguishes "gone" from "already advanced" after a
// conditional write touched zero rows.
func (s *CertificateService) transitionConflict(ctx context.Context, id string, expected models.CertificateStatus) error {
	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	return appErrors.Clone(appErrors.ErrWrongStatus,
		fmt.Sprintf("certificate is %s, expected %s", cert.Status, expected))
}

func (s *CertificateService) numberConflict(number *string) error {
	msg := "certificate number already in use"
	if number != nil {
		msg = fmt.Sprintf("certificate number %q already in use", *number)
	}
	return appErrors.Clone(appErrors.ErrDuplicateNumber, msg)
}
