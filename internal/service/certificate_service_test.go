package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencursus/cursus-api/internal/models"
	"github.com/opencursus/cursus-api/internal/repository"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
)

type mockCertificateRepo struct {
	certs   map[string]models.Certificate
	numbers map[string]string
}

func newMockCertificateRepo() *mockCertificateRepo {
	return &mockCertificateRepo{certs: make(map[string]models.Certificate), numbers: make(map[string]string)}
}

func (m *mockCertificateRepo) FindByID(ctx context.Context, id string) (*models.Certificate, error) {
	cert, ok := m.certs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &cert, nil
}

func (m *mockCertificateRepo) FindDetailByID(ctx context.Context, id string) (*models.CertificateDetail, error) {
	cert, ok := m.certs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.CertificateDetail{Certificate: cert, StudentName: "Test Student", CourseTitle: "Test Course"}, nil
}

func (m *mockCertificateRepo) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Certificate, error) {
	for _, cert := range m.certs {
		if cert.StudentID == studentID && cert.CourseID == courseID {
			return &cert, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCertificateRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Certificate, error) {
	var result []models.Certificate
	for _, cert := range m.certs {
		if cert.StudentID == studentID {
			result = append(result, cert)
		}
	}
	return result, nil
}

func (m *mockCertificateRepo) ListByStatus(ctx context.Context, status models.CertificateStatus) ([]models.Certificate, error) {
	var result []models.Certificate
	for _, cert := range m.certs {
		if cert.Status == status {
			result = append(result, cert)
		}
	}
	return result, nil
}

func (m *mockCertificateRepo) CreateIfAbsent(ctx context.Context, studentID, courseID string) (bool, error) {
	for _, cert := range m.certs {
		if cert.StudentID == studentID && cert.CourseID == courseID {
			return false, nil
		}
	}
	id := "cert-" + studentID + "-" + courseID
	m.certs[id] = models.Certificate{
		ID: id, StudentID: studentID, CourseID: courseID,
		Status: models.CertificatePendingAttestation,
	}
	return true, nil
}

func (m *mockCertificateRepo) CreateIssued(ctx context.Context, cert *models.Certificate) error {
	for _, existing := range m.certs {
		if existing.StudentID == cert.StudentID && existing.CourseID == cert.CourseID {
			return repository.ErrDuplicateCertificate
		}
	}
	if cert.Number != nil {
		if _, taken := m.numbers[*cert.Number]; taken {
			return repository.ErrCertificateNumberTaken
		}
		m.numbers[*cert.Number] = cert.ID
	}
	cert.ID = "cert-" + cert.StudentID + "-" + cert.CourseID
	cert.Status = models.CertificateIssued
	cert.IsBackEntered = true
	m.certs[cert.ID] = *cert
	return nil
}

func (m *mockCertificateRepo) Attest(ctx context.Context, id, number, attestedBy string, attestedAt time.Time) (int64, error) {
	if owner, taken := m.numbers[number]; taken && owner != id {
		return 0, repository.ErrCertificateNumberTaken
	}
	cert, ok := m.certs[id]
	if !ok || cert.Status != models.CertificatePendingAttestation {
		return 0, nil
	}
	cert.Status = models.CertificatePendingSeal
	cert.Number = &number
	cert.AttestedBy = &attestedBy
	cert.AttestedAt = &attestedAt
	m.certs[id] = cert
	m.numbers[number] = id
	return 1, nil
}

func (m *mockCertificateRepo) Seal(ctx context.Context, id, sealedBy string, sealedAt time.Time) (int64, error) {
	cert, ok := m.certs[id]
	if !ok || cert.Status != models.CertificatePendingSeal {
		return 0, nil
	}
	needsMailing := models.MailNeedsMailing
	cert.Status = models.CertificateIssued
	cert.SealedBy = &sealedBy
	cert.SealedAt = &sealedAt
	cert.IssuedAt = &sealedAt
	cert.MailStatus = &needsMailing
	m.certs[id] = cert
	return 1, nil
}

func (m *mockCertificateRepo) SetMailStatus(ctx context.Context, id string, status models.MailStatus) (int64, error) {
	cert, ok := m.certs[id]
	if !ok || cert.Status != models.CertificateIssued {
		return 0, nil
	}
	cert.MailStatus = &status
	m.certs[id] = cert
	return 1, nil
}

type mockNotifier struct {
	notified []string
}

func (m *mockNotifier) Notify(ctx context.Context, profileID, subject, body string) error {
	m.notified = append(m.notified, profileID)
	return nil
}

type mockRecommender struct {
	next *models.CourseRef
}

func (m *mockRecommender) NextCourse(ctx context.Context, studentID, completedCourseID string) (*models.CourseRef, error) {
	return m.next, nil
}

func adminCaps() models.Capabilities {
	return models.ResolveCapabilities(models.RoleAdmin, false, false, false)
}

func studentCaps() models.Capabilities {
	return models.ResolveCapabilities(models.RoleStudent, false, false, false)
}

func TestCreateOnCompletionIsIdempotent(t *testing.T) {
	repo := newMockCertificateRepo()
	svc := NewCertificateService(repo, nil, nil, nil, nil)

	created, err := svc.CreateOnCompletion(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.CreateOnCompletion(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, repo.certs, 1)
}

func TestAttestHappyPath(t *testing.T) {
	repo := newMockCertificateRepo()
	svc := NewCertificateService(repo, nil, nil, nil, nil)

	_, err := svc.CreateOnCompletion(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)

	cert, err := svc.Attest(context.Background(), adminCaps(), "admin-1", "cert-stu-1-course-1", "  EXT-2026-0042  ")
	require.NoError(t, err)
	assert.Equal(t, models.CertificatePendingSeal, cert.Status)
	require.NotNil(t, cert.Number)
	assert.Equal(t, "EXT-2026-0042", *cert.Number)
	require.NotNil(t, cert.AttestedBy)
	assert.Equal(t, "admin-1", *cert.AttestedBy)
}

func TestAttestRequiresPermission(t *testing.T) {
	repo := newMockCertificateRepo()
	svc := NewCertificateService(repo, nil, nil, nil, nil)

	_, err := svc.Attest(context.Background(), studentCaps(), "stu-1", "cert-1", "EXT-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAttestRequiresNumber(t *testing.T) {
	repo := newMockCertificateRepo()
	svc := NewCertificateService(repo, nil, nil, nil, nil)

	_, err := svc.Attest(context.Background(), adminCaps(), "admin-1", "cert-1", "   ")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDoubleAttestRejected(t *testing.T) {
	repo := newMockCertificateRepo()
	svc := NewCertificateService(repo, nil, nil, nil, nil)

	_, err := svc.CreateOnCompletion(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	_, err = svc.Attest(context.Background(), adminCaps(), "admin-1", "cert-stu-1-course-1", "EXT-2026-0042")
	require.NoError(t, err)

	_, err = svc.Attest(context.Background(), adminCaps(), "admin-2", "cert-stu-1-course-1", "EXT-2026-0043")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWrongStatus.Code, appErrors.FromError(err).Code)
}

func TestAttestDuplicateNumberNamesNumber(t *testing.T) {
	repo := newMockCertificateRepo()
	svc := NewCertificateService(repo, nil, nil, nil, nil)

	_, err := svc.CreateOnCompletion(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	_, err = svc.CreateOnCompletion(context.Background(), "stu-2", "course-1")
	require.NoError(t, err)
	_, err = svc.Attest(context.Background(), adminCaps(), "admin-1", "cert-stu-1-course-1", "EXT-2026-0042")
	require.NoError(t, err)

	_, err = svc.Attest(context.Background(), adminCaps(), "admin-1", "cert-stu-2-course-1", "EXT-2026-0042")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicateNumber.Code, appErr.Code)
	assert.True(t, strings.Contains(appErr.Message, "EXT-2026-0042"))
}

func TestSealNotifiesAndRecommends(t *testing.T) {
	repo := newMockCertificateRepo()
	notifier := &mockNotifier{}
	recommender := &mockRecommender{next: &models.CourseRef{ID: "course-2", Title: "Next", Slug: "next"}}
	svc := NewCertificateService(repo, notifier, recommender, nil, nil)

	_, err := svc.CreateOnCompletion(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	_, err = svc.Attest(context.Background(), adminCaps(), "admin-1", "cert-stu-1-course-1", "EXT-2026-0042")
	require.NoError(t, err)

	result, err := svc.Seal(context.Background(), adminCaps(), "signer-1", "cert-stu-1-course-1")
	require.NoError(t, err)
	assert.Equal(t, models.CertificateIssued, result.Certificate.Status)
	require.NotNil(t, result.Certificate.MailStatus)
	assert.Equal(t, models.MailNeedsMailing, *result.Certificate.MailStatus)
	assert.Equal(t, []string{"stu-1"}, notifier.notified)
	require.NotNil(t, result.NextCourse)
	assert.Equal(t, "course-2", result.NextCourse.ID)
}

func TestSealAlreadyIssuedRejected(t *testing.T) {
	repo := newMockCertificateRepo()
	svc := NewCertificateService(repo, nil, nil, nil, nil)

	_, err := svc.CreateOnCompletion(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	_, err = svc.Attest(context.Background(), adminCaps(), "admin-1", "cert-stu-1-course-1", "EXT-2026-0042")
	require.NoError(t, err)
	_, err = svc.Seal(context.Background(), adminCaps(), "signer-1", "cert-stu-1-course-1")
	require.NoError(t, err)

	_, err = svc.Seal(context.Background(), adminCaps(), "signer-2", "cert-stu-1-course-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWrongStatus.Code, appErrors.FromError(err).Code)
}

func TestSealRequiresPermission(t *testing.T) {
	repo := newMockCertificateRepo()
	svc := NewCertificateService(repo, nil, nil, nil, nil)

	_, err := svc.Seal(context.Background(), studentCaps(), "stu-1", "cert-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestBackEnterSkipsWorkflow(t *testing.T) {
	repo := newMockCertificateRepo()
	svc := NewCertificateService(repo, nil, nil, nil, nil)

	completed := time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)
	number := "HIST-0007"
	cert, err := svc.BackEnter(context.Background(), BackEnterRequest{
		StudentID:   "stu-1",
		CourseID:    "course-1",
		Number:      &number,
		CompletedAt: &completed,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CertificateIssued, cert.Status)
	assert.True(t, cert.IsBackEntered)
	require.NotNil(t, cert.IssuedAt)
	assert.Equal(t, completed, *cert.IssuedAt)
}

func TestBackEnterDuplicateNumberRejected(t *testing.T) {
	repo := newMockCertificateRepo()
	svc := NewCertificateService(repo, nil, nil, nil, nil)

	number := "HIST-0007"
	_, err := svc.BackEnter(context.Background(), BackEnterRequest{StudentID: "stu-1", CourseID: "course-1", Number: &number})
	require.NoError(t, err)

	_, err = svc.BackEnter(context.Background(), BackEnterRequest{StudentID: "stu-2", CourseID: "course-1", Number: &number})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateNumber.Code, appErrors.FromError(err).Code)
}

func TestSetMailStatusOnlyOnceIssued(t *testing.T) {
	repo := newMockCertificateRepo()
	svc := NewCertificateService(repo, nil, nil, nil, nil)

	_, err := svc.CreateOnCompletion(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)

	err = svc.SetMailStatus(context.Background(), adminCaps(), "cert-stu-1-course-1", models.MailMailed)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWrongStatus.Code, appErrors.FromError(err).Code)
}

func TestDocumentRequiresIssued(t *testing.T) {
	repo := newMockCertificateRepo()
	svc := NewCertificateService(repo, nil, nil, nil, nil)

	_, err := svc.CreateOnCompletion(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)

	_, err = svc.Document(context.Background(), "cert-stu-1-course-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWrongStatus.Code, appErrors.FromError(err).Code)

	_, err = svc.Attest(context.Background(), adminCaps(), "admin-1", "cert-stu-1-course-1", "EXT-1")
	require.NoError(t, err)
	_, err = svc.Seal(context.Background(), adminCaps(), "signer-1", "cert-stu-1-course-1")
	require.NoError(t, err)

	doc, err := svc.Document(context.Background(), "cert-stu-1-course-1")
	require.NoError(t, err)
	assert.Equal(t, "Test Student", doc.StudentName)
	assert.Equal(t, "EXT-1", doc.Number)
}
