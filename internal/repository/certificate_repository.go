package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencursus/cursus-api/internal/models"
)

// ErrCertificateNumberTaken signals that the trimmed certificate number is
// already held by another certificate.
var ErrCertificateNumberTaken = fmt.Errorf("certificate number already taken")

// CertificateRepository handles certificate persistence. The write paths lean
// on database constraints so that concurrent callers cannot double-create a
// certificate or reuse a number.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository creates a new certificate repository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

const certificateColumns = `id, student_id, course_id, status, certificate_number, is_backentered,
        attested_by, attested_at, sealed_by, sealed_at, issued_at, mail_status, created_at, updated_at`

// FindByID returns the certificate with the given id.
func (r *CertificateRepository) FindByID(ctx context.Context, id string) (*models.Certificate, error) {
	var cert models.Certificate
	query := fmt.Sprintf("SELECT %s FROM certificates WHERE id = $1", certificateColumns)
	if err := r.db.GetContext(ctx, &cert, query, id); err != nil {
		return nil, err
	}
	return &cert, nil
}

// FindByStudentAndCourse returns the certificate for the pair, if any.
func (r *CertificateRepository) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Certificate, error) {
	var cert models.Certificate
	query := fmt.Sprintf("SELECT %s FROM certificates WHERE student_id = $1 AND course_id = $2", certificateColumns)
	if err := r.db.GetContext(ctx, &cert, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &cert, nil
}

// FindDetailByID returns the certificate joined with the student and course
// names used for rendering.
func (r *CertificateRepository) FindDetailByID(ctx context.Context, id string) (*models.CertificateDetail, error) {
	var detail models.CertificateDetail
	const query = `SELECT c.id, c.student_id, c.course_id, c.status, c.certificate_number, c.is_backentered,
                c.attested_by, c.attested_at, c.sealed_by, c.sealed_at, c.issued_at, c.mail_status,
                c.created_at, c.updated_at,
                p.full_name AS student_name, co.title AS course_title
        FROM certificates c
        JOIN profiles p ON p.id = c.student_id
        JOIN courses co ON co.id = c.course_id
        WHERE c.id = $1`
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByStudent returns the student's certificates, newest first.
func (r *CertificateRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Certificate, error) {
	var certs []models.Certificate
	query := fmt.Sprintf("SELECT %s FROM certificates WHERE student_id = $1 ORDER BY created_at DESC", certificateColumns)
	if err := r.db.SelectContext(ctx, &certs, query, studentID); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}

// ListByStatus returns certificates in the given workflow state, oldest first,
// the working queue for attesters and sealers.
func (r *CertificateRepository) ListByStatus(ctx context.Context, status models.CertificateStatus) ([]models.Certificate, error) {
	var certs []models.Certificate
	query := fmt.Sprintf("SELECT %s FROM certificates WHERE status = $1 ORDER BY created_at ASC", certificateColumns)
	if err := r.db.SelectContext(ctx, &certs, query, status); err != nil {
		return nil, fmt.Errorf("list certificates by status: %w", err)
	}
	return certs, nil
}

// CreateIfAbsent inserts a pending_attestation certificate for the pair.
// The unique (student_id, course_id) index absorbs concurrent duplicate
// completions; the bool reports whether this call created the row.
func (r *CertificateRepository) CreateIfAbsent(ctx context.Context, studentID, courseID string) (bool, error) {
	now := time.Now().UTC()
	const query = `INSERT INTO certificates (id, student_id, course_id, status, is_backentered, created_at, updated_at)
        VALUES ($1, $2, $3, $4, false, $5, $5)
        ON CONFLICT (student_id, course_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, uuid.NewString(), studentID, courseID, models.CertificatePendingAttestation, now)
	if err != nil {
		return false, fmt.Errorf("create certificate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create certificate: %w", err)
	}
	return affected == 1, nil
}

// CreateIssued inserts an already-issued certificate record for historic
// completions imported by an administrator.
func (r *CertificateRepository) CreateIssued(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cert.Status = models.CertificateIssued
	cert.IsBackEntered = true
	cert.CreatedAt = now
	cert.UpdatedAt = now
	const query = `INSERT INTO certificates (id, student_id, course_id, status, certificate_number, is_backentered,
                issued_at, mail_status, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :status, :certificate_number, :is_backentered,
                :issued_at, :mail_status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		if isUniqueViolation(err, "certificates_number_key") {
			return ErrCertificateNumberTaken
		}
		if isUniqueViolation(err, "certificates_student_course_key") {
			return ErrDuplicateCertificate
		}
		return fmt.Errorf("create issued certificate: %w", err)
	}
	return nil
}

// ErrDuplicateCertificate signals that the (student, course) pair already has
// a certificate.
var ErrDuplicateCertificate = fmt.Errorf("certificate already exists")

// Attest stamps the number and moves pending_attestation to pending_seal in a
// single conditional update. Zero affected rows means the certificate was no
// longer in pending_attestation; a unique violation on the number index means
// the number is taken.
func (r *CertificateRepository) Attest(ctx context.Context, id, number, attestedBy string, attestedAt time.Time) (int64, error) {
	const query = `UPDATE certificates
        SET status = $2, certificate_number = $3, attested_by = $4, attested_at = $5, updated_at = $5
        WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, models.CertificatePendingSeal, number, attestedBy, attestedAt, models.CertificatePendingAttestation)
	if err != nil {
		if isUniqueViolation(err, "certificates_number_key") {
			return 0, ErrCertificateNumberTaken
		}
		return 0, fmt.Errorf("attest certificate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("attest certificate: %w", err)
	}
	return affected, nil
}

// Seal moves pending_seal to issued and marks the certificate as needing
// mailing. Zero affected rows means the certificate was not pending_seal.
func (r *CertificateRepository) Seal(ctx context.Context, id, sealedBy string, sealedAt time.Time) (int64, error) {
	const query = `UPDATE certificates
        SET status = $2, sealed_by = $3, sealed_at = $4, issued_at = $4, mail_status = $5, updated_at = $4
        WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, models.CertificateIssued, sealedBy, sealedAt, models.MailNeedsMailing, models.CertificatePendingSeal)
	if err != nil {
		return 0, fmt.Errorf("seal certificate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("seal certificate: %w", err)
	}
	return affected, nil
}

// SetMailStatus records the physical mailing state of an issued certificate.
func (r *CertificateRepository) SetMailStatus(ctx context.Context, id string, status models.MailStatus) (int64, error) {
	const query = `UPDATE certificates SET mail_status = $2, updated_at = $3
        WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC(), models.CertificateIssued)
	if err != nil {
		return 0, fmt.Errorf("set mail status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set mail status: %w", err)
	}
	return affected, nil
}

// CompletedCourseIDs returns the ids of courses the student holds any
// certificate for, regardless of workflow state. A pending certificate still
// counts as a completed course for recommendation purposes.
func (r *CertificateRepository) CompletedCourseIDs(ctx context.Context, studentID string) (map[string]bool, error) {
	var ids []string
	const query = `SELECT course_id FROM certificates WHERE student_id = $1`
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list completed courses: %w", err)
	}
	completed := make(map[string]bool, len(ids))
	for _, id := range ids {
		completed[id] = true
	}
	return completed, nil
}
