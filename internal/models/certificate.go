package models

import "time"

// CertificateStatus is the workflow state of a certificate.
type CertificateStatus string

const (
	CertificatePendingAttestation CertificateStatus = "pending_attestation"
	CertificatePendingSeal        CertificateStatus = "pending_seal"
	CertificateIssued             CertificateStatus = "issued"
)

// MailStatus tracks physical mailing, orthogonal to the workflow state.
type MailStatus string

const (
	MailNeedsMailing MailStatus = "needs_mailing"
	MailMailed       MailStatus = "mailed"
)

// Certificate records a student's completion of a course. At most one row
// exists per (student, course); Number is globally unique when set.
type Certificate struct {
	ID            string            `db:"id" json:"id"`
	StudentID     string            `db:"student_id" json:"student_id"`
	CourseID      string            `db:"course_id" json:"course_id"`
	Status        CertificateStatus `db:"status" json:"status"`
	Number        *string           `db:"certificate_number" json:"certificate_number,omitempty"`
	IsBackEntered bool              `db:"is_backentered" json:"is_backentered"`
	AttestedBy    *string           `db:"attested_by" json:"attested_by,omitempty"`
	AttestedAt    *time.Time        `db:"attested_at" json:"attested_at,omitempty"`
	SealedBy      *string           `db:"sealed_by" json:"sealed_by,omitempty"`
	SealedAt      *time.Time        `db:"sealed_at" json:"sealed_at,omitempty"`
	IssuedAt      *time.Time        `db:"issued_at" json:"issued_at,omitempty"`
	MailStatus    *MailStatus       `db:"mail_status" json:"mail_status,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// CertificateDetail joins the certificate with display names for rendering.
type CertificateDetail struct {
	Certificate
	StudentName string `db:"student_name" json:"student_name"`
	CourseTitle string `db:"course_title" json:"course_title"`
}
