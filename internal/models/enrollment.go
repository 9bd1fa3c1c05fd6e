package models

import "time"

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive         EnrollmentStatus = "active"
	EnrollmentPendingInvoice EnrollmentStatus = "pending_invoice_verification"
)

// Enrollment links a student to a course. At most one row exists per
// (student, course) pair.
type Enrollment struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	CourseID  string           `db:"course_id" json:"course_id"`
	Status    EnrollmentStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// PaidOrder is the order record produced by the external checkout once the
// payment processor reports a completed payment.
type PaidOrder struct {
	OrderID     string `json:"order_id" validate:"required"`
	StudentID   string `json:"student_id" validate:"required"`
	CourseID    string `json:"course_id" validate:"required"`
	AmountCents int64  `json:"amount_cents"`
}
