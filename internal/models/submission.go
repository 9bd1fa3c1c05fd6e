package models

import "time"

// SubmissionStatus is the lifecycle state of a lesson submission.
type SubmissionStatus string

const (
	SubmissionDraft       SubmissionStatus = "draft"
	SubmissionSubmitted   SubmissionStatus = "submitted"
	SubmissionPass        SubmissionStatus = "graded_pass"
	SubmissionCorrections SubmissionStatus = "graded_corrections"
)

// LessonSubmission is the unit the progression gate and streak tracker
// operate on. At most one row exists per (student, lesson); corrections
// re-enter "submitted" on the same row.
type LessonSubmission struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	LessonID    string           `db:"lesson_id" json:"lesson_id"`
	Status      SubmissionStatus `db:"status" json:"status"`
	Grade       *float64         `db:"grade" json:"grade,omitempty"`
	GradedBy    *string          `db:"graded_by" json:"graded_by,omitempty"`
	GradedAt    *time.Time       `db:"graded_at" json:"graded_at,omitempty"`
	SubmittedAt *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// Answer holds a student's response to one question within a submission.
// NeedsCorrection scopes which answers must be redone after a corrections
// grade.
type Answer struct {
	ID              string    `db:"id" json:"id"`
	SubmissionID    string    `db:"submission_id" json:"submission_id"`
	QuestionID      string    `db:"question_id" json:"question_id"`
	Text            string    `db:"text" json:"text"`
	ImagePath       *string   `db:"image_path" json:"image_path,omitempty"`
	ImageURL        string    `db:"-" json:"image_url,omitempty"`
	Feedback        string    `db:"feedback" json:"feedback"`
	NeedsCorrection bool      `db:"needs_correction" json:"needs_correction"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// SubmissionReview is the grading view for supervisors: the submission plus
// the out-of-order advisory and cumulative question numbering.
type SubmissionReview struct {
	Submission     LessonSubmission `json:"submission"`
	Answers        []Answer         `json:"answers"`
	OutOfOrder     bool             `json:"out_of_order"`
	SkippedLessons []string         `json:"skipped_lessons,omitempty"`
	QuestionOffset int              `json:"question_offset"`
}
