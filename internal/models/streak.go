package models

import "time"

// HonorRollStreak tracks a student's weekly submission streak. One row per
// student; current never exceeds longest.
type HonorRollStreak struct {
	StudentID             string    `db:"student_id" json:"student_id"`
	CurrentStreakWeeks    int       `db:"current_streak_weeks" json:"current_streak_weeks"`
	LongestStreakWeeks    int       `db:"longest_streak_weeks" json:"longest_streak_weeks"`
	TotalLessonsSubmitted int       `db:"total_lessons_submitted" json:"total_lessons_submitted"`
	LastSubmissionWeek    string    `db:"last_submission_week" json:"last_submission_week"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}
