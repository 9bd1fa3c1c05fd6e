package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opencursus/cursus-api/internal/models"
)

// StreakRepository handles honor-roll streak persistence.
type StreakRepository struct {
	db *sqlx.DB
}

// NewStreakRepository creates a new streak repository.
func NewStreakRepository(db *sqlx.DB) *StreakRepository {
	return &StreakRepository{db: db}
}

// Find returns the student's streak row.
func (r *StreakRepository) Find(ctx context.Context, studentID string) (*models.HonorRollStreak, error) {
	var streak models.HonorRollStreak
	const query = `SELECT student_id, current_streak_weeks, longest_streak_weeks, total_lessons_submitted, last_submission_week, updated_at
        FROM honor_roll_streaks WHERE student_id = $1`
	if err := r.db.GetContext(ctx, &streak, query, studentID); err != nil {
		return nil, err
	}
	return &streak, nil
}

// Upsert writes the streak row. The primary key on student_id collapses two
// concurrent first-activity events into one row.
func (r *StreakRepository) Upsert(ctx context.Context, streak *models.HonorRollStreak) error {
	streak.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO honor_roll_streaks (student_id, current_streak_weeks, longest_streak_weeks, total_lessons_submitted, last_submission_week, updated_at)
        VALUES (:student_id, :current_streak_weeks, :longest_streak_weeks, :total_lessons_submitted, :last_submission_week, :updated_at)
        ON CONFLICT (student_id)
        DO UPDATE SET current_streak_weeks = EXCLUDED.current_streak_weeks,
                longest_streak_weeks = EXCLUDED.longest_streak_weeks,
                total_lessons_submitted = EXCLUDED.total_lessons_submitted,
                last_submission_week = EXCLUDED.last_submission_week,
                updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, streak); err != nil {
		return fmt.Errorf("upsert streak: %w", err)
	}
	return nil
}

// ListActive returns streak rows with a positive current streak whose owner
// is not deadfiled. The sweep operates on this set only, which keeps
// re-running it from touching already-zeroed rows.
func (r *StreakRepository) ListActive(ctx context.Context) ([]models.HonorRollStreak, error) {
	var streaks []models.HonorRollStreak
	const query = `SELECT s.student_id, s.current_streak_weeks, s.longest_streak_weeks, s.total_lessons_submitted, s.last_submission_week, s.updated_at
        FROM honor_roll_streaks s
        JOIN profiles p ON p.id = s.student_id
        WHERE s.current_streak_weeks > 0 AND p.deadfiled = false`
	if err := r.db.SelectContext(ctx, &streaks, query); err != nil {
		return nil, fmt.Errorf("list active streaks: %w", err)
	}
	return streaks, nil
}

// ResetCurrent zeroes the current streak, leaving the longest untouched.
func (r *StreakRepository) ResetCurrent(ctx context.Context, studentID string) error {
	const query = `UPDATE honor_roll_streaks SET current_streak_weeks = 0, updated_at = $2 WHERE student_id = $1`
	if _, err := r.db.ExecContext(ctx, query, studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("reset streak: %w", err)
	}
	return nil
}
