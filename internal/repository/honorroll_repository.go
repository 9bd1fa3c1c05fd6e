package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opencursus/cursus-api/internal/models"
)

// HonorRollRepository runs the read-side aggregation queries behind the
// leaderboard, hall of fame and monthly MVP views. Deadfiled students never
// appear in any of them.
type HonorRollRepository struct {
	db *sqlx.DB
}

// NewHonorRollRepository creates a new honor roll repository.
func NewHonorRollRepository(db *sqlx.DB) *HonorRollRepository {
	return &HonorRollRepository{db: db}
}

// TopStreaks returns the leaderboard for one audience partition, ordered by
// current streak, then total lessons, then student id for a stable tail.
func (r *HonorRollRepository) TopStreaks(ctx context.Context, staff bool, limit int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	const query = `SELECT s.student_id, p.full_name AS student_name,
                s.current_streak_weeks, s.longest_streak_weeks, s.total_lessons_submitted
        FROM honor_roll_streaks s
        JOIN profiles p ON p.id = s.student_id
        WHERE p.deadfiled = false AND p.is_staff = $1 AND s.total_lessons_submitted > 0
        ORDER BY s.current_streak_weeks DESC, s.total_lessons_submitted DESC, s.student_id
        LIMIT $2`
	if err := r.db.SelectContext(ctx, &entries, query, staff, limit); err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}
	return entries, nil
}

// HallOfFame returns students holding an issued certificate for every
// published course in the category, keyed by the day the last certificate of
// the lineup was issued. Pending certificates do not count.
func (r *HonorRollRepository) HallOfFame(ctx context.Context, category models.CourseCategory) ([]models.HallOfFameEntry, error) {
	var entries []models.HallOfFameEntry
	const query = `SELECT p.full_name AS student_name,
                to_char(MAX(c.issued_at), 'YYYY-MM-DD') AS completed_at
        FROM certificates c
        JOIN profiles p ON p.id = c.student_id
        JOIN courses co ON co.id = c.course_id
        WHERE co.category = $1 AND co.published = true AND c.status = $2 AND p.deadfiled = false
        GROUP BY c.student_id, p.full_name
        HAVING COUNT(DISTINCT c.course_id) = (SELECT COUNT(*) FROM courses WHERE category = $1 AND published = true)
        ORDER BY completed_at, student_name`
	if err := r.db.SelectContext(ctx, &entries, query, category, models.CertificateIssued); err != nil {
		return nil, fmt.Errorf("fetch hall of fame: %w", err)
	}
	return entries, nil
}

// MonthlyLessonCounts tallies graded_pass submissions per student within the
// half-open [from, to) window. Both audience partitions come back in one
// query; the caller picks the winners.
func (r *HonorRollRepository) MonthlyLessonCounts(ctx context.Context, from, to time.Time) ([]models.MonthlyLessonCount, error) {
	var counts []models.MonthlyLessonCount
	const query = `SELECT s.student_id, p.full_name AS student_name, p.is_staff,
                COUNT(*) AS lessons
        FROM lesson_submissions s
        JOIN profiles p ON p.id = s.student_id
        WHERE s.status = $1 AND s.graded_at >= $2 AND s.graded_at < $3 AND p.deadfiled = false
        GROUP BY s.student_id, p.full_name, p.is_staff
        ORDER BY lessons DESC, s.student_id`
	if err := r.db.SelectContext(ctx, &counts, query, models.SubmissionPass, from, to); err != nil {
		return nil, fmt.Errorf("fetch monthly lesson counts: %w", err)
	}
	return counts, nil
}
