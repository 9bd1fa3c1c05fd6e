package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/opencursus/cursus-api/internal/models"
)

func newStreakRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStreakRepositoryFind(t *testing.T) {
	db, mock, cleanup := newStreakRepoMock(t)
	defer cleanup()
	repo := NewStreakRepository(db)

	week := "2026-W10"
	rows := sqlmock.NewRows([]string{"student_id", "current_streak_weeks", "longest_streak_weeks", "total_lessons_submitted", "last_submission_week", "updated_at"}).
		AddRow("stu-1", 4, 9, 31, week, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM honor_roll_streaks WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	streak, err := repo.Find(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Equal(t, 4, streak.CurrentStreakWeeks)
	require.Equal(t, 9, streak.LongestStreakWeeks)
	require.Equal(t, week, streak.LastSubmissionWeek)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStreakRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newStreakRepoMock(t)
	defer cleanup()
	repo := NewStreakRepository(db)

	week := "2026-W11"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO honor_roll_streaks")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), &models.HonorRollStreak{
		StudentID:             "stu-1",
		CurrentStreakWeeks:    5,
		LongestStreakWeeks:    9,
		TotalLessonsSubmitted: 32,
		LastSubmissionWeek:    week,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStreakRepositoryListActiveExcludesDeadfiled(t *testing.T) {
	db, mock, cleanup := newStreakRepoMock(t)
	defer cleanup()
	repo := NewStreakRepository(db)

	week := "2026-W09"
	rows := sqlmock.NewRows([]string{"student_id", "current_streak_weeks", "longest_streak_weeks", "total_lessons_submitted", "last_submission_week", "updated_at"}).
		AddRow("stu-1", 2, 2, 7, week, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.current_streak_weeks > 0 AND p.deadfiled = false")).
		WillReturnRows(rows)

	streaks, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, streaks, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStreakRepositoryResetCurrent(t *testing.T) {
	db, mock, cleanup := newStreakRepoMock(t)
	defer cleanup()
	repo := NewStreakRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE honor_roll_streaks SET current_streak_weeks = 0")).
		WithArgs("stu-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ResetCurrent(context.Background(), "stu-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
