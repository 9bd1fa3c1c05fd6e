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

func newHonorRollRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestHonorRollRepositoryTopStreaksExcludesDeadfiledAndIdle(t *testing.T) {
	db, mock, cleanup := newHonorRollRepoMock(t)
	defer cleanup()
	repo := NewHonorRollRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "student_name", "current_streak_weeks", "longest_streak_weeks", "total_lessons_submitted"}).
		AddRow("stu-1", "Alice", 4, 6, 12)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.deadfiled = false AND p.is_staff = $1 AND s.total_lessons_submitted > 0")).
		WithArgs(false, 200).
		WillReturnRows(rows)

	entries, err := repo.TopStreaks(context.Background(), false, 200)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Alice", entries[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHonorRollRepositoryHallOfFameCountsIssuedOnly(t *testing.T) {
	db, mock, cleanup := newHonorRollRepoMock(t)
	defer cleanup()
	repo := NewHonorRollRepository(db)

	rows := sqlmock.NewRows([]string{"student_name", "completed_at"}).
		AddRow("Alice", "2026-08-14")
	mock.ExpectQuery(regexp.QuoteMeta("MAX(c.issued_at)") + ".*" +
		regexp.QuoteMeta("AND c.status = $2 AND p.deadfiled = false")).
		WithArgs(string(models.CategoryBasics), string(models.CertificateIssued)).
		WillReturnRows(rows)

	entries, err := repo.HallOfFame(context.Background(), models.CategoryBasics)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "2026-08-14", entries[0].CompletedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHonorRollRepositoryMonthlyLessonCountsWindow(t *testing.T) {
	db, mock, cleanup := newHonorRollRepoMock(t)
	defer cleanup()
	repo := NewHonorRollRepository(db)

	from := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	rows := sqlmock.NewRows([]string{"student_id", "student_name", "is_staff", "lessons"}).
		AddRow("stu-1", "Alice", false, 7).
		AddRow("stu-2", "Bob", true, 5)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.status = $1 AND s.graded_at >= $2 AND s.graded_at < $3 AND p.deadfiled = false")).
		WithArgs(string(models.SubmissionPass), from, to).
		WillReturnRows(rows)

	counts, err := repo.MonthlyLessonCounts(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	require.True(t, counts[1].IsStaff)
	require.NoError(t, mock.ExpectationsWereMet())
}
