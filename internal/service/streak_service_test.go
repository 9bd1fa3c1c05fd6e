package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencursus/cursus-api/internal/models"
)

type mockStreakRepo struct {
	streaks   map[string]models.HonorRollStreak
	deadfiled map[string]bool
}

func newMockStreakRepo() *mockStreakRepo {
	return &mockStreakRepo{streaks: make(map[string]models.HonorRollStreak), deadfiled: make(map[string]bool)}
}

func (m *mockStreakRepo) Find(ctx context.Context, studentID string) (*models.HonorRollStreak, error) {
	streak, ok := m.streaks[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &streak, nil
}

func (m *mockStreakRepo) Upsert(ctx context.Context, streak *models.HonorRollStreak) error {
	m.streaks[streak.StudentID] = *streak
	return nil
}

func (m *mockStreakRepo) ListActive(ctx context.Context) ([]models.HonorRollStreak, error) {
	var active []models.HonorRollStreak
	for id, streak := range m.streaks {
		if streak.CurrentStreakWeeks > 0 && !m.deadfiled[id] {
			active = append(active, streak)
		}
	}
	return active, nil
}

func (m *mockStreakRepo) ResetCurrent(ctx context.Context, studentID string) error {
	streak := m.streaks[studentID]
	streak.StudentID = studentID
	streak.CurrentStreakWeeks = 0
	m.streaks[studentID] = streak
	return nil
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return ts
}

func TestStreakFirstPassStartsAtOne(t *testing.T) {
	repo := newMockStreakRepo()
	svc := NewStreakService(repo, nil)

	// Wednesday of 2026-W10.
	streak, err := svc.RecordPass(context.Background(), "stu-1", mustDate(t, "2026-03-04"))
	require.NoError(t, err)
	assert.Equal(t, 1, streak.CurrentStreakWeeks)
	assert.Equal(t, 1, streak.LongestStreakWeeks)
	assert.Equal(t, 1, streak.TotalLessonsSubmitted)
	assert.Equal(t, "2026-W10", streak.LastSubmissionWeek)
}

func TestStreakSameWeekOnlyCountsLessons(t *testing.T) {
	repo := newMockStreakRepo()
	svc := NewStreakService(repo, nil)

	_, err := svc.RecordPass(context.Background(), "stu-1", mustDate(t, "2026-03-04"))
	require.NoError(t, err)
	streak, err := svc.RecordPass(context.Background(), "stu-1", mustDate(t, "2026-03-06"))
	require.NoError(t, err)
	assert.Equal(t, 1, streak.CurrentStreakWeeks)
	assert.Equal(t, 2, streak.TotalLessonsSubmitted)
	assert.Equal(t, "2026-W10", streak.LastSubmissionWeek)
}

func TestStreakConsecutiveWeekExtends(t *testing.T) {
	repo := newMockStreakRepo()
	svc := NewStreakService(repo, nil)

	_, err := svc.RecordPass(context.Background(), "stu-1", mustDate(t, "2026-03-04"))
	require.NoError(t, err)
	// Two passes in 2026-W11.
	_, err = svc.RecordPass(context.Background(), "stu-1", mustDate(t, "2026-03-10"))
	require.NoError(t, err)
	streak, err := svc.RecordPass(context.Background(), "stu-1", mustDate(t, "2026-03-12"))
	require.NoError(t, err)
	assert.Equal(t, 2, streak.CurrentStreakWeeks)
	assert.Equal(t, 2, streak.LongestStreakWeeks)
	assert.Equal(t, 3, streak.TotalLessonsSubmitted)
	assert.Equal(t, "2026-W11", streak.LastSubmissionWeek)
}

func TestStreakGapRestartsAtOne(t *testing.T) {
	repo := newMockStreakRepo()
	svc := NewStreakService(repo, nil)

	_, err := svc.RecordPass(context.Background(), "stu-1", mustDate(t, "2026-03-04"))
	require.NoError(t, err)
	_, err = svc.RecordPass(context.Background(), "stu-1", mustDate(t, "2026-03-10"))
	require.NoError(t, err)
	// Skip W12 and W13 entirely, resume in W14.
	streak, err := svc.RecordPass(context.Background(), "stu-1", mustDate(t, "2026-04-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, streak.CurrentStreakWeeks)
	assert.Equal(t, 2, streak.LongestStreakWeeks)
	assert.Equal(t, "2026-W14", streak.LastSubmissionWeek)
}

func TestStreakAcrossYearBoundary(t *testing.T) {
	repo := newMockStreakRepo()
	svc := NewStreakService(repo, nil)

	// 2025-12-24 is in 2025-W52; 2025-12-30 is in 2026-W01.
	_, err := svc.RecordPass(context.Background(), "stu-1", mustDate(t, "2025-12-24"))
	require.NoError(t, err)
	streak, err := svc.RecordPass(context.Background(), "stu-1", mustDate(t, "2025-12-30"))
	require.NoError(t, err)
	assert.Equal(t, 2, streak.CurrentStreakWeeks)
	assert.Equal(t, "2026-W01", streak.LastSubmissionWeek)
}

func TestSweepResetsStaleStreaks(t *testing.T) {
	repo := newMockStreakRepo()
	svc := NewStreakService(repo, nil)

	repo.streaks["stale"] = models.HonorRollStreak{
		StudentID: "stale", CurrentStreakWeeks: 2, LongestStreakWeeks: 2,
		TotalLessonsSubmitted: 3, LastSubmissionWeek: "2026-W11",
	}
	repo.streaks["fresh"] = models.HonorRollStreak{
		StudentID: "fresh", CurrentStreakWeeks: 4, LongestStreakWeeks: 4,
		TotalLessonsSubmitted: 8, LastSubmissionWeek: "2026-W13",
	}

	// Sweep during 2026-W14: W11 is 21 days back, W13 only 7.
	reset, err := svc.Sweep(context.Background(), mustDate(t, "2026-04-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, reset)
	assert.Equal(t, 0, repo.streaks["stale"].CurrentStreakWeeks)
	assert.Equal(t, 2, repo.streaks["stale"].LongestStreakWeeks)
	assert.Equal(t, 4, repo.streaks["fresh"].CurrentStreakWeeks)
}

func TestSweepWithinToleranceKeepsStreak(t *testing.T) {
	repo := newMockStreakRepo()
	svc := NewStreakService(repo, nil)

	// Exactly 7 days of Monday separation: previous week, still safe.
	repo.streaks["stu-1"] = models.HonorRollStreak{
		StudentID: "stu-1", CurrentStreakWeeks: 3, LongestStreakWeeks: 5,
		TotalLessonsSubmitted: 10, LastSubmissionWeek: "2026-W13",
	}
	reset, err := svc.Sweep(context.Background(), mustDate(t, "2026-04-05"))
	require.NoError(t, err)
	assert.Equal(t, 0, reset)
	assert.Equal(t, 3, repo.streaks["stu-1"].CurrentStreakWeeks)
}

func TestSweepIsIdempotent(t *testing.T) {
	repo := newMockStreakRepo()
	svc := NewStreakService(repo, nil)

	repo.streaks["stale"] = models.HonorRollStreak{
		StudentID: "stale", CurrentStreakWeeks: 2, LongestStreakWeeks: 2,
		TotalLessonsSubmitted: 3, LastSubmissionWeek: "2026-W11",
	}
	now := mustDate(t, "2026-04-01")

	first, err := svc.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := svc.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, second)
}

func TestSweepSkipsDeadfiled(t *testing.T) {
	repo := newMockStreakRepo()
	svc := NewStreakService(repo, nil)

	repo.streaks["blocked"] = models.HonorRollStreak{
		StudentID: "blocked", CurrentStreakWeeks: 2, LongestStreakWeeks: 2,
		TotalLessonsSubmitted: 3, LastSubmissionWeek: "2026-W11",
	}
	repo.deadfiled["blocked"] = true

	reset, err := svc.Sweep(context.Background(), mustDate(t, "2026-04-01"))
	require.NoError(t, err)
	assert.Equal(t, 0, reset)
}

func TestZeroKeepsLongest(t *testing.T) {
	repo := newMockStreakRepo()
	svc := NewStreakService(repo, nil)

	repo.streaks["stu-1"] = models.HonorRollStreak{
		StudentID: "stu-1", CurrentStreakWeeks: 6, LongestStreakWeeks: 6,
		TotalLessonsSubmitted: 12, LastSubmissionWeek: "2026-W20",
	}
	require.NoError(t, svc.Zero(context.Background(), "stu-1"))
	assert.Equal(t, 0, repo.streaks["stu-1"].CurrentStreakWeeks)
	assert.Equal(t, 6, repo.streaks["stu-1"].LongestStreakWeeks)
}

func TestStreakInvariantCurrentNeverExceedsLongest(t *testing.T) {
	repo := newMockStreakRepo()
	svc := NewStreakService(repo, nil)

	dates := []string{"2026-03-04", "2026-03-10", "2026-03-18", "2026-04-01", "2026-04-07", "2026-04-15"}
	for _, d := range dates {
		streak, err := svc.RecordPass(context.Background(), "stu-1", mustDate(t, d))
		require.NoError(t, err)
		assert.LessOrEqual(t, streak.CurrentStreakWeeks, streak.LongestStreakWeeks)
	}
}
