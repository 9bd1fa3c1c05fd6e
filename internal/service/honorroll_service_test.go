package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencursus/cursus-api/internal/models"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
)

type mockHonorRollRepo struct {
	public  []models.LeaderboardEntry
	staff   []models.LeaderboardEntry
	fame    map[models.CourseCategory][]models.HallOfFameEntry
	monthly []models.MonthlyLessonCount
	calls   int
}

func (m *mockHonorRollRepo) TopStreaks(ctx context.Context, staff bool, limit int) ([]models.LeaderboardEntry, error) {
	m.calls++
	if staff {
		return m.staff, nil
	}
	if limit < len(m.public) {
		return m.public[:limit], nil
	}
	return m.public, nil
}

func (m *mockHonorRollRepo) HallOfFame(ctx context.Context, category models.CourseCategory) ([]models.HallOfFameEntry, error) {
	m.calls++
	return m.fame[category], nil
}

func (m *mockHonorRollRepo) MonthlyLessonCounts(ctx context.Context, from, to time.Time) ([]models.MonthlyLessonCount, error) {
	m.calls++
	return m.monthly, nil
}

type memoryCache struct {
	values map[string][]byte
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.values = nil
	return nil
}

func TestLeaderboardPartitionsByAudience(t *testing.T) {
	repo := &mockHonorRollRepo{
		public: []models.LeaderboardEntry{{StudentID: "stu-1", StudentName: "Alice", CurrentStreakWeeks: 5}},
		staff:  []models.LeaderboardEntry{{StudentID: "staff-1", StudentName: "Bob", CurrentStreakWeeks: 3}},
	}
	svc := NewHonorRollService(repo, nil, HonorRollConfig{}, nil)

	public, err := svc.Leaderboard(context.Background(), models.AudiencePublic)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "Alice", public[0].StudentName)

	staff, err := svc.Leaderboard(context.Background(), models.AudienceStaff)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, "Bob", staff[0].StudentName)
}

func TestLeaderboardUsesCache(t *testing.T) {
	repo := &mockHonorRollRepo{
		public: []models.LeaderboardEntry{{StudentID: "stu-1", StudentName: "Alice", CurrentStreakWeeks: 5}},
	}
	cache := &memoryCache{}
	svc := NewHonorRollService(repo, cache, HonorRollConfig{CacheEnabled: true}, nil)

	_, err := svc.Leaderboard(context.Background(), models.AudiencePublic)
	require.NoError(t, err)
	entries, err := svc.Leaderboard(context.Background(), models.AudiencePublic)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, repo.calls)
}

func TestInvalidateDropsCachedViews(t *testing.T) {
	repo := &mockHonorRollRepo{
		public: []models.LeaderboardEntry{{StudentID: "stu-1", StudentName: "Alice", CurrentStreakWeeks: 5}},
	}
	cache := &memoryCache{}
	svc := NewHonorRollService(repo, cache, HonorRollConfig{CacheEnabled: true}, nil)

	_, err := svc.Leaderboard(context.Background(), models.AudiencePublic)
	require.NoError(t, err)
	svc.Invalidate(context.Background())
	_, err = svc.Leaderboard(context.Background(), models.AudiencePublic)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestHallOfFameGroupsByCategory(t *testing.T) {
	repo := &mockHonorRollRepo{fame: map[models.CourseCategory][]models.HallOfFameEntry{
		models.CategoryBasics: {{StudentName: "Alice", CompletedAt: "2026-03-01"}},
	}}
	svc := NewHonorRollService(repo, nil, HonorRollConfig{}, nil)

	fame, err := svc.HallOfFame(context.Background())
	require.NoError(t, err)
	assert.Len(t, fame[models.CategoryBasics], 1)
	assert.Empty(t, fame[models.CategoryCongresses])
	assert.Empty(t, fame[models.CategoryAccs])
}

func TestMVPPicksBusiestPerPartition(t *testing.T) {
	repo := &mockHonorRollRepo{monthly: []models.MonthlyLessonCount{
		{StudentID: "stu-1", StudentName: "Alice", IsStaff: false, Lessons: 9},
		{StudentID: "stu-2", StudentName: "Carol", IsStaff: false, Lessons: 4},
		{StudentID: "staff-1", StudentName: "Bob", IsStaff: true, Lessons: 6},
	}}
	svc := NewHonorRollService(repo, nil, HonorRollConfig{}, nil)

	result, err := svc.MVP(context.Background(), "2026-03")
	require.NoError(t, err)
	assert.Equal(t, "2026-03", result.Month)
	require.NotNil(t, result.PublicMVP)
	assert.Equal(t, "Alice", result.PublicMVP.Name)
	assert.Equal(t, 9, result.PublicMVP.Lessons)
	require.NotNil(t, result.StaffMVP)
	assert.Equal(t, "Bob", result.StaffMVP.Name)
}

func TestMVPTieYieldsNoWinner(t *testing.T) {
	repo := &mockHonorRollRepo{monthly: []models.MonthlyLessonCount{
		{StudentID: "stu-1", StudentName: "Alice", IsStaff: false, Lessons: 5},
		{StudentID: "stu-2", StudentName: "Carol", IsStaff: false, Lessons: 5},
	}}
	svc := NewHonorRollService(repo, nil, HonorRollConfig{}, nil)

	result, err := svc.MVP(context.Background(), "2026-03")
	require.NoError(t, err)
	assert.Nil(t, result.PublicMVP)
	assert.Nil(t, result.StaffMVP)
}

func TestMVPRejectsBadMonth(t *testing.T) {
	svc := NewHonorRollService(&mockHonorRollRepo{}, nil, HonorRollConfig{}, nil)

	_, err := svc.MVP(context.Background(), "March 2026")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLeaderboardDataset(t *testing.T) {
	repo := &mockHonorRollRepo{public: []models.LeaderboardEntry{
		{StudentID: "stu-1", StudentName: "Alice", CurrentStreakWeeks: 5, LongestStreakWeeks: 8, TotalLessonsSubmitted: 40},
	}}
	svc := NewHonorRollService(repo, nil, HonorRollConfig{}, nil)

	dataset, err := svc.LeaderboardDataset(context.Background(), models.AudiencePublic)
	require.NoError(t, err)
	require.Len(t, dataset.Rows, 1)
	assert.Equal(t, []string{"1", "Alice", "5", "8", "40"}, dataset.Rows[0])
}
