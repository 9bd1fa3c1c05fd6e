package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opencursus/cursus-api/internal/models"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
	"github.com/opencursus/cursus-api/pkg/export"
)

type honorRollRepo interface {
	TopStreaks(ctx context.Context, staff bool, limit int) ([]models.LeaderboardEntry, error)
	HallOfFame(ctx context.Context, category models.CourseCategory) ([]models.HallOfFameEntry, error)
	MonthlyLessonCounts(ctx context.Context, from, to time.Time) ([]models.MonthlyLessonCount, error)
}

type honorRollCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// HonorRollConfig tunes the aggregator's cache and window sizes. Metrics is
// optional; cache lookups are counted when it is set.
type HonorRollConfig struct {
	CacheEnabled      bool
	CacheTTL          time.Duration
	LeaderboardWindow int
	Metrics           *MetricsService
}

// HonorRollService builds the read-only leaderboard, hall-of-fame and monthly
// MVP views. Deadfiled students are excluded at the query level, so nothing
// here needs to re-filter them.
type HonorRollService struct {
	repo   honorRollRepo
	cache  honorRollCache
	cfg    HonorRollConfig
	logger *zap.Logger
}

// NewHonorRollService constructs the service.
func NewHonorRollService(repo honorRollRepo, cache honorRollCache, cfg HonorRollConfig, logger *zap.Logger) *HonorRollService {
	if cfg.LeaderboardWindow <= 0 {
		cfg.LeaderboardWindow = 200
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HonorRollService{repo: repo, cache: cache, cfg: cfg, logger: logger}
}

// Leaderboard returns the top streak window for one audience partition.
// Staff visibility is enforced by the caller; this only shapes the data.
func (s *HonorRollService) Leaderboard(ctx context.Context, audience models.Audience) ([]models.LeaderboardEntry, error) {
	key := fmt.Sprintf("honorroll:leaderboard:%s", audience)
	var cached []models.LeaderboardEntry
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	entries, err := s.repo.TopStreaks(ctx, audience == models.AudienceStaff, s.cfg.LeaderboardWindow)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build leaderboard")
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	s.cacheSet(ctx, key, entries)
	return entries, nil
}

// HallOfFame returns, per category, the students who completed every
// published course in that lineup.
func (s *HonorRollService) HallOfFame(ctx context.Context) (map[models.CourseCategory][]models.HallOfFameEntry, error) {
	const key = "honorroll:halloffame"
	var cached map[models.CourseCategory][]models.HallOfFameEntry
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	result := make(map[models.CourseCategory][]models.HallOfFameEntry, len(models.Categories))
	for _, category := range models.Categories {
		entries, err := s.repo.HallOfFame(ctx, category)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build hall of fame")
		}
		if entries == nil {
			entries = []models.HallOfFameEntry{}
		}
		result[category] = entries
	}
	s.cacheSet(ctx, key, result)
	return result, nil
}

// MVP names the most active student of the month for each audience partition.
// Month is "YYYY-MM"; empty defaults to the current month. A partition with no
// activity, or a tie at the top, yields no winner.
func (s *HonorRollService) MVP(ctx context.Context, month string) (*models.MVPResult, error) {
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	}
	from, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be formatted as YYYY-MM")
	}
	to := from.AddDate(0, 1, 0)

	key := fmt.Sprintf("honorroll:mvp:%s", month)
	var cached models.MVPResult
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	counts, err := s.repo.MonthlyLessonCounts(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute monthly activity")
	}

	result := &models.MVPResult{
		Month:     month,
		PublicMVP: pickMVP(counts, false),
		StaffMVP:  pickMVP(counts, true),
	}
	s.cacheSet(ctx, key, result)
	return result, nil
}

// pickMVP returns the partition's single busiest student, or nil when the
// partition is empty or the lead is shared.
func pickMVP(counts []models.MonthlyLessonCount, staff bool) *models.MVP {
	var top *models.MonthlyLessonCount
	tied := false
	for i := range counts {
		c := &counts[i]
		if c.IsStaff != staff {
			continue
		}
		switch {
		case top == nil || c.Lessons > top.Lessons:
			top = c
			tied = false
		case c.Lessons == top.Lessons:
			tied = true
		}
	}
	if top == nil || tied {
		return nil
	}
	return &models.MVP{Name: top.StudentName, Lessons: top.Lessons}
}

// LeaderboardDataset shapes the leaderboard as a flat dataset for CSV export.
func (s *HonorRollService) LeaderboardDataset(ctx context.Context, audience models.Audience) (*export.Dataset, error) {
	entries, err := s.Leaderboard(ctx, audience)
	if err != nil {
		return nil, err
	}
	dataset := &export.Dataset{
		Name:    fmt.Sprintf("leaderboard-%s", audience),
		Headers: []string{"rank", "student", "current_streak_weeks", "longest_streak_weeks", "total_lessons_submitted"},
	}
	for i, entry := range entries {
		dataset.Rows = append(dataset.Rows, []string{
			fmt.Sprintf("%d", i+1),
			entry.StudentName,
			fmt.Sprintf("%d", entry.CurrentStreakWeeks),
			fmt.Sprintf("%d", entry.LongestStreakWeeks),
			fmt.Sprintf("%d", entry.TotalLessonsSubmitted),
		})
	}
	return dataset, nil
}

// Invalidate drops every cached honor roll view. Called after events that
// change standings: a graded pass or a sealed certificate.
func (s *HonorRollService) Invalidate(ctx context.Context) {
	if !s.cfg.CacheEnabled || s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "honorroll:*"); err != nil {
		s.logger.Sugar().Warnw("honor roll cache invalidation failed", "error", err)
	}
}

func (s *HonorRollService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if !s.cfg.CacheEnabled || s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	s.cfg.Metrics.RecordCacheLookup(err == nil)
	if err == nil {
		return true
	}
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Sugar().Warnw("honor roll cache read failed", "key", key, "error", err)
	}
	return false
}

func (s *HonorRollService) cacheSet(ctx context.Context, key string, value interface{}) {
	if !s.cfg.CacheEnabled || s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Sugar().Warnw("honor roll cache write failed", "key", key, "error", err)
	}
}
