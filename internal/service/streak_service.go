package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/opencursus/cursus-api/internal/models"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
	"github.com/opencursus/cursus-api/pkg/isoweek"
)

// sweepGapTolerance is the age of last_submission_week beyond which the sweep
// zeroes a streak. Thirteen days rather than a strict week comparison absorbs
// week-boundary skew: a Monday submission followed by silence until the
// Sunday after next still counts as missing a full week.
const sweepGapTolerance = 13 * 24 * time.Hour

type streakRepo interface {
	Find(ctx context.Context, studentID string) (*models.HonorRollStreak, error)
	Upsert(ctx context.Context, streak *models.HonorRollStreak) error
	ListActive(ctx context.Context) ([]models.HonorRollStreak, error)
	ResetCurrent(ctx context.Context, studentID string) error
}

// StreakService keeps weekly activity streaks consistent with submission
// history and calendar time.
type StreakService struct {
	repo   streakRepo
	logger *zap.Logger
}

// NewStreakService constructs the service.
func NewStreakService(repo streakRepo, logger *zap.Logger) *StreakService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreakService{repo: repo, logger: logger}
}

// RecordPass applies one passed-lesson event at the given time. Repeat passes
// within the same ISO week grow the lesson total without touching the streak;
// a pass in the week right after the last one extends the streak; anything
// older restarts it at 1.
func (s *StreakService) RecordPass(ctx context.Context, studentID string, at time.Time) (*models.HonorRollStreak, error) {
	week := isoweek.Format(at)

	streak, err := s.repo.Find(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			streak = &models.HonorRollStreak{
				StudentID:             studentID,
				CurrentStreakWeeks:    1,
				LongestStreakWeeks:    1,
				TotalLessonsSubmitted: 1,
				LastSubmissionWeek:    week,
			}
			if err := s.repo.Upsert(ctx, streak); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create streak")
			}
			return streak, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load streak")
	}

	streak.TotalLessonsSubmitted++
	switch {
	case streak.LastSubmissionWeek == week:
		// Already counted this week.
	default:
		previous, err := isoweek.Previous(week)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute previous week")
		}
		if streak.LastSubmissionWeek == previous {
			streak.CurrentStreakWeeks++
		} else {
			streak.CurrentStreakWeeks = 1
		}
		streak.LastSubmissionWeek = week
	}
	if streak.CurrentStreakWeeks > streak.LongestStreakWeeks {
		streak.LongestStreakWeeks = streak.CurrentStreakWeeks
	}

	if err := s.repo.Upsert(ctx, streak); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update streak")
	}
	return streak, nil
}

// Get returns the student's streak, or a zero-valued record when none exists.
func (s *StreakService) Get(ctx context.Context, studentID string) (*models.HonorRollStreak, error) {
	streak, err := s.repo.Find(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.HonorRollStreak{StudentID: studentID}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load streak")
	}
	return streak, nil
}

// Sweep zeroes the current streak of every active, non-deadfiled student whose
// last submission week is stale at the given moment. Idempotent: zeroed rows
// leave the active set, so a rerun for the same moment is a no-op. Individual
// row failures are logged and skipped so one bad row cannot abort the batch.
func (s *StreakService) Sweep(ctx context.Context, now time.Time) (int, error) {
	currentMonday, err := isoweek.Monday(isoweek.Format(now))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve current week")
	}

	streaks, err := s.repo.ListActive(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active streaks")
	}

	reset := 0
	for _, streak := range streaks {
		lastMonday, err := isoweek.Monday(streak.LastSubmissionWeek)
		if err != nil {
			s.logger.Sugar().Warnw("skipping streak with bad week label",
				"student_id", streak.StudentID, "week", streak.LastSubmissionWeek, "error", err)
			continue
		}
		if currentMonday.Sub(lastMonday) <= sweepGapTolerance {
			continue
		}
		if err := s.repo.ResetCurrent(ctx, streak.StudentID); err != nil {
			s.logger.Sugar().Errorw("failed to reset streak", "student_id", streak.StudentID, "error", err)
			continue
		}
		reset++
	}

	s.logger.Sugar().Infow("streak sweep finished", "examined", len(streaks), "reset", reset)
	return reset, nil
}

// Zero force-resets the student's current streak, used the moment a profile is
// deadfiled. A missing streak row is fine.
func (s *StreakService) Zero(ctx context.Context, studentID string) error {
	if err := s.repo.ResetCurrent(ctx, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to zero streak")
	}
	return nil
}
