package handler

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencursus/cursus-api/internal/middleware"
	"github.com/opencursus/cursus-api/internal/models"
	"github.com/opencursus/cursus-api/internal/service"
)

type honorRollRepoStub struct {
	public []models.LeaderboardEntry
	staff  []models.LeaderboardEntry
}

func (s *honorRollRepoStub) TopStreaks(ctx context.Context, staff bool, limit int) ([]models.LeaderboardEntry, error) {
	if staff {
		return s.staff, nil
	}
	return s.public, nil
}

func (s *honorRollRepoStub) HallOfFame(ctx context.Context, category models.CourseCategory) ([]models.HallOfFameEntry, error) {
	return nil, nil
}

func (s *honorRollRepoStub) MonthlyLessonCounts(ctx context.Context, from, to time.Time) ([]models.MonthlyLessonCount, error) {
	return nil, nil
}

func leaderboardRequest(t *testing.T, query string, claims *models.JWTClaims) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := service.NewHonorRollService(&honorRollRepoStub{
		public: []models.LeaderboardEntry{{StudentID: "stu-1", StudentName: "Alice", CurrentStreakWeeks: 4}},
		staff:  []models.LeaderboardEntry{{StudentID: "staff-1", StudentName: "Bob", CurrentStreakWeeks: 2}},
	}, nil, service.HonorRollConfig{}, nil)
	h := NewHonorRollHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/honor-roll/leaderboard"+query, nil)
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}

	h.Leaderboard(c)
	return w
}

func TestLeaderboardDefaultsToPublic(t *testing.T) {
	w := leaderboardRequest(t, "", &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alice")
	assert.NotContains(t, w.Body.String(), "Bob")
}

func TestLeaderboardStaffBoardRequiresAccess(t *testing.T) {
	w := leaderboardRequest(t, "?audience=staff", &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = leaderboardRequest(t, "?audience=staff", &models.JWTClaims{UserID: "sup-1", Role: models.RoleSupervisor})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Bob")
}

func TestLeaderboardRejectsUnknownAudience(t *testing.T) {
	w := leaderboardRequest(t, "?audience=everyone", &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeaderboardExportRendersCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := service.NewHonorRollService(&honorRollRepoStub{
		public: []models.LeaderboardEntry{{StudentID: "stu-1", StudentName: "Alice", CurrentStreakWeeks: 4, LongestStreakWeeks: 6, TotalLessonsSubmitted: 12}},
	}, nil, service.HonorRollConfig{}, nil)
	h := NewHonorRollHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/honor-roll/leaderboard/export", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))

	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"1", "Alice", "4", "6", "12"}, records[1])
}
