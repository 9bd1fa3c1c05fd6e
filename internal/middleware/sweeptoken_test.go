package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func sweepRequest(t *testing.T, configured, provided string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/streaks/sweep", nil)
	if provided != "" {
		req.Header.Set("X-Sweep-Token", provided)
	}
	c.Request = req

	SweepToken(configured)(c)
	return w
}

func TestSweepTokenAcceptsMatch(t *testing.T) {
	w := sweepRequest(t, "secret", "secret")
	require.NotEqual(t, http.StatusUnauthorized, w.Code)
	require.NotEqual(t, http.StatusForbidden, w.Code)
}

func TestSweepTokenRejectsMismatch(t *testing.T) {
	w := sweepRequest(t, "secret", "wrong")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSweepTokenRejectsMissingHeader(t *testing.T) {
	w := sweepRequest(t, "secret", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSweepTokenDisabledWhenUnconfigured(t *testing.T) {
	w := sweepRequest(t, "", "anything")
	require.Equal(t, http.StatusForbidden, w.Code)
}
