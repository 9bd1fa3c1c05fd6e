package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	appErrors "github.com/opencursus/cursus-api/pkg/errors"
	"github.com/opencursus/cursus-api/pkg/response"
)

// SweepToken guards the maintenance sweep endpoint with a shared secret so the
// scheduler can call it without a user session. An empty configured token
// disables the endpoint entirely.
func SweepToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "sweep endpoint disabled"))
			c.Abort()
			return
		}

		provided := c.GetHeader("X-Sweep-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
