package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/opencursus/cursus-api/internal/models"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
	"github.com/opencursus/cursus-api/pkg/response"
)

// Capability names accepted by RequireCapability.
const (
	CapAttestCertificates = "attest_certificates"
	CapSealCertificates   = "seal_certificates"
	CapManageCourses      = "manage_courses"
	CapGradeSubmissions   = "grade_submissions"
	CapViewStaffBoard     = "view_staff_board"
)

// RequireCapability blocks callers whose resolved capabilities lack the named
// right. It must run after JWT.
func RequireCapability(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if !hasCapability(claims.Capabilities(), name) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

func hasCapability(caps models.Capabilities, name string) bool {
	switch name {
	case CapAttestCertificates:
		return caps.CanAttestCertificates
	case CapSealCertificates:
		return caps.CanSealCertificates
	case CapManageCourses:
		return caps.CanManageCourses
	case CapGradeSubmissions:
		return caps.CanGradeSubmissions
	case CapViewStaffBoard:
		return caps.CanViewStaffBoard
	}
	return false
}
