package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/opencursus/cursus-api/internal/middleware"
	"github.com/opencursus/cursus-api/internal/service"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth         *AuthHandler
	Course       *CourseHandler
	Enrollment   *EnrollmentHandler
	Submission   *SubmissionHandler
	Certificate  *CertificateHandler
	HonorRoll    *HonorRollHandler
	Streak       *StreakHandler
	Route        *RouteHandler
	Notification *NotificationHandler
	Profile      *ProfileHandler
	AuthService  *service.AuthService
	SweepToken   string
}

// RegisterRoutes mounts all API routes under the given prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	api := r.Group(prefix)

	authn := middleware.JWT(h.AuthService)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/register", h.Auth.Register)
		auth.GET("/me", authn, h.Auth.Me)
	}

	courses := api.Group("/courses", authn)
	{
		courses.GET("", h.Course.List)
		courses.GET("/:id", h.Course.Get)
		courses.GET("/:id/lessons", h.Course.ListLessons)
		courses.GET("/:id/next", h.Route.NextCourse)

		manage := courses.Group("", middleware.RequireCapability(middleware.CapManageCourses))
		{
			manage.POST("", h.Course.Create)
			manage.PUT("/:id", h.Course.Update)
			manage.POST("/:id/lessons", h.Course.AddLesson)
		}
	}

	lessons := api.Group("/lessons", authn)
	{
		lessons.GET("/:id/questions", h.Course.ListQuestions)
		lessons.POST("/:id/submissions", h.Submission.StartDraft)
		lessons.GET("/:id/submissions/mine", h.Submission.Mine)

		manage := lessons.Group("", middleware.RequireCapability(middleware.CapManageCourses))
		{
			manage.POST("/:id/questions", h.Course.AddQuestion)
			manage.DELETE("/:id", h.Course.RemoveLesson)
		}
	}

	submissions := api.Group("/submissions", authn)
	{
		submissions.PUT("/:id/answers", h.Submission.SaveAnswer)
		submissions.POST("/:id/submit", h.Submission.Submit)

		grading := submissions.Group("", middleware.RequireCapability(middleware.CapGradeSubmissions))
		{
			grading.GET("/:id/review", h.Submission.Review)
			grading.POST("/:id/grade", h.Submission.Grade)
		}
	}

	enrollments := api.Group("/enrollments")
	{
		enrollments.POST("", authn, h.Enrollment.Enroll)
		enrollments.GET("/mine", authn, h.Enrollment.Mine)
		// Payment provider event consumer, no user session.
		enrollments.POST("/orders/paid", h.Enrollment.PaidOrder)

		manage := enrollments.Group("", authn, middleware.RequireCapability(middleware.CapManageCourses))
		{
			manage.POST("/:id/verify", h.Enrollment.VerifyInvoice)
			manage.POST("/:id/reject", h.Enrollment.RejectInvoice)
		}
	}

	certificates := api.Group("/certificates", authn)
	{
		certificates.GET("/mine", h.Certificate.Mine)
		certificates.GET("/:id", h.Certificate.Get)
		certificates.GET("/:id/pdf", h.Certificate.Download)

		attest := certificates.Group("", middleware.RequireCapability(middleware.CapAttestCertificates))
		{
			attest.GET("", h.Certificate.Queue)
			attest.POST("/:id/attest", h.Certificate.Attest)
			attest.PUT("/:id/mail-status", h.Certificate.SetMailStatus)
		}
		certificates.POST("/:id/seal", middleware.RequireCapability(middleware.CapSealCertificates), h.Certificate.Seal)
		certificates.POST("/backenter", middleware.RequireCapability(middleware.CapManageCourses), h.Certificate.BackEnter)
	}

	honorroll := api.Group("/honor-roll", authn)
	{
		honorroll.GET("/leaderboard", h.HonorRoll.Leaderboard)
		honorroll.GET("/leaderboard/export", h.HonorRoll.Export)
		honorroll.GET("/hall-of-fame", h.HonorRoll.HallOfFame)
		honorroll.GET("/mvp", h.HonorRoll.MVP)
	}

	streaks := api.Group("/streaks")
	{
		streaks.GET("/mine", authn, h.Streak.Mine)
		streaks.GET("/:id", authn, middleware.RequireCapability(middleware.CapGradeSubmissions), h.Streak.Get)
		streaks.POST("/sweep", middleware.SweepToken(h.SweepToken), h.Streak.Sweep)
	}

	routes := api.Group("/routes", authn, middleware.RequireCapability(middleware.CapManageCourses))
	{
		routes.GET("", h.Route.List)
		routes.GET("/:id", h.Route.Get)
		routes.POST("", h.Route.Create)
		routes.POST("/:id/courses", h.Route.AddCourse)
	}

	notifications := api.Group("/notifications", authn)
	{
		notifications.GET("", h.Notification.Mine)
		notifications.POST("/:id/read", h.Notification.MarkRead)
	}

	profiles := api.Group("/profiles", authn, middleware.RequireCapability(middleware.CapManageCourses))
	{
		profiles.GET("/:id", h.Profile.Get)
		profiles.PUT("/:id/role", h.Profile.UpdateRole)
		profiles.PUT("/:id/staff", h.Profile.SetStaff)
		profiles.PUT("/:id/deadfile", h.Profile.SetDeadfiled)
		profiles.PUT("/:id/certificate-permissions", h.Profile.SetCertificatePermissions)
		profiles.PUT("/:id/supervisor", h.Profile.AssignSupervisor)
		profiles.PUT("/:id/study-route", h.Profile.AssignStudyRoute)
	}
}
