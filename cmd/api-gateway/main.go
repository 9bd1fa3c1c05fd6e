package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/opencursus/cursus-api/internal/handler"
	"github.com/opencursus/cursus-api/internal/middleware"
	"github.com/opencursus/cursus-api/internal/repository"
	"github.com/opencursus/cursus-api/internal/service"
	"github.com/opencursus/cursus-api/pkg/cache"
	"github.com/opencursus/cursus-api/pkg/config"
	"github.com/opencursus/cursus-api/pkg/database"
	"github.com/opencursus/cursus-api/pkg/jobs"
	"github.com/opencursus/cursus-api/pkg/logger"
	"github.com/opencursus/cursus-api/pkg/mailer"
	corsmiddleware "github.com/opencursus/cursus-api/pkg/middleware/cors"
	reqidmiddleware "github.com/opencursus/cursus-api/pkg/middleware/requestid"
	"github.com/opencursus/cursus-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Warnw("redis unavailable, honor roll cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// Repositories.
	profileRepo := repository.NewProfileRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	streakRepo := repository.NewStreakRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)
	routeRepo := repository.NewRouteRepository(db)
	honorRollRepo := repository.NewHonorRollRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Outbound email and the notification dispatch queue.
	var sender mailer.Sender = mailer.NewConsoleSender(logr)
	if cfg.Mail.Enabled {
		sender = mailer.NewSendgridSender(cfg.Mail.SendgridKey, cfg.Mail.FromName, cfg.Mail.FromAddress)
	}
	emailWorker := service.NewEmailWorker(profileRepo, sender, logr)
	emailHandler := func(ctx context.Context, job jobs.Job) error {
		err := emailWorker.Handle(ctx, job)
		metricsSvc.CountEmail(err == nil)
		return err
	}
	queue := jobs.NewQueue("notifications", emailHandler, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})

	// Services.
	authSvc := service.NewAuthService(profileRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, validate, logr)
	streakSvc := service.NewStreakService(streakRepo, logr)
	progressionSvc := service.NewProgressionService(courseRepo, submissionRepo, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, profileRepo, queue, logr)
	routeSvc := service.NewRouteService(routeRepo, profileRepo, courseRepo, certificateRepo, logr)
	certificateSvc := service.NewCertificateService(certificateRepo, notificationSvc, routeSvc, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, courseRepo, enrollmentRepo,
		progressionSvc, streakSvc, certificateSvc, validate, logr)
	profileSvc := service.NewProfileService(profileRepo, streakSvc, logr)
	honorRollSvc := service.NewHonorRollService(honorRollRepo, cacheRepo, service.HonorRollConfig{
		CacheEnabled:      cfg.HonorRoll.CacheEnabled && redisClient != nil,
		CacheTTL:          cfg.HonorRoll.CacheTTL,
		LeaderboardWindow: cfg.HonorRoll.LeaderboardWindow,
		Metrics:           metricsSvc,
	}, logr)

	assets := storage.NewResolver(cfg.Assets.PublicBaseURL, cfg.Assets.SignedURLSecret, cfg.Assets.SignedURLTTL)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Course:       handler.NewCourseHandler(courseSvc),
		Enrollment:   handler.NewEnrollmentHandler(enrollmentSvc),
		Submission:   handler.NewSubmissionHandler(submissionSvc, assets, honorRollSvc, metricsSvc),
		Certificate:  handler.NewCertificateHandler(certificateSvc, honorRollSvc, metricsSvc),
		HonorRoll:    handler.NewHonorRollHandler(honorRollSvc),
		Streak:       handler.NewStreakHandler(streakSvc, metricsSvc),
		Route:        handler.NewRouteHandler(routeSvc, metricsSvc),
		Notification: handler.NewNotificationHandler(notificationSvc),
		Profile:      handler.NewProfileHandler(profileSvc),
		AuthService:  authSvc,
		SweepToken:   cfg.Streaks.SweepToken,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)

	scheduler := cron.New()
	if cfg.Streaks.SweepEnabled {
		_, err := scheduler.AddFunc(cfg.Streaks.SweepSchedule, func() {
			start := time.Now()
			reset, err := streakSvc.Sweep(context.Background(), time.Now().UTC())
			if err != nil {
				sugar.Errorw("scheduled streak sweep failed", "error", err)
				return
			}
			metricsSvc.ObserveSweep(reset, time.Since(start))
			sugar.Infow("streak sweep finished", "reset", reset)
		})
		if err != nil {
			sugar.Fatalw("invalid sweep schedule", "schedule", cfg.Streaks.SweepSchedule, "error", err)
		}
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("server shutdown failed", "error", err)
	}

	cronCtx := scheduler.Stop()
	<-cronCtx.Done()
	queue.Stop()
	if err := cacheRepo.Close(); err != nil {
		sugar.Warnw("closing redis failed", "error", err)
	}
}
