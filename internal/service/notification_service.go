package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/opencursus/cursus-api/internal/models"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
	"github.com/opencursus/cursus-api/pkg/jobs"
	"github.com/opencursus/cursus-api/pkg/mailer"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByProfile(ctx context.Context, profileID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, profileID string) (int64, error)
}

type notificationProfileRepo interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// NotificationService persists user-facing notifications and hands email
// delivery to the background queue. Email failures never surface to the
// triggering operation.
type NotificationService struct {
	repo     notificationRepository
	profiles notificationProfileRepo
	queue    jobQueue
	logger   *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationRepository, profiles notificationProfileRepo, queue jobQueue, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, profiles: profiles, queue: queue, logger: logger}
}

// Notify stores a notification row and queues the matching email.
func (s *NotificationService) Notify(ctx context.Context, profileID, subject, body string) error {
	notification := &models.Notification{
		ProfileID: profileID,
		Subject:   subject,
		Body:      body,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store notification")
	}

	if s.queue != nil {
		job := jobs.Job{
			ID:      notification.ID,
			Type:    "notification-email",
			Payload: notification,
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Sugar().Errorw("failed to queue notification email", "notification_id", notification.ID, "error", err)
		}
	}
	return nil
}

// List returns the profile's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, profileID string) ([]models.Notification, error) {
	notifications, err := s.repo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead marks one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, profileID string) error {
	affected, err := s.repo.MarkRead(ctx, id, profileID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// EmailWorker resolves the recipient and sends the notification email. Used
// as the handler of the notification queue.
type EmailWorker struct {
	profiles notificationProfileRepo
	sender   mailer.Sender
	logger   *zap.Logger
}

// NewEmailWorker constructs the worker.
func NewEmailWorker(profiles notificationProfileRepo, sender mailer.Sender, logger *zap.Logger) *EmailWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailWorker{profiles: profiles, sender: sender, logger: logger}
}

// Handle sends one queued notification email.
func (w *EmailWorker) Handle(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(*models.Notification)
	if !ok {
		return fmt.Errorf("unexpected payload for job %s", job.ID)
	}

	profile, err := w.profiles.FindByID(ctx, notification.ProfileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			w.logger.Sugar().Warnw("dropping email for unknown profile", "profile_id", notification.ProfileID)
			return nil
		}
		return fmt.Errorf("load recipient: %w", err)
	}

	return w.sender.Send(ctx, mailer.Message{
		ToName:    profile.FullName,
		ToAddress: profile.Email,
		Subject:   notification.Subject,
		Body:      notification.Body,
	})
}
