package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencursus/cursus-api/internal/models"
)

// NotificationRepository handles notification persistence.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification row.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO notifications (id, profile_id, subject, body, created_at)
        VALUES (:id, :profile_id, :subject, :body, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByProfile returns the profile's notifications, newest first.
func (r *NotificationRepository) ListByProfile(ctx context.Context, profileID string) ([]models.Notification, error) {
	var notifications []models.Notification
	const query = `SELECT id, profile_id, subject, body, read_at, created_at
        FROM notifications WHERE profile_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &notifications, query, profileID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead stamps the notification as read. Scoped to the owner so one user
// cannot mark another's notifications.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, profileID string) (int64, error) {
	const query = `UPDATE notifications SET read_at = $3 WHERE id = $1 AND profile_id = $2 AND read_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, profileID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark notification read: %w", err)
	}
	return affected, nil
}
