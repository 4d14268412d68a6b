package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// NotificationRepository stores per-user in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, error)
	// MarkRead flags the notification as read when it belongs to userID.
	MarkRead(ctx context.Context, id, userID int64) error
}

type notificationRepository struct {
	db DBTX
}

// NewNotificationRepository constructs repository.
func NewNotificationRepository(db DBTX) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, message, is_read)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		notification.UserID,
		notification.Message,
		notification.IsRead,
	).Scan(&notification.ID, &notification.CreatedAt)
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, error) {
	limit, offset = normalizeLimit(limit, offset, 50)
	const query = `
        SELECT id, user_id, message, is_read, created_at
        FROM notifications WHERE user_id=$1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE notifications SET is_read=TRUE WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
