package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// NotificationAdapter implements out.NotificationRepository using PostgreSQL.
type NotificationAdapter struct {
	db *sqlx.DB
}

// NewNotificationAdapter creates a new notification adapter.
func NewNotificationAdapter(db *sqlx.DB) *NotificationAdapter {
	return &NotificationAdapter{db: db}
}

// notificationRow represents the database row.
type notificationRow struct {
	ID             int64         `db:"id"`
	UserID         uuid.UUID     `db:"user_id"`
	SubscriptionID uuid.NullUUID `db:"subscription_id"`
	Type           string        `db:"type"`
	Title          string        `db:"title"`
	Message        string        `db:"message"`
	Data           []byte        `db:"data"`
	IsRead         bool          `db:"read"`
	ReadAt         sql.NullTime  `db:"read_at"`
	CreatedAt      time.Time     `db:"created_at"`
}

const notificationColumns = `id, user_id, subscription_id, type, title, message, data, read, read_at, created_at`

func (r *notificationRow) toDomain() *domain.Notification {
	n := &domain.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Type:      domain.NotificationType(r.Type),
		Title:     r.Title,
		Message:   r.Message,
		IsRead:    r.IsRead,
		CreatedAt: r.CreatedAt,
	}

	if r.SubscriptionID.Valid {
		id := r.SubscriptionID.UUID
		n.SubscriptionID = &id
	}
	if r.ReadAt.Valid {
		n.ReadAt = &r.ReadAt.Time
	}
	if len(r.Data) > 0 {
		json.Unmarshal(r.Data, &n.Data)
	}

	return n
}

// Create creates a new notification.
func (a *NotificationAdapter) Create(ctx context.Context, notification *domain.Notification) error {
	var dataBytes []byte
	if notification.Data != nil {
		dataBytes, _ = json.Marshal(notification.Data)
	}

	var subID uuid.NullUUID
	if notification.SubscriptionID != nil {
		subID = uuid.NullUUID{UUID: *notification.SubscriptionID, Valid: true}
	}

	query := `
		INSERT INTO notifications (user_id, subscription_id, type, title, message, data, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`

	return a.db.QueryRowContext(ctx,
		query,
		notification.UserID,
		subID,
		string(notification.Type),
		notification.Title,
		notification.Message,
		dataBytes,
		notification.IsRead,
	).Scan(&notification.ID, &notification.CreatedAt)
}

// List lists notifications with filter.
func (a *NotificationAdapter) List(ctx context.Context, filter *domain.NotificationFilter) ([]*domain.Notification, int, error) {
	baseQuery := `FROM notifications WHERE user_id = $1`
	args := []any{filter.UserID}

	if filter.Type != nil {
		args = append(args, string(*filter.Type))
		baseQuery += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if filter.IsRead != nil {
		args = append(args, *filter.IsRead)
		baseQuery += fmt.Sprintf(` AND read = $%d`, len(args))
	}

	// Count total
	var total int
	if err := a.db.GetContext(ctx, &total, `SELECT COUNT(*) `+baseQuery, args...); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	selectQuery := fmt.Sprintf(`SELECT %s %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		notificationColumns, baseQuery, len(args)-1, len(args))

	var rows []notificationRow
	if err := a.db.SelectContext(ctx, &rows, selectQuery, args...); err != nil {
		return nil, 0, err
	}

	notifications := make([]*domain.Notification, len(rows))
	for i := range rows {
		notifications[i] = rows[i].toDomain()
	}

	return notifications, total, nil
}

// MarkAsRead marks a notification as read.
func (a *NotificationAdapter) MarkAsRead(ctx context.Context, userID uuid.UUID, id int64) error {
	_, err := a.db.ExecContext(ctx,
		`UPDATE notifications SET read = true, read_at = NOW() WHERE id = $1 AND user_id = $2 AND read = false`,
		id, userID)
	return err
}

// MarkAllAsRead marks all notifications as read for a user.
func (a *NotificationAdapter) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	_, err := a.db.ExecContext(ctx, `UPDATE notifications SET read = true, read_at = NOW() WHERE user_id = $1 AND read = false`, userID)
	return err
}

// CountUnread returns the count of unread notifications.
func (a *NotificationAdapter) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := a.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = false`, userID)
	return count, err
}

func (a *NotificationAdapter) ExistsSince(ctx context.Context, userID, subscriptionID uuid.UUID, t domain.NotificationType, since time.Time) (bool, error) {
	var exists bool
	err := a.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE user_id = $1 AND subscription_id = $2 AND type = $3 AND created_at >= $4
		)`, userID, subscriptionID, string(t), since)
	return exists, err
}

// DeleteOlderThan deletes notifications older than specified time.
func (a *NotificationAdapter) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := a.db.ExecContext(ctx, `DELETE FROM notifications WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Ensure interface compliance
var _ out.NotificationRepository = (*NotificationAdapter)(nil)
