package out

import (
	"context"
	"time"

	"subscription_server/core/domain"

	"github.com/google/uuid"
)

// NotificationRepository defines the outbound port for notification persistence.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, filter *domain.NotificationFilter) ([]*domain.Notification, int, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkAsRead(ctx context.Context, userID uuid.UUID, id int64) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error

	// ExistsSince reports whether a notification of this type was already
	// created for the subscription at or after since.
	ExistsSince(ctx context.Context, userID, subscriptionID uuid.UUID, t domain.NotificationType, since time.Time) (bool, error)
}
