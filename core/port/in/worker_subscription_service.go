package in

import (
	"context"

	"subscription_server/core/domain"

	"github.com/google/uuid"
)

type SubscriptionService interface {
	List(ctx context.Context, userID uuid.UUID, statuses []domain.SubscriptionStatus, limit, offset int) ([]*domain.Subscription, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.Subscription, error)

	// Review actions
	Approve(ctx context.Context, userID, id uuid.UUID) (*domain.Subscription, error)
	Reject(ctx context.Context, userID, id uuid.UUID) (*domain.Subscription, error)

	// Aggregates
	Spend(ctx context.Context, userID uuid.UUID) (*domain.SpendSummary, error)
	ServicesByCategory(ctx context.Context, userID uuid.UUID) (map[string][]string, error)
}

type NotificationService interface {
	List(ctx context.Context, userID uuid.UUID, filter *domain.NotificationFilter) ([]*domain.Notification, int, error)
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkAsRead(ctx context.Context, userID uuid.UUID, notificationIDs []int64) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
}
