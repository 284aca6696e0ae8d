package out

import (
	"context"
	"errors"
	"time"

	"subscription_server/core/domain"

	"github.com/google/uuid"
)

// ErrNotFound is returned by repositories when the row does not exist for the user.
var ErrNotFound = errors.New("not found")

// SubscriptionRepository defines the outbound port for subscription persistence.
type SubscriptionRepository interface {
	// ListExisting returns the dedup projection {thread id, name, status} for a user.
	ListExisting(ctx context.Context, userID uuid.UUID) ([]domain.ExistingSubscription, error)

	// Create inserts a subscription and fills in ID and timestamps.
	Create(ctx context.Context, sub *domain.Subscription) error

	GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Subscription, error)
	List(ctx context.Context, filter *domain.SubscriptionFilter) ([]*domain.Subscription, error)
	UpdateStatus(ctx context.Context, userID, id uuid.UUID, status domain.SubscriptionStatus) error

	// ListDueBetween returns subscriptions in the given statuses whose next
	// billing date falls within [from, to] (dates, inclusive).
	ListDueBetween(ctx context.Context, userID uuid.UUID, statuses []domain.SubscriptionStatus, from, to time.Time) ([]*domain.Subscription, error)
}

// CategoryRepository defines the outbound port for spending categories.
type CategoryRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Category, error)
	Create(ctx context.Context, category *domain.Category) error
}
