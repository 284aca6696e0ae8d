package notification

import (
	"context"
	"time"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"
	"subscription_server/pkg/logger"

	"github.com/google/uuid"
)

// Service handles notification operations.
type Service struct {
	notificationRepo out.NotificationRepository
	realtime         out.RealtimePort // SSE push (optional)
}

// NewService creates a new notification service.
func NewService(notificationRepo out.NotificationRepository, realtime out.RealtimePort) *Service {
	return &Service{
		notificationRepo: notificationRepo,
		realtime:         realtime,
	}
}

// Send stores a notification and pushes it to the user's open streams.
func (s *Service) Send(ctx context.Context, notification *domain.Notification) error {
	if s.notificationRepo == nil {
		return nil
	}

	// Save to database
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return err
	}

	// Push via SSE if connected
	if s.realtime != nil && s.realtime.IsConnected(notification.UserID.String()) {
		event := domain.NewRealtimeEvent(domain.EventNotificationCreated, notification.UserID, notification)
		if err := s.realtime.Push(ctx, notification.UserID.String(), event); err != nil {
			logger.WithUser(notification.UserID).WithError(err).Debug("[NotificationService.Send] push failed")
		}
	}

	return nil
}

// SendOnce sends the notification unless one of the same type already exists
// for the subscription since the given time. It reports whether it sent.
func (s *Service) SendOnce(ctx context.Context, notification *domain.Notification, since time.Time) (bool, error) {
	if notification.SubscriptionID != nil {
		exists, err := s.notificationRepo.ExistsSince(ctx, notification.UserID, *notification.SubscriptionID, notification.Type, since)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}
	if err := s.Send(ctx, notification); err != nil {
		return false, err
	}
	return true, nil
}

// List returns notifications for a user.
func (s *Service) List(ctx context.Context, userID uuid.UUID, filter *domain.NotificationFilter) ([]*domain.Notification, int, error) {
	if s.notificationRepo == nil {
		return []*domain.Notification{}, 0, nil
	}
	if filter == nil {
		filter = &domain.NotificationFilter{}
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}

	filter.UserID = userID
	return s.notificationRepo.List(ctx, filter)
}

// GetUnreadCount returns the count of unread notifications.
func (s *Service) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	if s.notificationRepo == nil {
		return 0, nil
	}
	return s.notificationRepo.CountUnread(ctx, userID)
}

// MarkAsRead marks specific notifications as read.
func (s *Service) MarkAsRead(ctx context.Context, userID uuid.UUID, notificationIDs []int64) error {
	if s.notificationRepo == nil {
		return nil
	}
	for _, id := range notificationIDs {
		if err := s.notificationRepo.MarkAsRead(ctx, userID, id); err != nil {
			return err
		}
	}
	return nil
}

// MarkAllAsRead marks all notifications as read for a user.
func (s *Service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	if s.notificationRepo == nil {
		return nil
	}
	return s.notificationRepo.MarkAllAsRead(ctx, userID)
}
