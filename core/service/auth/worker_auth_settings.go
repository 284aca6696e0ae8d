package auth

import (
	"context"
	"time"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"
	"subscription_server/pkg/apperr"

	"github.com/google/uuid"
)

const maxReminderDays = 30

type SettingsService struct {
	connRepo out.MailConnectionRepository
}

func NewSettingsService(connRepo out.MailConnectionRepository) *SettingsService {
	return &SettingsService{
		connRepo: connRepo,
	}
}

func (s *SettingsService) GetSettings(ctx context.Context, userID uuid.UUID) (*domain.ReminderSettings, error) {
	conn, err := s.connRepo.GetByUser(ctx, userID)
	if err != nil || conn == nil {
		// 연결 전에는 기본값
		return &domain.ReminderSettings{NotifyEmail: true, DaysBefore: domain.DefaultReminderDaysBefore}, nil
	}
	return &domain.ReminderSettings{NotifyEmail: conn.NotifyEmail, DaysBefore: conn.ReminderLead()}, nil
}

func (s *SettingsService) UpdateSettings(ctx context.Context, userID uuid.UUID, updates map[string]any) (*domain.ReminderSettings, error) {
	conn, err := s.connRepo.GetByUser(ctx, userID)
	if err != nil || conn == nil {
		return nil, apperr.MailNotConnected()
	}

	// Apply updates
	if v, ok := updates["notification_email"].(bool); ok {
		conn.NotifyEmail = v
	}
	if v, ok := updates["notification_days_before"].(float64); ok {
		days := int(v)
		if days < 1 || days > maxReminderDays {
			return nil, apperr.InvalidInput("notification_days_before", "must be between 1 and 30")
		}
		conn.NotificationDaysBefore = days
	}
	conn.UpdatedAt = time.Now()

	if err := s.connRepo.Upsert(ctx, conn); err != nil {
		return nil, apperr.DatabaseError("update settings", err)
	}
	return &domain.ReminderSettings{NotifyEmail: conn.NotifyEmail, DaysBefore: conn.ReminderLead()}, nil
}
