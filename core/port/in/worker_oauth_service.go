package in

import (
	"context"

	"subscription_server/core/domain"

	"github.com/google/uuid"
)

type OAuthService interface {
	// Gmail connect flow
	GetAuthURL(ctx context.Context, userID uuid.UUID) (string, error)
	HandleCallback(ctx context.Context, state, code string) (*domain.MailConnection, error)

	GetConnection(ctx context.Context, userID uuid.UUID) (*domain.MailConnection, error)
	Disconnect(ctx context.Context, userID uuid.UUID) error
}

type SettingsService interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (*domain.ReminderSettings, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, updates map[string]any) (*domain.ReminderSettings, error)
}
