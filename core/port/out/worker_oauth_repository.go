package out

import (
	"context"
	"time"

	"subscription_server/core/domain"

	"github.com/google/uuid"
)

// MailConnectionRepository defines the outbound port for linked mailboxes.
// Tokens cross this boundary in plaintext; adapters encrypt at rest.
type MailConnectionRepository interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*domain.MailConnection, error)

	// ListConnected returns every connection with is_connected = true.
	ListConnected(ctx context.Context) ([]*domain.MailConnection, error)

	// ListReminderRecipients returns every connection with notification_email = true,
	// whether or not the mailbox is still connected.
	ListReminderRecipients(ctx context.Context) ([]*domain.MailConnection, error)

	// Upsert inserts or replaces the connection for (user, provider).
	Upsert(ctx context.Context, conn *domain.MailConnection) error

	UpdateToken(ctx context.Context, id int64, accessToken string, expiresAt time.Time) error
	Disconnect(ctx context.Context, id int64) error
	TouchLastScanned(ctx context.Context, userID uuid.UUID, at time.Time) error
}

// OAuthStateStore keeps the CSRF state of an in-flight connect flow.
type OAuthStateStore interface {
	StoreState(ctx context.Context, state string, userID uuid.UUID, ttl time.Duration) error
	ValidateState(ctx context.Context, state string) (uuid.UUID, error)
}
