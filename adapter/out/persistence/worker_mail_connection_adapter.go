// Package persistence provides database adapters.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"
	"subscription_server/pkg/crypto"
	"subscription_server/pkg/logger"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// MailConnectionAdapter implements out.MailConnectionRepository using PostgreSQL.
// Tokens are sealed with the encryptor before they reach the table.
type MailConnectionAdapter struct {
	db  *sqlx.DB
	enc *crypto.Encryptor
}

// NewMailConnectionAdapter creates a new adapter. A nil encryptor stores tokens as given.
func NewMailConnectionAdapter(db *sqlx.DB, enc *crypto.Encryptor) *MailConnectionAdapter {
	if enc == nil {
		logger.Warn("Token encryption disabled: no encryption key configured")
	}
	return &MailConnectionAdapter{db: db, enc: enc}
}

type mailConnectionRow struct {
	ID                     int64        `db:"id"`
	UserID                 uuid.UUID    `db:"user_id"`
	Provider               string       `db:"provider"`
	Email                  string       `db:"email"`
	AccessToken            string       `db:"access_token"`
	RefreshToken           string       `db:"refresh_token"`
	ExpiresAt              time.Time    `db:"expires_at"`
	IsConnected            bool         `db:"is_connected"`
	NotificationEmail      bool         `db:"notification_email"`
	NotificationDaysBefore int          `db:"notification_days_before"`
	LastScannedAt          sql.NullTime `db:"last_scanned_at"`
	CreatedAt              time.Time    `db:"created_at"`
	UpdatedAt              time.Time    `db:"updated_at"`
}

const mailConnectionColumns = `
	id, user_id, provider, email, access_token, refresh_token, expires_at, is_connected,
	notification_email, notification_days_before, last_scanned_at, created_at, updated_at`

func (a *MailConnectionAdapter) encryptToken(token string) string {
	if a.enc == nil || token == "" {
		return token
	}
	encrypted, err := a.enc.Encrypt(token)
	if err != nil {
		logger.Warn("Failed to encrypt token: %v", err)
		return token
	}
	return encrypted
}

func (a *MailConnectionAdapter) decryptToken(token string) string {
	if a.enc == nil {
		return token
	}
	// legacy rows may still hold plaintext
	return a.enc.DecryptOrPlain(token)
}

func (a *MailConnectionAdapter) toDomain(r *mailConnectionRow) *domain.MailConnection {
	c := &domain.MailConnection{
		ID:                     r.ID,
		UserID:                 r.UserID,
		Provider:               domain.OAuthProvider(r.Provider),
		Email:                  r.Email,
		AccessToken:            a.decryptToken(r.AccessToken),
		RefreshToken:           a.decryptToken(r.RefreshToken),
		ExpiresAt:              r.ExpiresAt,
		IsConnected:            r.IsConnected,
		NotifyEmail:            r.NotificationEmail,
		NotificationDaysBefore: r.NotificationDaysBefore,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
	if r.LastScannedAt.Valid {
		t := r.LastScannedAt.Time
		c.LastScannedAt = &t
	}
	return c
}

// GetByUser returns the Google connection of a user.
func (a *MailConnectionAdapter) GetByUser(ctx context.Context, userID uuid.UUID) (*domain.MailConnection, error) {
	var row mailConnectionRow
	query := `SELECT ` + mailConnectionColumns + ` FROM mail_connections WHERE user_id = $1 AND provider = $2`

	if err := a.db.GetContext(ctx, &row, query, userID, string(domain.ProviderGoogle)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a.toDomain(&row), nil
}

// ListConnected returns all live connections (scheduled scans).
func (a *MailConnectionAdapter) ListConnected(ctx context.Context) ([]*domain.MailConnection, error) {
	return a.list(ctx, `WHERE is_connected = true`)
}

// ListReminderRecipients returns connections opted into reminders. A revoked
// Gmail grant does not stop reminders for subscriptions already stored.
func (a *MailConnectionAdapter) ListReminderRecipients(ctx context.Context) ([]*domain.MailConnection, error) {
	return a.list(ctx, `WHERE notification_email = true`)
}

func (a *MailConnectionAdapter) list(ctx context.Context, where string) ([]*domain.MailConnection, error) {
	var rows []mailConnectionRow
	query := `SELECT ` + mailConnectionColumns + ` FROM mail_connections ` + where + ` ORDER BY created_at`

	if err := a.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	conns := make([]*domain.MailConnection, len(rows))
	for i := range rows {
		conns[i] = a.toDomain(&rows[i])
	}
	return conns, nil
}

// Upsert creates or replaces the connection for (user, provider).
func (a *MailConnectionAdapter) Upsert(ctx context.Context, conn *domain.MailConnection) error {
	query := `
		INSERT INTO mail_connections (user_id, provider, email, access_token, refresh_token, expires_at,
		                              is_connected, notification_email, notification_days_before, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (user_id, provider) DO UPDATE SET
			email = EXCLUDED.email,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			is_connected = EXCLUDED.is_connected,
			notification_email = EXCLUDED.notification_email,
			notification_days_before = EXCLUDED.notification_days_before,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	return a.db.QueryRowContext(ctx, query,
		conn.UserID,
		string(conn.Provider),
		conn.Email,
		a.encryptToken(conn.AccessToken),
		a.encryptToken(conn.RefreshToken),
		conn.ExpiresAt,
		conn.IsConnected,
		conn.NotifyEmail,
		conn.ReminderLead(),
	).Scan(&conn.ID, &conn.CreatedAt, &conn.UpdatedAt)
}

// UpdateToken stores a refreshed access token.
func (a *MailConnectionAdapter) UpdateToken(ctx context.Context, id int64, accessToken string, expiresAt time.Time) error {
	query := `
		UPDATE mail_connections
		SET access_token = $1, expires_at = $2, updated_at = NOW()
		WHERE id = $3`

	_, err := a.db.ExecContext(ctx, query, a.encryptToken(accessToken), expiresAt, id)
	return err
}

// Disconnect marks a connection as disconnected.
func (a *MailConnectionAdapter) Disconnect(ctx context.Context, id int64) error {
	query := `
		UPDATE mail_connections
		SET is_connected = false, updated_at = NOW()
		WHERE id = $1`

	_, err := a.db.ExecContext(ctx, query, id)
	return err
}

func (a *MailConnectionAdapter) TouchLastScanned(ctx context.Context, userID uuid.UUID, at time.Time) error {
	_, err := a.db.ExecContext(ctx,
		`UPDATE mail_connections SET last_scanned_at = $1, updated_at = NOW() WHERE user_id = $2 AND provider = $3`,
		at, userID, string(domain.ProviderGoogle))
	return err
}

// Ensure MailConnectionAdapter implements out.MailConnectionRepository
var _ out.MailConnectionRepository = (*MailConnectionAdapter)(nil)
