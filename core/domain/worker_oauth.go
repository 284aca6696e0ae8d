package domain

import (
	"time"

	"github.com/google/uuid"
)

type OAuthProvider string

const (
	ProviderGoogle OAuthProvider = "google"
)

const DefaultReminderDaysBefore = 3

// MailConnection is a user's linked mailbox and its (encrypted at rest) credentials.
type MailConnection struct {
	ID                     int64         `json:"id"`
	UserID                 uuid.UUID     `json:"user_id"`
	Provider               OAuthProvider `json:"provider"`
	Email                  string        `json:"email"`
	AccessToken            string        `json:"-"`
	RefreshToken           string        `json:"-"`
	ExpiresAt              time.Time     `json:"expires_at"`
	IsConnected            bool          `json:"is_connected"`
	NotifyEmail            bool          `json:"notification_email"`
	NotificationDaysBefore int           `json:"notification_days_before"`
	LastScannedAt          *time.Time    `json:"last_scanned_at,omitempty"`
	CreatedAt              time.Time     `json:"created_at"`
	UpdatedAt              time.Time     `json:"updated_at"`
}

// ReminderLead returns the configured lead in days, defaulting to three.
func (c *MailConnection) ReminderLead() int {
	if c.NotificationDaysBefore <= 0 {
		return DefaultReminderDaysBefore
	}
	return c.NotificationDaysBefore
}

// ReminderSettings are the per-user renewal reminder preferences.
type ReminderSettings struct {
	NotifyEmail bool `json:"notification_email"`
	DaysBefore  int  `json:"notification_days_before"`
}
