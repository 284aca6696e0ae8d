package out

import (
	"context"
	"errors"

	"subscription_server/core/domain"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

var (
	// ErrTokenRefreshFailed is returned when stored credentials cannot be refreshed.
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// ErrMailNotConnected is returned when the user has no live mailbox link.
	ErrMailNotConnected = errors.New("mailbox not connected")
)

// MailSource reads billing candidates from a user's mailbox.
type MailSource interface {
	// ListCandidates returns message refs matching query, newest first.
	ListCandidates(ctx context.Context, query string, maxResults int) ([]domain.MessageRef, error)

	// GetMessage fetches subject, sender and a plain-text body excerpt.
	GetMessage(ctx context.Context, messageID string) (*domain.RawEmail, error)
}

// MailSourceFactory opens a MailSource for an access token.
type MailSourceFactory interface {
	ForToken(ctx context.Context, token *oauth2.Token) (MailSource, error)
}

// CredentialProvider yields a usable (refreshed if needed) access token for a user.
type CredentialProvider interface {
	AccessToken(ctx context.Context, userID uuid.UUID) (*oauth2.Token, error)
}

// OAuthClient is the provider side of the connect flow.
type OAuthClient interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
	AccountEmail(ctx context.Context, token *oauth2.Token) (string, error)
}
