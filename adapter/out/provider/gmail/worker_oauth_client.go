package gmail

import (
	"context"
	"fmt"

	"subscription_server/core/port/out"
	"subscription_server/pkg/httputil"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

const userInfoEmailScope = "https://www.googleapis.com/auth/userinfo.email"

// OAuthConfig holds Google OAuth configuration.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// NewOAuth2Config returns the read-only Gmail consent config.
func NewOAuth2Config(cfg *OAuthConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			gmail.GmailReadonlyScope,
			userInfoEmailScope,
		},
		Endpoint: google.Endpoint,
	}
}

// OAuthClient implements out.OAuthClient against Google.
type OAuthClient struct {
	config  *oauth2.Config
	breaker *Breaker
}

func NewOAuthClient(config *oauth2.Config, breaker *Breaker) *OAuthClient {
	if breaker == nil {
		breaker = NewBreaker("gmail-api")
	}
	return &OAuthClient{config: config, breaker: breaker}
}

// AuthURL asks for offline access with forced consent so a refresh token is always issued.
func (c *OAuthClient) AuthURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (c *OAuthClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := c.config.Exchange(withHTTPClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	return token, nil
}

func (c *OAuthClient) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	// force a refresh even if the stored expiry looks valid
	stale := *token
	stale.AccessToken = ""
	fresh, err := c.config.TokenSource(withHTTPClient(ctx), &stale).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return fresh, nil
}

// AccountEmail reads the mailbox address from the Gmail profile.
func (c *OAuthClient) AccountEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	svc, err := newService(ctx, token)
	if err != nil {
		return "", err
	}

	var profile *gmail.Profile
	err = c.breaker.Execute(ctx, "users.getProfile", func() error {
		var err error
		profile, err = svc.Users.GetProfile("me").Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", wrapError(err, "failed to get profile")
	}
	return profile.EmailAddress, nil
}

func withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, httputil.OAuthClient())
}

var _ out.OAuthClient = (*OAuthClient)(nil)
