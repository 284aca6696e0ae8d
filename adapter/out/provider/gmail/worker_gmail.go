// Package gmail provides the Gmail API adapter the scanner reads billing mail through.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"
	"subscription_server/pkg/httputil"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	defaultBodyLimit = 2000
	maxPageSize      = 500 // Gmail messages.list upper bound
)

// =============================================================================
// Factory
// =============================================================================

// Factory opens Gmail mailboxes for access tokens. All mailboxes share one
// circuit breaker so a Gmail outage fails every scan fast.
type Factory struct {
	config    *oauth2.Config
	breaker   *Breaker
	bodyLimit int
}

func NewFactory(config *oauth2.Config, breaker *Breaker, bodyLimit int) *Factory {
	if breaker == nil {
		breaker = NewBreaker("gmail-api")
	}
	if bodyLimit <= 0 {
		bodyLimit = defaultBodyLimit
	}
	return &Factory{config: config, breaker: breaker, bodyLimit: bodyLimit}
}

// ForToken builds a Gmail service on the token. Refresh is the credential
// provider's job, so the token is used as a static source.
func (f *Factory) ForToken(ctx context.Context, token *oauth2.Token) (out.MailSource, error) {
	svc, err := newService(ctx, token)
	if err != nil {
		return nil, err
	}
	return &Mailbox{service: svc, breaker: f.breaker, bodyLimit: f.bodyLimit}, nil
}

// newService builds a Gmail client over the shared pooled transport.
func newService(ctx context.Context, token *oauth2.Token) (*gmail.Service, error) {
	base := context.WithValue(ctx, oauth2.HTTPClient, httputil.GmailClient())
	httpClient := oauth2.NewClient(base, oauth2.StaticTokenSource(token))
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return svc, nil
}

// =============================================================================
// Mailbox
// =============================================================================

// Mailbox implements out.MailSource for one Gmail account.
type Mailbox struct {
	service   *gmail.Service
	breaker   *Breaker
	bodyLimit int
}

// ListCandidates pages through messages.list until maxResults refs are collected.
// Gmail returns matches newest first.
func (m *Mailbox) ListCandidates(ctx context.Context, query string, maxResults int) ([]domain.MessageRef, error) {
	var (
		refs      []domain.MessageRef
		pageToken string
	)

	for len(refs) < maxResults {
		pageSize := maxResults - len(refs)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		req := m.service.Users.Messages.List("me").Q(query).MaxResults(int64(pageSize))
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		var resp *gmail.ListMessagesResponse
		err := m.breaker.Execute(ctx, "messages.list", func() error {
			var err error
			resp, err = req.Context(ctx).Do()
			return err
		})
		if err != nil {
			return nil, wrapError(err, "failed to list messages")
		}

		for _, msg := range resp.Messages {
			refs = append(refs, domain.MessageRef{
				ID:           msg.Id,
				ThreadID:     msg.ThreadId,
				InternalDate: internalDate(msg.InternalDate),
			})
		}

		if resp.NextPageToken == "" || len(resp.Messages) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}

	return refs, nil
}

// GetMessage fetches one message in full format and reduces it to subject,
// sender and a plain-text excerpt.
func (m *Mailbox) GetMessage(ctx context.Context, messageID string) (*domain.RawEmail, error) {
	var msg *gmail.Message
	err := m.breaker.Execute(ctx, "messages.get", func() error {
		var err error
		msg, err = m.service.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, wrapError(err, "failed to get message")
	}
	return convertMessage(msg, m.bodyLimit), nil
}

// =============================================================================
// Parsing
// =============================================================================

func convertMessage(msg *gmail.Message, bodyLimit int) *domain.RawEmail {
	email := &domain.RawEmail{
		MessageID:  msg.Id,
		ThreadID:   msg.ThreadId,
		ReceivedAt: internalDate(msg.InternalDate),
	}

	if msg.Payload != nil {
		email.Subject = getHeader(msg.Payload.Headers, "Subject")
		email.Sender = getHeader(msg.Payload.Headers, "From")
		email.BodyExcerpt = extractText(msg.Payload)
	}
	if email.BodyExcerpt == "" {
		email.BodyExcerpt = msg.Snippet
	}
	email.BodyExcerpt = truncate(email.BodyExcerpt, bodyLimit)

	return email
}

// extractText returns the single-part body, or the text/plain parts joined in order.
func extractText(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if len(part.Parts) == 0 {
		// single-part messages: plain or html, both carry the billing text
		if part.Body == nil || part.Body.Data == "" {
			return ""
		}
		if part.MimeType != "" && !strings.HasPrefix(part.MimeType, "text/") {
			return ""
		}
		return decodeData(part.Body.Data)
	}

	var sb strings.Builder
	for _, p := range part.Parts {
		switch {
		case p.MimeType == "text/plain" && p.Body != nil && p.Body.Data != "":
			sb.WriteString(decodeData(p.Body.Data))
		case strings.HasPrefix(p.MimeType, "multipart/"):
			sb.WriteString(extractText(p))
		}
	}
	return sb.String()
}

func decodeData(data string) string {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	return ""
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

func internalDate(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

var (
	_ out.MailSourceFactory = (*Factory)(nil)
	_ out.MailSource        = (*Mailbox)(nil)
)
