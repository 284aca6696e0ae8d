package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

func b64(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

func TestConvertMessage(t *testing.T) {
	msg := &gmail.Message{
		Id:           "m1",
		ThreadId:     "t1",
		InternalDate: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC).UnixMilli(),
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "Netflix <info@mailer.netflix.com>"},
				{Name: "subject", Value: "Your Netflix receipt"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("Amount: $15.99. ")}},
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<b>ignored</b>")}},
				{MimeType: "multipart/related", Parts: []*gmail.MessagePart{
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("Renews monthly.")}},
				}},
			},
		},
	}

	got := convertMessage(msg, 2000)
	if got.Sender != "Netflix <info@mailer.netflix.com>" || got.Subject != "Your Netflix receipt" {
		t.Errorf("headers = %q / %q", got.Sender, got.Subject)
	}
	if got.BodyExcerpt != "Amount: $15.99. Renews monthly." {
		t.Errorf("BodyExcerpt = %q", got.BodyExcerpt)
	}
	if !got.ReceivedAt.Equal(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("ReceivedAt = %v", got.ReceivedAt)
	}
}

func TestConvertMessage_SinglePartAndSnippet(t *testing.T) {
	tests := []struct {
		name    string
		payload *gmail.MessagePart
		snippet string
		want    string
	}{
		{
			name:    "single html part",
			payload: &gmail.MessagePart{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>Invoice</p>")}},
			want:    "<p>Invoice</p>",
		},
		{
			name:    "no text falls back to snippet",
			payload: &gmail.MessagePart{MimeType: "image/png", Body: &gmail.MessagePartBody{Data: b64("png")}},
			snippet: "Your receipt from Spotify",
			want:    "Your receipt from Spotify",
		},
		{
			name:    "unpadded base64",
			payload: &gmail.MessagePart{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString([]byte("ab"))}},
			want:    "ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertMessage(&gmail.Message{Payload: tt.payload, Snippet: tt.snippet}, 2000)
			if got.BodyExcerpt != tt.want {
				t.Errorf("BodyExcerpt = %q, want %q", got.BodyExcerpt, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("é", 2100)
	if got := truncate(long, 2000); len([]rune(got)) != 2000 {
		t.Errorf("truncate() kept %d runes", len([]rune(got)))
	}
	if got := truncate("short", 2000); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
}

func TestBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	b := NewBreaker("test")
	notFound := &googleapi.Error{Code: 404}

	for i := 0; i < 20; i++ {
		err := b.Execute(context.Background(), "get", func() error { return notFound })
		if !errors.Is(err, notFound) {
			t.Fatalf("Execute() error = %v, want the API error", err)
		}
	}
	if b.State() != "closed" {
		t.Errorf("State() = %s, want closed", b.State())
	}
}

func TestBreaker_DeletedMessagesKeepScanGoing(t *testing.T) {
	b := NewBreaker("test")
	gone := &googleapi.Error{Code: 404}

	for i := 0; i < 7; i++ {
		_ = b.Execute(context.Background(), "messages.get", func() error { return gone })
	}
	if err := b.Execute(context.Background(), "messages.get", func() error { return nil }); err != nil {
		t.Fatalf("Execute() after 404s = %v, want nil", err)
	}

	// 404s between server errors reset the consecutive failure count
	unavailable := &googleapi.Error{Code: 503}
	for i := 0; i < 10; i++ {
		fn := func() error { return unavailable }
		if i%2 == 1 {
			fn = func() error { return gone }
		}
		_ = b.Execute(context.Background(), "messages.get", fn)
	}
	if b.State() != "closed" {
		t.Errorf("State() = %s, want closed", b.State())
	}
}

func TestBreaker_ServerErrorsTrip(t *testing.T) {
	b := NewBreaker("test")
	unavailable := &googleapi.Error{Code: 503}

	for i := 0; i < 6; i++ {
		_ = b.Execute(context.Background(), "list", func() error { return unavailable })
	}
	err := b.Execute(context.Background(), "list", func() error { return nil })
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Execute() error = %v, want ErrProviderUnavailable", err)
	}
}
