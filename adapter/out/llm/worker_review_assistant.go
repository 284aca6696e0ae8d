// Package llm wraps the OpenAI chat API for review hints on uncertain detections.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"
	"subscription_server/pkg/httputil"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o-mini"

const reviewSystemPrompt = `You help a user review an automatically detected subscription charge.
Given the email and the detector's findings, answer in one or two short sentences:
is this most likely a recurring subscription, and what should the user double-check?
Do not repeat the raw email. Do not invent amounts or dates.`

type Config struct {
	APIKey    string
	BaseURL   string // optional, for proxies and tests
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// ReviewAssistant implements out.ReviewAssistant with a chat completion.
type ReviewAssistant struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

func NewReviewAssistant(cfg Config) *ReviewAssistant {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.HTTPClient = httputil.OpenAIClient()
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 120
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	return &ReviewAssistant{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

func (a *ReviewAssistant) ReviewHint(ctx context.Context, email *domain.RawEmail, d *domain.DetectionResult) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: reviewSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildReviewPrompt(email, d)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("review hint: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildReviewPrompt(email *domain.RawEmail, d *domain.DetectionResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\nSubject: %s\n\n%s\n\n", email.Sender, email.Subject, email.BodyExcerpt)
	fmt.Fprintf(&sb, "Detected service: %s\n", d.CanonicalName)
	fmt.Fprintf(&sb, "Charge: %s %s per %s\n", domain.FormatAmount(d.Amount), d.Currency, d.BillingCycle)
	if d.NextBillingDate != nil {
		fmt.Fprintf(&sb, "Next billing date: %s\n", d.NextBillingDate.Format("2006-01-02"))
	}
	fmt.Fprintf(&sb, "Confidence: %d%%\n", d.ConfidenceScore)
	if len(d.Reasons) > 0 {
		fmt.Fprintf(&sb, "Signals: %s\n", strings.Join(d.Reasons, "; "))
	}
	return sb.String()
}

var _ out.ReviewAssistant = (*ReviewAssistant)(nil)
