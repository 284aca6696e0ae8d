package out

import (
	"context"
	"time"

	"subscription_server/core/domain"

	"github.com/google/uuid"
)

// DetectionArchive keeps per-message evidence of what a scan saw and decided.
type DetectionArchive interface {
	Record(ctx context.Context, rec *ArchivedAnalysis) error
	ListByScan(ctx context.Context, userID uuid.UUID, scanID int64) ([]*ArchivedAnalysis, error)
}

// ArchivedAnalysis is one analysed message of a scan.
type ArchivedAnalysis struct {
	ScanID       int64
	UserID       uuid.UUID
	MessageID    string
	ThreadID     string
	Subject      string
	Sender       string
	Excerpt      string
	ReceivedAt   time.Time
	Detection    *domain.DetectionResult
	StatusChange *domain.StatusChangeSignal
	Outcome      string // accepted, skipped:<reason>, superseded, no_match
	CreatedAt    time.Time
}

// SubscriptionGraph projects accepted subscriptions into a user→service→category graph.
type SubscriptionGraph interface {
	UpsertSubscription(ctx context.Context, userID uuid.UUID, sub *domain.Subscription, categoryName string) error
	ServicesByCategory(ctx context.Context, userID uuid.UUID) (map[string][]string, error)
}

// ReviewAssistant produces a short free-text hint for a detection awaiting review.
type ReviewAssistant interface {
	ReviewHint(ctx context.Context, email *domain.RawEmail, d *domain.DetectionResult) (string, error)
}
