package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Notification - 사용자 알림 (DB 저장용)
// =============================================================================

type Notification struct {
	ID             int64            `json:"id"`
	UserID         uuid.UUID        `json:"user_id"`
	SubscriptionID *uuid.UUID       `json:"subscription_id,omitempty"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Data           map[string]any   `json:"data,omitempty"`
	IsRead         bool             `json:"read"`
	ReadAt         *time.Time       `json:"read_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

type NotificationType string

const (
	NotificationRenewalReminder NotificationType = "renewal_reminder"
	NotificationPaymentDetected NotificationType = "payment_detected"
	NotificationTrialEnding     NotificationType = "trial_ending"
	NotificationPriceChange     NotificationType = "price_change"
)

type NotificationFilter struct {
	UserID uuid.UUID
	Type   *NotificationType
	IsRead *bool
	Limit  int
	Offset int
}

// CurrencyPrefix renders "$" for USD and the ISO code otherwise.
func CurrencyPrefix(currency string) string {
	if currency == "" || currency == "USD" {
		return "$"
	}
	return currency
}

// FormatAmount prints an amount the shortest exact way (9.99, 10, 10.5).
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// NewDetectionNotification builds the payment_detected notice for an accepted detection.
func NewDetectionNotification(userID uuid.UUID, subID *uuid.UUID, d *DetectionResult, status SubscriptionStatus) *Notification {
	price := fmt.Sprintf("%s%s/%s", CurrencyPrefix(d.Currency), FormatAmount(d.Amount), d.BillingCycle)

	n := &Notification{
		UserID:         userID,
		SubscriptionID: subID,
		Type:           NotificationPaymentDetected,
		Data: map[string]any{
			"confidence_score": d.ConfidenceScore,
			"status":           string(status),
		},
	}

	if status == StatusPendingReview {
		n.Title = fmt.Sprintf("Review: %s detected", d.CanonicalName)
		n.Message = fmt.Sprintf("We found a possible %s subscription (%s) with %d%% confidence. Please review it.",
			d.CanonicalName, price, d.ConfidenceScore)
		return n
	}

	n.Title = fmt.Sprintf("%s detected", d.CanonicalName)
	n.Message = fmt.Sprintf("We found a %s subscription for %s in your Gmail.", d.CanonicalName, price)
	if status == StatusCancelled || status == StatusPaused {
		n.Message += fmt.Sprintf(" Its latest email marks it as %s.", status)
	}
	return n
}

// =============================================================================
// RealtimeEvent - SSE로 프론트엔드에 전송되는 이벤트
// =============================================================================

type RealtimeEvent struct {
	Type      EventType `json:"type"`
	Seq       int64     `json:"seq"`
	UserID    string    `json:"-"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

type EventType string

const (
	EventScanStarted          EventType = "scan.started"
	EventScanCompleted        EventType = "scan.completed"
	EventScanFailed           EventType = "scan.failed"
	EventSubscriptionDetected EventType = "subscription.detected"
	EventSubscriptionUpdated  EventType = "subscription.updated"
	EventNotificationCreated  EventType = "notification.created"
	EventTokenExpired         EventType = "oauth.token_expired"

	EventConnected EventType = "connected"
)

func NewRealtimeEvent(t EventType, userID uuid.UUID, data any) *RealtimeEvent {
	return &RealtimeEvent{
		Type:      t,
		UserID:    userID.String(),
		Data:      data,
		Timestamp: time.Now(),
	}
}
