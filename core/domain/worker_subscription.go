package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	StatusActive        SubscriptionStatus = "active"
	StatusPendingReview SubscriptionStatus = "pending_review"
	StatusTrial         SubscriptionStatus = "trial"
	StatusPaused        SubscriptionStatus = "paused"
	StatusCancelled     SubscriptionStatus = "cancelled"
	StatusRejected      SubscriptionStatus = "rejected"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPendingReview, StatusTrial, StatusPaused, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Occupied reports whether a record with this status blocks a new detection of the same service.
func (s SubscriptionStatus) Occupied() bool {
	return s == StatusActive || s == StatusPendingReview
}

type BillingCycle string

const (
	CycleDaily     BillingCycle = "daily"
	CycleWeekly    BillingCycle = "weekly"
	CycleMonthly   BillingCycle = "monthly"
	CycleQuarterly BillingCycle = "quarterly"
	CycleYearly    BillingCycle = "yearly"
)

func (c BillingCycle) Valid() bool {
	switch c {
	case CycleDaily, CycleWeekly, CycleMonthly, CycleQuarterly, CycleYearly:
		return true
	}
	return false
}

// Next returns the date one cycle after from.
func (c BillingCycle) Next(from time.Time) time.Time {
	switch c {
	case CycleDaily:
		return from.AddDate(0, 0, 1)
	case CycleWeekly:
		return from.AddDate(0, 0, 7)
	case CycleQuarterly:
		return from.AddDate(0, 3, 0)
	case CycleYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// MonthlyAmount normalises a charge to a per-month figure.
func MonthlyAmount(amount float64, cycle BillingCycle) float64 {
	switch cycle {
	case CycleDaily:
		return amount * 30.44
	case CycleWeekly:
		return amount * 4.33
	case CycleQuarterly:
		return amount / 3
	case CycleYearly:
		return amount / 12
	default:
		return amount
	}
}

func AnnualAmount(amount float64, cycle BillingCycle) float64 {
	return MonthlyAmount(amount, cycle) * 12
}

type SubscriptionSource string

const (
	SourceGmail  SubscriptionSource = "gmail"
	SourceManual SubscriptionSource = "manual"
)

type Subscription struct {
	ID              uuid.UUID          `json:"id"`
	UserID          uuid.UUID          `json:"user_id"`
	Name            string             `json:"name"`
	Description     *string            `json:"description,omitempty"`
	Amount          float64            `json:"amount"`
	Currency        string             `json:"currency"`
	BillingCycle    BillingCycle       `json:"billing_cycle"`
	NextBillingDate time.Time          `json:"next_billing_date"`
	Status          SubscriptionStatus `json:"status"`
	CategoryID      *uuid.UUID         `json:"category_id,omitempty"`
	AutoDetected    bool               `json:"auto_detected"`
	Source          SubscriptionSource `json:"source"`
	EmailThreadID   *string            `json:"email_thread_id,omitempty"`
	EmailSender     *string            `json:"email_sender,omitempty"`
	LogoURL         *string            `json:"logo_url,omitempty"`
	WebsiteURL      *string            `json:"website_url,omitempty"`
	ConfidenceScore *int               `json:"confidence_score,omitempty"`
	DetectionReason *string            `json:"detection_reason,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func (s *Subscription) MonthlyAmount() float64 {
	return MonthlyAmount(s.Amount, s.BillingCycle)
}

// ExistingSubscription is the slim projection the scan dedups against.
type ExistingSubscription struct {
	Name          string
	Status        SubscriptionStatus
	EmailThreadID string
}

// KnownServices is the per-scan dedup state built from a user's stored subscriptions.
type KnownServices struct {
	ThreadIDs map[string]struct{}
	Occupied  map[string]struct{} // lowercased names with an active/pending_review record
	AnyStatus map[string]struct{} // lowercased names, any status
}

func NewKnownServices(existing []ExistingSubscription) *KnownServices {
	k := &KnownServices{
		ThreadIDs: make(map[string]struct{}, len(existing)),
		Occupied:  make(map[string]struct{}, len(existing)),
		AnyStatus: make(map[string]struct{}, len(existing)),
	}
	for _, e := range existing {
		if e.EmailThreadID != "" {
			k.ThreadIDs[e.EmailThreadID] = struct{}{}
		}
		name := strings.ToLower(e.Name)
		k.AnyStatus[name] = struct{}{}
		if e.Status.Occupied() {
			k.Occupied[name] = struct{}{}
		}
	}
	return k
}

func (k *KnownServices) HasThread(threadID string) bool {
	_, ok := k.ThreadIDs[threadID]
	return ok
}

func (k *KnownServices) SeenBefore(name string) bool {
	_, ok := k.AnyStatus[strings.ToLower(name)]
	return ok
}

func (k *KnownServices) IsOccupied(name string) bool {
	_, ok := k.Occupied[strings.ToLower(name)]
	return ok
}

func (k *KnownServices) Occupy(name string) {
	k.Occupied[strings.ToLower(name)] = struct{}{}
}

type SubscriptionFilter struct {
	UserID   uuid.UUID
	Statuses []SubscriptionStatus
	Limit    int
	Offset   int
}

// SpendSummary aggregates normalised spend over active and trial subscriptions.
type SpendSummary struct {
	Monthly       float64            `json:"monthly"`
	Annual        float64            `json:"annual"`
	ActiveCount   int                `json:"active_count"`
	PendingCount  int                `json:"pending_count"`
	ByCurrency    map[string]float64 `json:"by_currency"`
	UpcomingCount int                `json:"upcoming_renewals"`
}
