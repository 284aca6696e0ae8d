package domain

import (
	"time"

	"github.com/google/uuid"
)

type ScanStatus string

const (
	ScanRunning ScanStatus = "running"
	ScanSuccess ScanStatus = "success"
	ScanFailed  ScanStatus = "failed"
)

type ScanTrigger string

const (
	TriggerManual    ScanTrigger = "manual"
	TriggerScheduled ScanTrigger = "scheduled"
)

// ScanRun is one execution of the mailbox scan (gmail_scan_logs).
type ScanRun struct {
	ID                 int64       `json:"id"`
	UserID             uuid.UUID   `json:"user_id"`
	Status             ScanStatus  `json:"status"`
	Trigger            ScanTrigger `json:"trigger"`
	EmailsScanned      int         `json:"emails_scanned"`
	SubscriptionsFound int         `json:"subscriptions_found"`
	ErrorMessage       *string     `json:"error_message,omitempty"`
	StartedAt          time.Time   `json:"started_at"`
	CompletedAt        *time.Time  `json:"completed_at,omitempty"`
}

// IsStale reports whether a running row has outlived the stale window (crashed worker).
func (r *ScanRun) IsStale(now time.Time, after time.Duration) bool {
	return r.Status == ScanRunning && now.Sub(r.StartedAt) > after
}

// ScanSummary is what a finished scan reports back to the caller.
type ScanSummary struct {
	ScanID             int64 `json:"scan_id"`
	EmailsScanned      int   `json:"emails_scanned"`
	MessagesAnalyzed   int   `json:"messages_analyzed"`
	SubscriptionsFound int   `json:"subscriptions_found"`
}
