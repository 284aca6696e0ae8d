package out

import (
	"context"
)

// JobProducer defines the outbound port for queueing background jobs.
type JobProducer interface {
	PublishScan(ctx context.Context, job *ScanJob) error
	PublishReminders(ctx context.Context, job *ReminderJob) error
}

// ScanJob asks a worker to scan one user's mailbox.
type ScanJob struct {
	UserID  string `json:"user_id"`
	Trigger string `json:"trigger"` // manual, scheduled
}

// ReminderJob asks a worker to run the renewal reminder sweep.
// An empty UserID means every connected user.
type ReminderJob struct {
	UserID string `json:"user_id,omitempty"`
	Date   string `json:"date"` // YYYY-MM-DD, the "today" of the sweep
}
