package worker

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of a job.
type JobType = string

const (
	JobScanRun        JobType = "scan.run"
	JobReminderSweep  JobType = "reminder.sweep"
	JobNotificationGC JobType = "notification.gc"
)

type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	Retries   int            `json:"retries"`
}

func NewMessage(jobType string, payload map[string]any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

// ScanPayload mirrors out.ScanJob on the wire.
type ScanPayload struct {
	UserID  string `json:"user_id"` // string으로 받아서 uuid.Parse
	Trigger string `json:"trigger"`
}

// ReminderPayload mirrors out.ReminderJob on the wire.
type ReminderPayload struct {
	UserID string `json:"user_id,omitempty"`
	Date   string `json:"date,omitempty"`
}
