package out

import (
	"context"
	"errors"
	"time"

	"subscription_server/core/domain"

	"github.com/google/uuid"
)

// ErrRunActive is returned by Create when the user already has a running row.
var ErrRunActive = errors.New("scan run already active")

// ScanRunRepository defines the outbound port for scan logs.
type ScanRunRepository interface {
	// Create inserts a run in status running and fills in ID/StartedAt.
	// The check for another running row and the insert are one statement.
	Create(ctx context.Context, run *domain.ScanRun) error

	// Finish writes the terminal status, counts, error message and completion time.
	Finish(ctx context.Context, run *domain.ScanRun) error

	// GetRunning returns the newest running row for a user, or nil.
	GetRunning(ctx context.Context, userID uuid.UUID) (*domain.ScanRun, error)

	GetLatest(ctx context.Context, userID uuid.UUID) (*domain.ScanRun, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ScanRun, error)
}

// ScanLock serialises scans per user across processes.
type ScanLock interface {
	Acquire(ctx context.Context, userID uuid.UUID, ttl time.Duration) (bool, error)
	Release(ctx context.Context, userID uuid.UUID) error
}
