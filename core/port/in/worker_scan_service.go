package in

import (
	"context"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"

	"github.com/google/uuid"
)

type ScanService interface {
	// Run scans synchronously (used when no job queue is configured)
	Run(ctx context.Context, userID uuid.UUID, trigger domain.ScanTrigger) (*domain.ScanSummary, error)

	// Scan runs
	Latest(ctx context.Context, userID uuid.UUID) (*domain.ScanRun, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ScanRun, error)

	// Archived per-message evidence of one scan
	Evidence(ctx context.Context, userID uuid.UUID, scanID int64) ([]*out.ArchivedAnalysis, error)
}
