package worker

import (
	"context"
	"errors"
	"fmt"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"
	"subscription_server/core/service/scan"
	"subscription_server/pkg/logger"

	"github.com/google/uuid"
)

// ScanRunner runs one mailbox scan.
type ScanRunner interface {
	Run(ctx context.Context, userID uuid.UUID, trigger domain.ScanTrigger) (*domain.ScanSummary, error)
}

type ScanProcessor struct {
	scanner ScanRunner
}

func NewScanProcessor(scanner ScanRunner) *ScanProcessor {
	return &ScanProcessor{scanner: scanner}
}

func (p *ScanProcessor) ProcessScan(ctx context.Context, msg *Message) error {
	payload, err := ParsePayload[ScanPayload](msg)
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return fmt.Errorf("%w: invalid user_id %q", errPermanent, payload.UserID)
	}

	trigger := domain.ScanTrigger(payload.Trigger)
	if trigger == "" {
		trigger = domain.TriggerScheduled
	}

	summary, err := p.scanner.Run(ctx, userID, trigger)
	switch {
	case err == nil:
		logger.WithUser(userID).Info("[ScanProcessor] scan %d done: %d emails, %d new subscriptions",
			summary.ScanID, summary.EmailsScanned, summary.SubscriptionsFound)
		return nil
	case errors.Is(err, scan.ErrScanInProgress):
		logger.WithUser(userID).Info("[ScanProcessor] scan already running, skipping job %s", msg.ID)
		return nil
	case errors.Is(err, out.ErrMailNotConnected), errors.Is(err, out.ErrTokenRefreshFailed):
		// 사용자가 다시 연결해야 하므로 재시도 무의미
		logger.WithUser(userID).WithError(err).Warn("[ScanProcessor] mailbox unavailable")
		return fmt.Errorf("%w: %v", errPermanent, err)
	default:
		return err
	}
}
