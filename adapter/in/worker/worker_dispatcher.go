package worker

import (
	"context"
	"errors"

	"github.com/goccy/go-json"

	"subscription_server/pkg/logger"
)

// errPermanent marks failures a retry cannot fix.
var errPermanent = errors.New("permanent job failure")

type Handler struct {
	scanProcessor     *ScanProcessor
	reminderProcessor *ReminderProcessor
}

func NewHandler(scanProcessor *ScanProcessor, reminderProcessor *ReminderProcessor) *Handler {
	return &Handler{
		scanProcessor:     scanProcessor,
		reminderProcessor: reminderProcessor,
	}
}

func (h *Handler) Process(ctx context.Context, msg *Message) error {
	logger.Debug("Processing message: %s", msg.Type)

	switch msg.Type {
	case JobScanRun:
		return h.scanProcessor.ProcessScan(ctx, msg)
	case JobReminderSweep:
		return h.reminderProcessor.ProcessSweep(ctx, msg)
	case JobNotificationGC:
		return h.reminderProcessor.ProcessCleanup(ctx, msg)
	default:
		logger.Warn("Unknown job type: %s", msg.Type)
		return nil
	}
}

func ParsePayload[T any](msg *Message) (*T, error) {
	var payload T
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
