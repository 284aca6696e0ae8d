package worker

import (
	"context"
	"fmt"
	"time"

	"subscription_server/core/service/reminder"
	"subscription_server/pkg/logger"

	"github.com/google/uuid"
)

// ReminderSweeper sends the reminders due on a day.
type ReminderSweeper interface {
	Sweep(ctx context.Context, today time.Time, userID *uuid.UUID) (*reminder.SweepResult, error)
}

// NotificationPruner deletes old notifications.
type NotificationPruner interface {
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type ReminderProcessor struct {
	sweeper   ReminderSweeper
	pruner    NotificationPruner
	retention time.Duration
	now       func() time.Time
}

func NewReminderProcessor(sweeper ReminderSweeper, pruner NotificationPruner, retention time.Duration) *ReminderProcessor {
	return &ReminderProcessor{
		sweeper:   sweeper,
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
	}
}

func (p *ReminderProcessor) ProcessSweep(ctx context.Context, msg *Message) error {
	payload, err := ParsePayload[ReminderPayload](msg)
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}

	today := p.now().UTC()
	if payload.Date != "" {
		if today, err = time.Parse("2006-01-02", payload.Date); err != nil {
			return fmt.Errorf("%w: invalid date %q", errPermanent, payload.Date)
		}
	}

	var userID *uuid.UUID
	if payload.UserID != "" {
		id, err := uuid.Parse(payload.UserID)
		if err != nil {
			return fmt.Errorf("%w: invalid user_id %q", errPermanent, payload.UserID)
		}
		userID = &id
	}

	res, err := p.sweeper.Sweep(ctx, today, userID)
	if err != nil {
		return err
	}
	logger.Info("[ReminderProcessor] sweep %s: users=%d renewals=%d trials=%d",
		today.Format("2006-01-02"), res.Users, res.Renewals, res.Trials)
	return nil
}

func (p *ReminderProcessor) ProcessCleanup(ctx context.Context, _ *Message) error {
	if p.pruner == nil || p.retention <= 0 {
		return nil
	}
	n, err := p.pruner.DeleteOlderThan(ctx, p.now().Add(-p.retention))
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("[ReminderProcessor] deleted %d old notifications", n)
	}
	return nil
}
