// Package reminder sends renewal and trial-ending notices ahead of billing dates.
package reminder

import (
	"context"
	"fmt"
	"time"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"
	"subscription_server/pkg/logger"

	"github.com/google/uuid"
)

// Sender stores a notification unless an equivalent one exists since the given time.
type Sender interface {
	SendOnce(ctx context.Context, n *domain.Notification, since time.Time) (bool, error)
}

type Service struct {
	connRepo    out.MailConnectionRepository
	subRepo     out.SubscriptionRepository
	sender      Sender
	defaultLead int
}

func NewService(connRepo out.MailConnectionRepository, subRepo out.SubscriptionRepository, sender Sender, defaultLead int) *Service {
	if defaultLead <= 0 {
		defaultLead = domain.DefaultReminderDaysBefore
	}
	return &Service{
		connRepo:    connRepo,
		subRepo:     subRepo,
		sender:      sender,
		defaultLead: defaultLead,
	}
}

// SweepResult counts what one sweep sent.
type SweepResult struct {
	Users    int `json:"users"`
	Renewals int `json:"renewals"`
	Trials   int `json:"trials"`
}

// Sweep sends the reminders due on today. A nil userID sweeps every
// connection that opted into reminders, connected or not.
func (s *Service) Sweep(ctx context.Context, today time.Time, userID *uuid.UUID) (*SweepResult, error) {
	today = truncateDay(today)

	conns, err := s.connRepo.ListReminderRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	res := &SweepResult{}
	for _, conn := range conns {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if userID != nil && conn.UserID != *userID {
			continue
		}
		if !conn.NotifyEmail {
			continue
		}
		res.Users++

		renewals, trials, err := s.sweepUser(ctx, conn, today)
		if err != nil {
			logger.WithUser(conn.UserID).WithError(err).Warn("[ReminderService.Sweep] user sweep failed")
			continue
		}
		res.Renewals += renewals
		res.Trials += trials
	}

	logger.Info("[ReminderService.Sweep] %s: %d users, %d renewal reminders, %d trial notices",
		today.Format("2006-01-02"), res.Users, res.Renewals, res.Trials)
	return res, nil
}

func (s *Service) sweepUser(ctx context.Context, conn *domain.MailConnection, today time.Time) (int, int, error) {
	lead := s.defaultLead
	if conn.NotificationDaysBefore > 0 {
		lead = conn.NotificationDaysBefore
	}
	target := today.AddDate(0, 0, lead)

	// 1. 갱신 예정 알림 (정확히 N일 후)
	due, err := s.subRepo.ListDueBetween(ctx, conn.UserID,
		[]domain.SubscriptionStatus{domain.StatusActive, domain.StatusTrial}, target, target)
	if err != nil {
		return 0, 0, err
	}
	renewals := 0
	for _, sub := range due {
		sent, err := s.sender.SendOnce(ctx, RenewalReminder(sub, lead), today)
		if err != nil {
			return renewals, 0, err
		}
		if sent {
			renewals++
		}
	}

	// 2. 체험 종료 알림 (오늘 ~ N일 후)
	ending, err := s.subRepo.ListDueBetween(ctx, conn.UserID,
		[]domain.SubscriptionStatus{domain.StatusTrial}, today, target)
	if err != nil {
		return renewals, 0, err
	}
	trials := 0
	for _, sub := range ending {
		sent, err := s.sender.SendOnce(ctx, TrialEnding(sub), today)
		if err != nil {
			return renewals, trials, err
		}
		if sent {
			trials++
		}
	}
	return renewals, trials, nil
}

// RenewalReminder builds the renewal_reminder notice for a subscription renewing in days.
func RenewalReminder(sub *domain.Subscription, days int) *domain.Notification {
	daysText := fmt.Sprintf("in %d days", days)
	if days == 1 {
		daysText = "tomorrow"
	}
	id := sub.ID
	return &domain.Notification{
		UserID:         sub.UserID,
		SubscriptionID: &id,
		Type:           domain.NotificationRenewalReminder,
		Title:          fmt.Sprintf("%s renews %s", sub.Name, daysText),
		Message: fmt.Sprintf("Your %s subscription will renew %s for %s%s. Make sure you're prepared.",
			sub.Name, daysText, domain.CurrencyPrefix(sub.Currency), domain.FormatAmount(sub.Amount)),
		Data: map[string]any{
			"days_before":       days,
			"next_billing_date": sub.NextBillingDate.Format("2006-01-02"),
		},
	}
}

// TrialEnding builds the trial_ending notice.
func TrialEnding(sub *domain.Subscription) *domain.Notification {
	id := sub.ID
	return &domain.Notification{
		UserID:         sub.UserID,
		SubscriptionID: &id,
		Type:           domain.NotificationTrialEnding,
		Title:          fmt.Sprintf("%s trial ending soon", sub.Name),
		Message:        fmt.Sprintf("Your free trial of %s is ending. It will convert to a paid subscription soon.", sub.Name),
		Data: map[string]any{
			"next_billing_date": sub.NextBillingDate.Format("2006-01-02"),
		},
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
