package reminder

import (
	"context"
	"testing"
	"time"

	"subscription_server/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConns struct {
	conns []*domain.MailConnection
}

func (f *fakeConns) GetByUser(context.Context, uuid.UUID) (*domain.MailConnection, error) {
	return nil, nil
}
func (f *fakeConns) ListConnected(context.Context) ([]*domain.MailConnection, error) {
	var out []*domain.MailConnection
	for _, c := range f.conns {
		if c.IsConnected {
			out = append(out, c)
		}
	}
	return out, nil
}
func (f *fakeConns) ListReminderRecipients(context.Context) ([]*domain.MailConnection, error) {
	var out []*domain.MailConnection
	for _, c := range f.conns {
		if c.NotifyEmail {
			out = append(out, c)
		}
	}
	return out, nil
}
func (f *fakeConns) Upsert(context.Context, *domain.MailConnection) error { return nil }
func (f *fakeConns) UpdateToken(context.Context, int64, string, time.Time) error {
	return nil
}
func (f *fakeConns) Disconnect(context.Context, int64) error { return nil }
func (f *fakeConns) TouchLastScanned(context.Context, uuid.UUID, time.Time) error {
	return nil
}

type fakeSubs struct {
	subs []*domain.Subscription
}

func (f *fakeSubs) ListExisting(context.Context, uuid.UUID) ([]domain.ExistingSubscription, error) {
	return nil, nil
}
func (f *fakeSubs) Create(context.Context, *domain.Subscription) error { return nil }
func (f *fakeSubs) GetByID(context.Context, uuid.UUID, uuid.UUID) (*domain.Subscription, error) {
	return nil, nil
}
func (f *fakeSubs) List(context.Context, *domain.SubscriptionFilter) ([]*domain.Subscription, error) {
	return nil, nil
}
func (f *fakeSubs) UpdateStatus(context.Context, uuid.UUID, uuid.UUID, domain.SubscriptionStatus) error {
	return nil
}

func (f *fakeSubs) ListDueBetween(_ context.Context, userID uuid.UUID, statuses []domain.SubscriptionStatus, from, to time.Time) ([]*domain.Subscription, error) {
	var out []*domain.Subscription
	for _, s := range f.subs {
		if s.UserID != userID {
			continue
		}
		match := false
		for _, st := range statuses {
			if s.Status == st {
				match = true
			}
		}
		if match && !s.NextBillingDate.Before(from) && !s.NextBillingDate.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

// fakeSender dedups on (subscription, type) like the notification service does.
type fakeSender struct {
	sent []*domain.Notification
}

func (f *fakeSender) SendOnce(_ context.Context, n *domain.Notification, _ time.Time) (bool, error) {
	for _, prev := range f.sent {
		if *prev.SubscriptionID == *n.SubscriptionID && prev.Type == n.Type {
			return false, nil
		}
	}
	f.sent = append(f.sent, n)
	return true, nil
}

var today = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func sub(user uuid.UUID, name string, status domain.SubscriptionStatus, inDays int, amount float64) *domain.Subscription {
	return &domain.Subscription{
		ID:              uuid.New(),
		UserID:          user,
		Name:            name,
		Amount:          amount,
		Currency:        "USD",
		BillingCycle:    domain.CycleMonthly,
		Status:          status,
		NextBillingDate: today.AddDate(0, 0, inDays),
	}
}

func TestSweep(t *testing.T) {
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	conns := &fakeConns{conns: []*domain.MailConnection{
		{UserID: alice, IsConnected: true, NotifyEmail: true},
		{UserID: bob, IsConnected: true, NotifyEmail: true, NotificationDaysBefore: 1},
		{UserID: carol, IsConnected: true, NotifyEmail: false},
	}}
	subs := &fakeSubs{subs: []*domain.Subscription{
		sub(alice, "Netflix", domain.StatusActive, 3, 15.99),
		sub(alice, "Spotify", domain.StatusActive, 2, 9.99),
		sub(alice, "Hulu", domain.StatusCancelled, 3, 7.99),
		sub(alice, "Notion", domain.StatusTrial, 1, 10),
		sub(bob, "GitHub", domain.StatusActive, 1, 4),
		sub(carol, "Figma", domain.StatusActive, 3, 15),
	}}
	sender := &fakeSender{}
	svc := NewService(conns, subs, sender, 0)

	res, err := svc.Sweep(context.Background(), today.Add(15*time.Hour), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Users)
	assert.Equal(t, 2, res.Renewals)
	assert.Equal(t, 1, res.Trials)

	titles := make([]string, 0, len(sender.sent))
	for _, n := range sender.sent {
		titles = append(titles, n.Title)
	}
	assert.ElementsMatch(t, []string{
		"Netflix renews in 3 days",
		"Notion trial ending soon",
		"GitHub renews tomorrow",
	}, titles)

	// second sweep on the same day sends nothing new
	res, err = svc.Sweep(context.Background(), today, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Renewals+res.Trials)
}

func TestSweep_SingleUser(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	conns := &fakeConns{conns: []*domain.MailConnection{
		{UserID: alice, NotifyEmail: true},
		{UserID: bob, NotifyEmail: true},
	}}
	subs := &fakeSubs{subs: []*domain.Subscription{
		sub(alice, "Netflix", domain.StatusActive, 3, 15.99),
		sub(bob, "Spotify", domain.StatusActive, 3, 9.99),
	}}
	sender := &fakeSender{}

	res, err := NewService(conns, subs, sender, 3).Sweep(context.Background(), today, &bob)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Users)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Spotify renews in 3 days", sender.sent[0].Title)
}

func TestSweep_DisconnectedMailboxStillReminded(t *testing.T) {
	alice := uuid.New()
	conns := &fakeConns{conns: []*domain.MailConnection{
		{UserID: alice, IsConnected: false, NotifyEmail: true},
	}}
	subs := &fakeSubs{subs: []*domain.Subscription{
		sub(alice, "Netflix", domain.StatusActive, 3, 15.99),
	}}
	sender := &fakeSender{}

	res, err := NewService(conns, subs, sender, 3).Sweep(context.Background(), today, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Users)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Netflix renews in 3 days", sender.sent[0].Title)
}

func TestRenewalReminder(t *testing.T) {
	s := sub(uuid.New(), "Netflix", domain.StatusActive, 3, 15.99)

	n := RenewalReminder(s, 3)
	assert.Equal(t, domain.NotificationRenewalReminder, n.Type)
	assert.Equal(t, "Netflix renews in 3 days", n.Title)
	assert.Equal(t, "Your Netflix subscription will renew in 3 days for $15.99. Make sure you're prepared.", n.Message)
	assert.Equal(t, s.ID, *n.SubscriptionID)

	n = RenewalReminder(s, 1)
	assert.Equal(t, "Netflix renews tomorrow", n.Title)
	assert.Equal(t, "Your Netflix subscription will renew tomorrow for $15.99. Make sure you're prepared.", n.Message)

	s.Currency = "EUR"
	s.Amount = 10
	assert.Contains(t, RenewalReminder(s, 2).Message, "for EUR10.")
}

func TestTrialEnding(t *testing.T) {
	n := TrialEnding(sub(uuid.New(), "Notion", domain.StatusTrial, 2, 10))
	assert.Equal(t, domain.NotificationTrialEnding, n.Type)
	assert.Equal(t, "Notion trial ending soon", n.Title)
	assert.Equal(t, "Your free trial of Notion is ending. It will convert to a paid subscription soon.", n.Message)
}
