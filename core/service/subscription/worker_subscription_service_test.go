package subscription

import (
	"context"
	"testing"
	"time"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"
	"subscription_server/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	subs map[uuid.UUID]*domain.Subscription
}

func newMemRepo(subs ...*domain.Subscription) *memRepo {
	r := &memRepo{subs: make(map[uuid.UUID]*domain.Subscription)}
	for _, s := range subs {
		r.subs[s.ID] = s
	}
	return r
}

func (r *memRepo) ListExisting(context.Context, uuid.UUID) ([]domain.ExistingSubscription, error) {
	return nil, nil
}
func (r *memRepo) Create(_ context.Context, s *domain.Subscription) error {
	r.subs[s.ID] = s
	return nil
}

func (r *memRepo) GetByID(_ context.Context, userID, id uuid.UUID) (*domain.Subscription, error) {
	s, ok := r.subs[id]
	if !ok || s.UserID != userID {
		return nil, out.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memRepo) List(_ context.Context, f *domain.SubscriptionFilter) ([]*domain.Subscription, error) {
	var res []*domain.Subscription
	for _, s := range r.subs {
		if s.UserID != f.UserID {
			continue
		}
		for _, st := range f.Statuses {
			if s.Status == st {
				res = append(res, s)
				break
			}
		}
	}
	return res, nil
}

func (r *memRepo) UpdateStatus(_ context.Context, userID, id uuid.UUID, status domain.SubscriptionStatus) error {
	s, ok := r.subs[id]
	if !ok || s.UserID != userID {
		return out.ErrNotFound
	}
	s.Status = status
	return nil
}

func (r *memRepo) ListDueBetween(context.Context, uuid.UUID, []domain.SubscriptionStatus, time.Time, time.Time) ([]*domain.Subscription, error) {
	return nil, nil
}

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newSub(user uuid.UUID, status domain.SubscriptionStatus, amount float64, cycle domain.BillingCycle, currency string) *domain.Subscription {
	return &domain.Subscription{
		ID:              uuid.New(),
		UserID:          user,
		Name:            "Svc",
		Amount:          amount,
		Currency:        currency,
		BillingCycle:    cycle,
		Status:          status,
		NextBillingDate: now.AddDate(0, 1, 0),
	}
}

func TestApprove(t *testing.T) {
	user := uuid.New()
	pending := newSub(user, domain.StatusPendingReview, 10, domain.CycleMonthly, "USD")
	active := newSub(user, domain.StatusActive, 10, domain.CycleMonthly, "USD")
	repo := newMemRepo(pending, active)
	svc := NewService(repo, nil, nil, nil)

	got, err := svc.Approve(context.Background(), user, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, got.Status)
	assert.Equal(t, domain.StatusActive, repo.subs[pending.ID].Status)

	_, err = svc.Approve(context.Background(), user, active.ID)
	appErr, ok := apperr.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeConflict, appErr.Code)

	_, err = svc.Approve(context.Background(), uuid.New(), pending.ID)
	appErr, ok = apperr.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)
}

func TestReject(t *testing.T) {
	user := uuid.New()
	pending := newSub(user, domain.StatusPendingReview, 10, domain.CycleMonthly, "USD")
	repo := newMemRepo(pending)
	svc := NewService(repo, nil, nil, nil)

	got, err := svc.Reject(context.Background(), user, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got.Status)

	// idempotent
	got, err = svc.Reject(context.Background(), user, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got.Status)
}

func TestList_RejectsUnknownStatus(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil, nil)
	_, err := svc.List(context.Background(), uuid.New(), []domain.SubscriptionStatus{"bogus"}, 10, 0)
	appErr, ok := apperr.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInvalidInput, appErr.Code)
}

func TestSpend(t *testing.T) {
	user := uuid.New()
	soon := newSub(user, domain.StatusActive, 12, domain.CycleMonthly, "USD")
	soon.NextBillingDate = now.AddDate(0, 0, 2)

	repo := newMemRepo(
		soon,
		newSub(user, domain.StatusActive, 120, domain.CycleYearly, "USD"),
		newSub(user, domain.StatusTrial, 30, domain.CycleQuarterly, "EUR"),
		newSub(user, domain.StatusPendingReview, 99, domain.CycleMonthly, "USD"),
		newSub(user, domain.StatusCancelled, 50, domain.CycleMonthly, "USD"),
		newSub(uuid.New(), domain.StatusActive, 1000, domain.CycleMonthly, "USD"),
	)
	svc := NewService(repo, nil, nil, nil)
	svc.SetClock(func() time.Time { return now })

	got, err := svc.Spend(context.Background(), user)
	require.NoError(t, err)

	assert.Equal(t, 32.0, got.Monthly)
	assert.Equal(t, 384.0, got.Annual)
	assert.Equal(t, 3, got.ActiveCount)
	assert.Equal(t, 1, got.PendingCount)
	assert.Equal(t, 1, got.UpcomingCount)
	assert.Equal(t, map[string]float64{"USD": 22, "EUR": 10}, got.ByCurrency)
}

func TestSummarize_WeeklyAndDaily(t *testing.T) {
	user := uuid.New()
	got := Summarize([]*domain.Subscription{
		newSub(user, domain.StatusActive, 1, domain.CycleWeekly, "USD"),
		newSub(user, domain.StatusActive, 1, domain.CycleDaily, "USD"),
	}, 0, now)

	assert.InDelta(t, 34.77, got.Monthly, 0.001)
	assert.InDelta(t, 417.24, got.Annual, 0.001)
}
