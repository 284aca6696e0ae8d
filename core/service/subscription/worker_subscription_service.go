// Package subscription holds the review and reporting side of detected subscriptions.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"
	"subscription_server/pkg/apperr"
	"subscription_server/pkg/logger"

	"github.com/google/uuid"
)

const upcomingWindow = 7 * 24 * time.Hour

type Service struct {
	subRepo  out.SubscriptionRepository
	catRepo  out.CategoryRepository
	graph    out.SubscriptionGraph // optional
	realtime out.RealtimePort      // optional
	now      func() time.Time
}

func NewService(subRepo out.SubscriptionRepository, catRepo out.CategoryRepository, graph out.SubscriptionGraph, realtime out.RealtimePort) *Service {
	return &Service{
		subRepo:  subRepo,
		catRepo:  catRepo,
		graph:    graph,
		realtime: realtime,
		now:      time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

// =============================================================================
// Queries
// =============================================================================

func (s *Service) List(ctx context.Context, userID uuid.UUID, statuses []domain.SubscriptionStatus, limit, offset int) ([]*domain.Subscription, error) {
	for _, st := range statuses {
		if !st.Valid() {
			return nil, apperr.InvalidInput("status", fmt.Sprintf("unknown status %q", st))
		}
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	subs, err := s.subRepo.List(ctx, &domain.SubscriptionFilter{
		UserID:   userID,
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, apperr.DatabaseError("list subscriptions", err)
	}
	return subs, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subRepo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return nil, apperr.NotFound("subscription")
		}
		return nil, apperr.DatabaseError("get subscription", err)
	}
	return sub, nil
}

// Spend normalises active and trial subscriptions to monthly and annual figures.
func (s *Service) Spend(ctx context.Context, userID uuid.UUID) (*domain.SpendSummary, error) {
	billable, err := s.subRepo.List(ctx, &domain.SubscriptionFilter{
		UserID:   userID,
		Statuses: []domain.SubscriptionStatus{domain.StatusActive, domain.StatusTrial},
	})
	if err != nil {
		return nil, apperr.DatabaseError("list subscriptions", err)
	}
	pending, err := s.subRepo.List(ctx, &domain.SubscriptionFilter{
		UserID:   userID,
		Statuses: []domain.SubscriptionStatus{domain.StatusPendingReview},
	})
	if err != nil {
		return nil, apperr.DatabaseError("list subscriptions", err)
	}

	return Summarize(billable, len(pending), s.now()), nil
}

// Summarize aggregates billable subscriptions. Totals mix currencies; the
// per-currency breakdown is in ByCurrency.
func Summarize(billable []*domain.Subscription, pendingCount int, now time.Time) *domain.SpendSummary {
	sum := &domain.SpendSummary{
		ByCurrency:   make(map[string]float64),
		PendingCount: pendingCount,
	}
	for _, sub := range billable {
		monthly := sub.MonthlyAmount()
		sum.Monthly += monthly
		sum.ByCurrency[sub.Currency] += monthly
		sum.ActiveCount++

		until := sub.NextBillingDate.Sub(now)
		if until >= -24*time.Hour && until <= upcomingWindow {
			sum.UpcomingCount++
		}
	}
	sum.Monthly = round2(sum.Monthly)
	sum.Annual = round2(sum.Monthly * 12)
	for k, v := range sum.ByCurrency {
		sum.ByCurrency[k] = round2(v)
	}
	return sum
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ServicesByCategory reads the subscription graph; empty when no graph is configured.
func (s *Service) ServicesByCategory(ctx context.Context, userID uuid.UUID) (map[string][]string, error) {
	if s.graph == nil {
		return map[string][]string{}, nil
	}
	groups, err := s.graph.ServicesByCategory(ctx, userID)
	if err != nil {
		return nil, apperr.ExternalError("graph", err)
	}
	return groups, nil
}

// =============================================================================
// Review
// =============================================================================

// Approve moves a pending_review subscription to active.
func (s *Service) Approve(ctx context.Context, userID, id uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != domain.StatusPendingReview {
		return nil, apperr.Conflict(fmt.Sprintf("subscription is %s, not pending_review", sub.Status))
	}
	if err := s.setStatus(ctx, sub, domain.StatusActive); err != nil {
		return nil, err
	}

	if s.graph != nil {
		if err := s.graph.UpsertSubscription(ctx, userID, sub, s.categoryName(ctx, userID, sub.CategoryID)); err != nil {
			logger.WithUser(userID).WithError(err).Debug("[SubscriptionService.Approve] graph upsert failed")
		}
	}
	return sub, nil
}

// Reject marks a detection as not a subscription. Rejected names stay in the
// user's history but no longer block future detections.
func (s *Service) Reject(ctx context.Context, userID, id uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == domain.StatusRejected {
		return sub, nil
	}
	if err := s.setStatus(ctx, sub, domain.StatusRejected); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) setStatus(ctx context.Context, sub *domain.Subscription, status domain.SubscriptionStatus) error {
	if err := s.subRepo.UpdateStatus(ctx, sub.UserID, sub.ID, status); err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return apperr.NotFound("subscription")
		}
		return apperr.DatabaseError("update subscription status", err)
	}
	sub.Status = status
	sub.UpdatedAt = s.now()

	logger.WithUser(sub.UserID).WithField("subscription_id", sub.ID.String()).
		Info("[SubscriptionService] %s -> %s", sub.Name, status)

	if s.realtime != nil {
		_ = s.realtime.Push(ctx, sub.UserID.String(), domain.NewRealtimeEvent(domain.EventSubscriptionUpdated, sub.UserID, sub))
	}
	return nil
}

func (s *Service) categoryName(ctx context.Context, userID uuid.UUID, id *uuid.UUID) string {
	if id == nil || s.catRepo == nil {
		return ""
	}
	cats, err := s.catRepo.ListByUser(ctx, userID)
	if err != nil {
		return ""
	}
	for _, c := range cats {
		if c.ID == *id {
			return c.Name
		}
	}
	return ""
}
