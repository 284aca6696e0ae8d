package domain

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMonthlyAmount(t *testing.T) {
	tests := []struct {
		amount float64
		cycle  BillingCycle
		want   float64
	}{
		{9.99, CycleMonthly, 9.99},
		{120, CycleYearly, 10},
		{30, CycleQuarterly, 10},
		{10, CycleWeekly, 43.3},
		{1, CycleDaily, 30.44},
		{5, BillingCycle("unknown"), 5},
	}

	for _, tt := range tests {
		got := MonthlyAmount(tt.amount, tt.cycle)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("MonthlyAmount(%v, %s) = %v, want %v", tt.amount, tt.cycle, got, tt.want)
		}
	}

	if got := AnnualAmount(9.99, CycleMonthly); math.Abs(got-119.88) > 1e-9 {
		t.Errorf("AnnualAmount() = %v, want 119.88", got)
	}
}

func TestBillingCycle_Next(t *testing.T) {
	from := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	if got := CycleYearly.Next(from); !got.Equal(time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("yearly Next() = %v", got)
	}
	if got := CycleWeekly.Next(from); !got.Equal(time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("weekly Next() = %v", got)
	}
	// AddDate normalises Feb 31 to Mar 3
	if got := CycleMonthly.Next(from); !got.Equal(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("monthly Next() = %v", got)
	}
}

func TestKnownServices(t *testing.T) {
	k := NewKnownServices([]ExistingSubscription{
		{Name: "Netflix", Status: StatusActive, EmailThreadID: "t-1"},
		{Name: "Spotify", Status: StatusRejected},
		{Name: "Notion", Status: StatusPendingReview},
	})

	if !k.HasThread("t-1") || k.HasThread("t-2") {
		t.Error("HasThread() mismatch")
	}
	if !k.IsOccupied("netflix") || !k.IsOccupied("NOTION") {
		t.Error("active and pending_review names should be occupied")
	}
	if k.IsOccupied("Spotify") {
		t.Error("rejected names should not be occupied")
	}
	if !k.SeenBefore("spotify") {
		t.Error("SeenBefore() should include any status")
	}

	k.Occupy("Dropbox")
	if !k.IsOccupied("dropbox") {
		t.Error("Occupy() should mark the name for the rest of the scan")
	}
}

func TestNewDetectionNotification(t *testing.T) {
	user := uuid.New()
	d := &DetectionResult{
		CanonicalName:   "Netflix",
		Amount:          15.49,
		Currency:        "USD",
		BillingCycle:    CycleMonthly,
		ConfidenceScore: 72,
	}

	review := NewDetectionNotification(user, nil, d, StatusPendingReview)
	if review.Title != "Review: Netflix detected" {
		t.Errorf("Title = %q", review.Title)
	}
	want := "We found a possible Netflix subscription ($15.49/monthly) with 72% confidence. Please review it."
	if review.Message != want {
		t.Errorf("Message = %q, want %q", review.Message, want)
	}

	d.Currency = "EUR"
	d.Amount = 10
	cancelled := NewDetectionNotification(user, nil, d, StatusCancelled)
	want = "We found a Netflix subscription for EUR10/monthly in your Gmail. Its latest email marks it as cancelled."
	if cancelled.Message != want {
		t.Errorf("Message = %q, want %q", cancelled.Message, want)
	}
	if cancelled.Type != NotificationPaymentDetected {
		t.Errorf("Type = %s", cancelled.Type)
	}
}

func TestCategoryColor(t *testing.T) {
	if got := CategoryColor("Entertainment"); got != "#E50914" {
		t.Errorf("CategoryColor(Entertainment) = %s", got)
	}
	if got := CategoryColor("Unknown"); got != FallbackCategoryColor {
		t.Errorf("CategoryColor(Unknown) = %s", got)
	}
}
