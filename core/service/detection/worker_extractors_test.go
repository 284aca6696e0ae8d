package detection

import (
	"strings"
	"testing"
	"time"

	"subscription_server/core/domain"
)

func TestDetectBillingKeywords(t *testing.T) {
	tests := []struct {
		name        string
		subject     string
		body        string
		wantSubject bool
		wantBody    bool
	}{
		{"subject hit", "Your Netflix payment receipt", "", true, false},
		{"subject hit wins over body", "Invoice #123", "thanks for your payment", true, false},
		{"body only", "Hello from Spotify", "Your subscription fee was processed", false, true},
		{"case insensitive", "YOUR RECEIPT", "", true, false},
		{"no keyword", "Welcome aboard", "Here are some tips to get started", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSubject, gotBody := DetectBillingKeywords(tt.subject, tt.body)
			if gotSubject != tt.wantSubject || gotBody != tt.wantBody {
				t.Errorf("DetectBillingKeywords() = (%v, %v), want (%v, %v)", gotSubject, gotBody, tt.wantSubject, tt.wantBody)
			}
		})
	}
}

func TestBillingKeywordListSize(t *testing.T) {
	if len(billingKeywords) < 80 {
		t.Fatalf("billing keyword list has %d entries, want at least 80", len(billingKeywords))
	}
}

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantAmount   float64
		wantCurrency string
		wantOK       bool
	}{
		{"dollar sign", "Total: $15.99", 15.99, "USD", true},
		{"dollar with grouping", "You paid $1,299.00 today", 1299, "USD", true},
		{"usd prefix", "Amount USD 20.00", 20, "USD", true},
		{"usd suffix", "Charged 7.50 USD", 7.5, "USD", true},
		{"euro comma decimal", "Betrag €9,99", 9.99, "EUR", true},
		{"euro grouping and decimal", "Summe €1.234,56", 1234.56, "EUR", true},
		{"eur prefix", "EUR 11.99 charged", 11.99, "EUR", true},
		{"pound", "£4.99 per month", 4.99, "GBP", true},
		{"gbp suffix", "You paid 8.00 GBP", 8, "GBP", true},
		{"rupee lakh grouping", "₹1,49,900.00 debited", 149900, "INR", true},
		{"cad code", "CAD 12.99 will be charged", 12.99, "CAD", true},
		{"aud suffix", "Total 30.00 AUD", 30, "AUD", true},
		{"yen", "¥1200 お支払い", 1200, "JPY", true},
		{"zero then positive", "Discount $0.00, total 5 USD", 5, "USD", true},
		{"dollar outranks euro", "€5.00 or $6.00", 6, "USD", true},
		{"no amount", "Thanks for being a member", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractAmount(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ExtractAmount() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Currency != tt.wantCurrency {
				t.Errorf("Currency = %s, want %s", got.Currency, tt.wantCurrency)
			}
			if diff := got.Amount - tt.wantAmount; diff > 0.0001 || diff < -0.0001 {
				t.Errorf("Amount = %v, want %v", got.Amount, tt.wantAmount)
			}
		})
	}
}

func TestExtractBillingCycle(t *testing.T) {
	tests := []struct {
		text         string
		wantCycle    domain.BillingCycle
		wantExplicit bool
	}{
		{"Your annual plan", domain.CycleYearly, true},
		{"$99/year", domain.CycleYearly, true},
		{"billed quarterly", domain.CycleQuarterly, true},
		{"every 3 months", domain.CycleQuarterly, true},
		{"$3 per week", domain.CycleWeekly, true},
		{"your monthly statement", domain.CycleMonthly, true},
		{"auto-renews every month", domain.CycleMonthly, true},
		{"Your payment receipt", domain.CycleMonthly, false},
		{"annual and monthly options", domain.CycleYearly, true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cycle, explicit := ExtractBillingCycle(tt.text)
			if cycle != tt.wantCycle || explicit != tt.wantExplicit {
				t.Errorf("ExtractBillingCycle(%q) = (%s, %v), want (%s, %v)", tt.text, cycle, explicit, tt.wantCycle, tt.wantExplicit)
			}
		})
	}
}

func TestClassifyRecurrence(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		wantRecurring bool
		wantOneTime   bool
	}{
		{"recurring", "Your plan auto-renews every month", true, false},
		{"one-time", "Your one-time purchase confirmation", false, true},
		{"recurring overrides one-time", "one-time setup fee, then billed monthly", true, false},
		{"neither", "Your payment receipt", false, false},
		{"non-recurring", "This is a non-recurring charge of $54.99.", false, true},
		{"nonrecurring fee", "A nonrecurring payment was processed", false, true},
		{"recurring charge", "This recurring charge appears monthly", true, false},
		{"negated auto-renew", "This license does not auto-renew. One-time payment.", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recurring, oneTime := ClassifyRecurrence(tt.text)
			if recurring != tt.wantRecurring || oneTime != tt.wantOneTime {
				t.Errorf("ClassifyRecurrence() = (%v, %v), want (%v, %v)", recurring, oneTime, tt.wantRecurring, tt.wantOneTime)
			}
		})
	}
}

func TestPhraseDetectors(t *testing.T) {
	if !HasTrialPhrase("Your free trial ends soon") {
		t.Error("expected trial phrase")
	}
	if HasTrialPhrase("Your payment receipt") {
		t.Error("unexpected trial phrase")
	}
	if !HasCancellationPhrase("Your subscription has been cancelled") {
		t.Error("expected cancellation phrase")
	}
	if !HasCancellationPhrase("We're sorry to see you go") {
		t.Error("expected cancellation phrase (apostrophe form)")
	}
	if HasCancellationPhrase("Your plan will renew on May 1") {
		t.Error("unexpected cancellation phrase")
	}
	if !HasPausePhrase("Your membership paused until June") {
		t.Error("expected pause phrase")
	}
}

func TestExtractRenewalDate(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		text string
		want string // YYYY-MM-DD, empty for nil
	}{
		{"long form", "Next billing date: March 15, 2026", "2026-03-15"},
		{"iso", "Your plan renews on 2026-04-01.", "2026-04-01"},
		{"day month year", "You will be charged on 5 April 2026", "2026-04-05"},
		{"us numeric", "Next payment date: 04/20/2026", "2026-04-20"},
		{"ordinal", "Your membership renews on March 3rd, 2026", "2026-03-03"},
		{"abbreviated month", "Trial ends on Sept. 9, 2026", "2026-09-09"},
		{"is connector", "Your next billing date is Apr 2, 2026", "2026-04-02"},
		{"within stale tolerance", "Renews on February 23, 2026", "2026-02-23"},
		{"stale date rejected", "Renews on February 1, 2026", ""},
		{"impossible date rejected", "Next payment date: 02/30/2026", ""},
		{"no anchor", "Paid on March 15, 2026", ""},
		{"anchor without date", "Next billing date will be shown in your account", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractRenewalDate(tt.text, now)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("ExtractRenewalDate() = %v, want nil", got.Format("2006-01-02"))
				}
				return
			}
			if got == nil {
				t.Fatalf("ExtractRenewalDate() = nil, want %s", tt.want)
			}
			if got.Format("2006-01-02") != tt.want {
				t.Errorf("ExtractRenewalDate() = %s, want %s", got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestBillingQuery(t *testing.T) {
	q := BillingQuery(365)
	if !strings.HasSuffix(q, ") newer_than:365d") {
		t.Errorf("query suffix wrong: %q", q)
	}
	for _, term := range []string{"receipt OR invoice", `"auto-renew"`, `"thank you for your payment"`} {
		if !strings.Contains(q, term) {
			t.Errorf("query missing %s", term)
		}
	}
	if !strings.Contains(BillingQuery(0), "newer_than:365d") {
		t.Error("non-positive window should default to 365 days")
	}
}
