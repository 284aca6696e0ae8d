package detection

import (
	"testing"
	"time"

	"subscription_server/core/domain"
)

var scanNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	if c.Len() < 80 {
		t.Fatalf("catalog has %d entries, want at least 80", c.Len())
	}

	tests := []struct {
		sender       string
		wantName     string
		wantCategory string
		wantOK       bool
	}{
		{"billing@netflix.com", "Netflix", "Entertainment", true},
		{"Netflix <info@mailer.NETFLIX.com>", "Netflix", "Entertainment", true},
		{"no-reply@github.com", "GitHub", "Developer Tools", true},
		{"receipts@openai.com", "ChatGPT Plus", "AI Tools", true},
		{"noreply@hbomax.com", "Max (HBO)", "Entertainment", true},
		{"hello@unknown-shop.io", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.sender, func(t *testing.T) {
			e, ok := c.Lookup(tt.sender)
			if ok != tt.wantOK {
				t.Fatalf("Lookup() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if e.CanonicalName != tt.wantName || e.DefaultCategory != tt.wantCategory {
				t.Errorf("Lookup() = %s/%s, want %s/%s", e.CanonicalName, e.DefaultCategory, tt.wantName, tt.wantCategory)
			}
		})
	}
}

func TestCatalog_FirstMatchWins(t *testing.T) {
	entries := []PatternEntry{
		{SenderFragment: "max.com", CanonicalName: "First"},
		{SenderFragment: "hbomax.com", CanonicalName: "Second"},
	}
	c := NewCatalog(entries)

	e, ok := c.Lookup("news@hbomax.com")
	if !ok || e.CanonicalName != "First" {
		t.Fatalf("Lookup() = %v/%v, want First", e.CanonicalName, ok)
	}

	// the catalog is a copy
	entries[0].CanonicalName = "Mutated"
	if e, _ := c.Lookup("news@hbomax.com"); e.CanonicalName != "First" {
		t.Errorf("catalog changed after source mutation: %s", e.CanonicalName)
	}
}

func TestCatalog_FragmentsAreLowercased(t *testing.T) {
	c := NewCatalog([]PatternEntry{{SenderFragment: "Example.COM", CanonicalName: "Example"}})
	if _, ok := c.Lookup("billing@example.com"); !ok {
		t.Error("expected case-insensitive match")
	}
}

func netflixReceipt() *domain.RawEmail {
	return &domain.RawEmail{
		MessageID:   "m-1",
		ThreadID:    "t-1",
		Subject:     "Your Netflix payment receipt",
		Sender:      "billing@netflix.com",
		BodyExcerpt: "Hi Alex, we received $15.99 for your membership. Next billing date: March 15, 2026.",
	}
}

func TestDetector_NetflixAsk(t *testing.T) {
	d := NewDetector(DefaultCatalog())

	got := d.Detect(netflixReceipt(), Options{Now: scanNow})
	if got == nil {
		t.Fatal("Detect() = nil")
	}
	if got.CanonicalName != "Netflix" || got.Currency != "USD" || got.Amount != 15.99 {
		t.Errorf("got %s %s %v", got.CanonicalName, got.Currency, got.Amount)
	}
	if got.BillingCycle != domain.CycleMonthly || got.SignalSet.BillingCycleExplicit {
		t.Errorf("cycle = %s explicit=%v, want implicit monthly", got.BillingCycle, got.SignalSet.BillingCycleExplicit)
	}
	if got.NextBillingDate == nil || got.NextBillingDate.Format("2006-01-02") != "2026-03-15" {
		t.Errorf("NextBillingDate = %v", got.NextBillingDate)
	}
	if got.IsRecurring || got.IsOneTime {
		t.Errorf("recurring=%v oneTime=%v, want both false", got.IsRecurring, got.IsOneTime)
	}
	if got.ConfidenceScore != 62 || got.Suggestion != domain.SuggestAsk {
		t.Errorf("score = %d (%s), want 62 (ask)", got.ConfidenceScore, got.Suggestion)
	}
	if got.SourceThreadID != "t-1" || got.WebsiteURL != "https://netflix.com" || got.LogoURL != "https://logo.clearbit.com/netflix.com" {
		t.Errorf("source fields = %s %s %s", got.SourceThreadID, got.WebsiteURL, got.LogoURL)
	}
	if got.CategoryName != "Entertainment" {
		t.Errorf("CategoryName = %s", got.CategoryName)
	}
}

func TestDetector_NetflixAutoWithHistory(t *testing.T) {
	d := NewDetector(nil)
	email := netflixReceipt()
	email.BodyExcerpt += " Your plan auto-renews every month."

	got := d.Detect(email, Options{Now: scanNow, HasPriorHistory: true})
	if got == nil {
		t.Fatal("Detect() = nil")
	}
	if !got.IsRecurring || !got.SignalSet.BillingCycleExplicit || !got.SignalSet.HasPriorHistory {
		t.Fatalf("signals = %+v", got.SignalSet)
	}
	if got.ConfidenceScore != 91 || got.Suggestion != domain.SuggestAuto {
		t.Errorf("score = %d (%s), want 91 (auto)", got.ConfidenceScore, got.Suggestion)
	}
}

func TestDetector_AdobeOneTime(t *testing.T) {
	d := NewDetector(nil)
	got := d.Detect(&domain.RawEmail{
		ThreadID:    "t-adobe",
		Subject:     "Your one-time purchase confirmation",
		Sender:      "billing@adobe.com",
		BodyExcerpt: "Order total: $54.99. Thank you for shopping with Adobe.",
	}, Options{Now: scanNow})

	if got == nil {
		t.Fatal("Detect() = nil")
	}
	if !got.IsOneTime || got.IsRecurring {
		t.Errorf("oneTime=%v recurring=%v, want true/false", got.IsOneTime, got.IsRecurring)
	}
	if got.Suggestion != domain.SuggestIgnore {
		t.Errorf("Suggestion = %s, want ignore", got.Suggestion)
	}
}

func TestDetector_NonRecurringChargeIsOneTime(t *testing.T) {
	d := NewDetector(nil)
	got := d.Detect(&domain.RawEmail{
		ThreadID:    "t-adobe-2",
		Subject:     "Your Adobe receipt",
		Sender:      "billing@adobe.com",
		BodyExcerpt: "This is a non-recurring charge of $54.99. Next billing date: March 15, 2026.",
	}, Options{Now: scanNow})

	if got == nil {
		t.Fatal("Detect() = nil")
	}
	if !got.IsOneTime || got.IsRecurring {
		t.Errorf("oneTime=%v recurring=%v, want true/false", got.IsOneTime, got.IsRecurring)
	}
	if got.Suggestion != domain.SuggestIgnore {
		t.Errorf("Suggestion = %s, want ignore", got.Suggestion)
	}
}

func TestDetector_Rejections(t *testing.T) {
	d := NewDetector(nil)

	tests := []struct {
		name  string
		email *domain.RawEmail
	}{
		{"nil email", nil},
		{"no billing keyword", &domain.RawEmail{Subject: "New episodes this week", Sender: "info@netflix.com", BodyExcerpt: "Watch now for $0"}},
		{"unknown sender", &domain.RawEmail{Subject: "Your receipt", Sender: "shop@unknown.example", BodyExcerpt: "$12.00"}},
		{"no amount", &domain.RawEmail{Subject: "Your receipt", Sender: "billing@spotify.com", BodyExcerpt: "Thanks for listening"}},
		{"zero amount", &domain.RawEmail{Subject: "Your receipt", Sender: "billing@spotify.com", BodyExcerpt: "Total $0.00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Detect(tt.email, Options{Now: scanNow}); got != nil {
				t.Errorf("Detect() = %+v, want nil", got)
			}
		})
	}
}

func TestDetector_DetectStatusChange(t *testing.T) {
	d := NewDetector(nil)

	tests := []struct {
		name  string
		email *domain.RawEmail
		want  *domain.StatusChangeSignal
	}{
		{
			name:  "cancellation",
			email: &domain.RawEmail{Subject: "Your subscription has been cancelled", Sender: "no-reply@spotify.com"},
			want:  &domain.StatusChangeSignal{CanonicalName: "Spotify", NewStatus: domain.StatusCancelled},
		},
		{
			name:  "pause",
			email: &domain.RawEmail{Subject: "Membership paused", Sender: "hello@headspace.com", BodyExcerpt: "Your membership paused until June."},
			want:  &domain.StatusChangeSignal{CanonicalName: "Headspace", NewStatus: domain.StatusPaused},
		},
		{
			name:  "cancellation beats pause",
			email: &domain.RawEmail{Subject: "Subscription paused", Sender: "x@hulu.com", BodyExcerpt: "Later it has been cancelled."},
			want:  &domain.StatusChangeSignal{CanonicalName: "Hulu", NewStatus: domain.StatusCancelled},
		},
		{
			name:  "unknown sender",
			email: &domain.RawEmail{Subject: "Subscription cancelled", Sender: "x@unknown.example"},
		},
		{
			name:  "plain receipt",
			email: netflixReceipt(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.DetectStatusChange(tt.email)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("DetectStatusChange() = %+v, want nil", got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Errorf("DetectStatusChange() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDetector_HistoryLookup(t *testing.T) {
	d := NewDetector(nil)
	seen := map[string]bool{"Netflix": true}

	if !d.HistoryLookup("billing@netflix.com", func(n string) bool { return seen[n] }) {
		t.Error("expected history for Netflix")
	}
	if d.HistoryLookup("billing@spotify.com", func(n string) bool { return seen[n] }) {
		t.Error("unexpected history for Spotify")
	}
	if d.HistoryLookup("x@unknown.example", func(string) bool { return true }) {
		t.Error("unknown sender must not report history")
	}
}
