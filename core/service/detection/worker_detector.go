package detection

import (
	"time"

	"subscription_server/core/domain"
)

// =============================================================================
// Detector
// =============================================================================

// Options carries the per-email context the extractors cannot see.
type Options struct {
	HasPriorHistory bool
	Now             time.Time
}

// Detector turns one email into an optional detection and an optional status change.
type Detector struct {
	catalog *Catalog
}

func NewDetector(catalog *Catalog) *Detector {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Detector{catalog: catalog}
}

func (d *Detector) Catalog() *Catalog { return d.catalog }

// HistoryLookup resolves the sender to a canonical name and asks seen whether
// that name already exists for the user.
func (d *Detector) HistoryLookup(sender string, seen func(name string) bool) bool {
	entry, ok := d.catalog.Lookup(sender)
	if !ok {
		return false
	}
	return seen(entry.CanonicalName)
}

// Detect returns nil when the email is not a billing email from a known sender
// or carries no charge amount.
func (d *Detector) Detect(email *domain.RawEmail, opts Options) *domain.DetectionResult {
	if email == nil {
		return nil
	}
	inSubject, inBody := DetectBillingKeywords(email.Subject, email.BodyExcerpt)
	if !inSubject && !inBody {
		return nil
	}

	entry, ok := d.catalog.Lookup(email.Sender)
	if !ok {
		return nil
	}

	text := email.Subject + " " + email.BodyExcerpt
	money, ok := ExtractAmount(text)
	if !ok {
		return nil
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cycle, explicit := ExtractBillingCycle(text)
	recurring, oneTime := ClassifyRecurrence(text)
	next := ExtractRenewalDate(text, now)
	trial := HasTrialPhrase(text)

	signals := domain.SignalSet{
		SenderMatched:           true,
		BillingKeywordInSubject: inSubject,
		BillingKeywordInBody:    inBody,
		RecurringPhraseFound:    recurring,
		OneTimePhraseFound:      oneTime,
		AmountFound:             true,
		BillingCycleExplicit:    explicit,
		NextDateExtracted:       next != nil,
		TrialPhraseFound:        trial,
		HasPriorHistory:         opts.HasPriorHistory,
	}
	conf := Score(signals)

	return &domain.DetectionResult{
		CanonicalName:   entry.CanonicalName,
		Amount:          money.Amount,
		Currency:        money.Currency,
		BillingCycle:    cycle,
		IsOneTime:       oneTime,
		IsRecurring:     recurring,
		IsTrial:         trial,
		NextBillingDate: next,
		CategoryName:    entry.DefaultCategory,
		ConfidenceScore: conf.Score,
		Suggestion:      conf.Suggestion,
		Reasons:         conf.Reasons,
		Signals:         conf.Signals,
		SignalSet:       signals,
		SourceThreadID:  email.ThreadID,
		SourceMessageID: email.MessageID,
		SourceSender:    email.Sender,
		LogoURL:         entry.LogoURL,
		WebsiteURL:      entry.WebsiteURL,
	}
}

// DetectStatusChange reports a cancellation or pause announced by a known sender.
// Cancellation wins when both phrase sets match.
func (d *Detector) DetectStatusChange(email *domain.RawEmail) *domain.StatusChangeSignal {
	if email == nil {
		return nil
	}
	entry, ok := d.catalog.Lookup(email.Sender)
	if !ok {
		return nil
	}
	text := email.Subject + " " + email.BodyExcerpt
	switch {
	case HasCancellationPhrase(text):
		return &domain.StatusChangeSignal{CanonicalName: entry.CanonicalName, NewStatus: domain.StatusCancelled}
	case HasPausePhrase(text):
		return &domain.StatusChangeSignal{CanonicalName: entry.CanonicalName, NewStatus: domain.StatusPaused}
	}
	return nil
}
