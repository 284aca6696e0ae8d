package domain

import "time"

// MessageRef is what the mailbox list call returns for a candidate message.
type MessageRef struct {
	ID           string    `json:"id"`
	ThreadID     string    `json:"thread_id"`
	InternalDate time.Time `json:"internal_date"`
}

// RawEmail is the subject/sender/body triple the detector works on.
type RawEmail struct {
	MessageID   string    `json:"message_id"`
	ThreadID    string    `json:"thread_id"`
	Subject     string    `json:"subject"`
	Sender      string    `json:"sender"`
	BodyExcerpt string    `json:"body_excerpt"`
	ReceivedAt  time.Time `json:"received_at"`
}

// SignalSet is the set of boolean heuristics observed on one email.
type SignalSet struct {
	SenderMatched           bool `json:"sender_matched"`
	BillingKeywordInSubject bool `json:"billing_kw_subject"`
	BillingKeywordInBody    bool `json:"billing_kw_body"`
	RecurringPhraseFound    bool `json:"recurring"`
	OneTimePhraseFound      bool `json:"one_time"`
	AmountFound             bool `json:"amount"`
	BillingCycleExplicit    bool `json:"cycle_explicit"`
	NextDateExtracted       bool `json:"next_date"`
	TrialPhraseFound        bool `json:"trial"`
	HasPriorHistory         bool `json:"prior_history"`
}

type SignalCategory string

const (
	SignalSenderMatch          SignalCategory = "SENDER_MATCH"
	SignalSubjectBillingKW     SignalCategory = "SUBJECT_BILLING_KW"
	SignalBodyBillingKW        SignalCategory = "BODY_BILLING_KW"
	SignalRecurringExplicit    SignalCategory = "RECURRING_EXPLICIT"
	SignalAmountDetected       SignalCategory = "AMOUNT_DETECTED"
	SignalBillingCycleExplicit SignalCategory = "BILLING_CYCLE_EXPLICIT"
	SignalNextDateExtracted    SignalCategory = "NEXT_DATE_EXTRACTED"
	SignalTrial                SignalCategory = "TRIAL_SIGNAL"
	SignalHistoricalRecurrence SignalCategory = "HISTORICAL_RECURRENCE"
	SignalOneTimePenalty       SignalCategory = "ONE_TIME_PENALTY"
)

// ConfidenceSignal is one fired heuristic with its weight.
type ConfidenceSignal struct {
	Category SignalCategory `json:"category"`
	Label    string         `json:"label"`
	Points   int            `json:"points"`
}

type Suggestion string

const (
	SuggestAuto   Suggestion = "auto"
	SuggestAsk    Suggestion = "ask"
	SuggestIgnore Suggestion = "ignore"
)

// DetectionResult is a single email classified as a (probable) subscription charge.
type DetectionResult struct {
	CanonicalName   string             `json:"canonical_name"`
	Amount          float64            `json:"amount"`
	Currency        string             `json:"currency"`
	BillingCycle    BillingCycle       `json:"billing_cycle"`
	IsOneTime       bool               `json:"is_one_time"`
	IsRecurring     bool               `json:"is_recurring"`
	IsTrial         bool               `json:"is_trial"`
	NextBillingDate *time.Time         `json:"next_billing_date,omitempty"`
	CategoryName    string             `json:"category_name"`
	ConfidenceScore int                `json:"confidence_score"`
	Suggestion      Suggestion         `json:"suggestion"`
	Reasons         []string           `json:"reasons"`
	Signals         []ConfidenceSignal `json:"signals"`
	SignalSet       SignalSet          `json:"signal_set"`
	SourceThreadID  string             `json:"source_thread_id"`
	SourceMessageID string             `json:"source_message_id"`
	SourceSender    string             `json:"source_sender"`
	LogoURL         string             `json:"logo_url"`
	WebsiteURL      string             `json:"website_url"`
}

// StatusChangeSignal marks an email announcing a cancellation or pause.
type StatusChangeSignal struct {
	CanonicalName string             `json:"canonical_name"`
	NewStatus     SubscriptionStatus `json:"new_status"`
}

// EmailAnalysis pairs the two independent detections run on one message.
type EmailAnalysis struct {
	Ref          MessageRef
	Detection    *DetectionResult
	StatusChange *StatusChangeSignal
}
