package detection

import (
	"math"
	"strings"

	"subscription_server/core/domain"
)

// =============================================================================
// Confidence Scorer
// =============================================================================

// Signal weights. MaxRaw is the sum of every positive weight, subject and body
// keyword included, even though only one of the two can fire.
const (
	WeightSenderMatch          = 35
	WeightSubjectBillingKW     = 20
	WeightBodyBillingKW        = 8
	WeightRecurringExplicit    = 15
	WeightAmountDetected       = 15
	WeightBillingCycleExplicit = 5
	WeightNextDateExtracted    = 4
	WeightTrial                = 3
	WeightHistoricalRecurrence = 15
	WeightOneTimePenalty       = -30

	MaxRaw = WeightSenderMatch + WeightSubjectBillingKW + WeightBodyBillingKW +
		WeightRecurringExplicit + WeightAmountDetected + WeightBillingCycleExplicit +
		WeightNextDateExtracted + WeightTrial + WeightHistoricalRecurrence // 120
)

// Score caps and routing thresholds.
const (
	SoftCap         = 90
	HardCap         = 95
	AutoThreshold   = 90
	AskThreshold    = 60
	ReasonSeparator = " | "
)

var signalLabels = map[domain.SignalCategory]string{
	domain.SignalSenderMatch:          "Known subscription service sender",
	domain.SignalSubjectBillingKW:     "Billing keyword in subject line",
	domain.SignalBodyBillingKW:        "Billing keyword in email body",
	domain.SignalRecurringExplicit:    "Explicit recurring / auto-renewal language",
	domain.SignalAmountDetected:       "Charge amount extracted",
	domain.SignalBillingCycleExplicit: "Billing cycle explicitly stated",
	domain.SignalNextDateExtracted:    "Renewal date extracted from email",
	domain.SignalTrial:                "Trial ending or converting to paid plan",
	domain.SignalHistoricalRecurrence: "Previously detected from this service",
	domain.SignalOneTimePenalty:       "One-time purchase language (penalty)",
}

var signalWeights = map[domain.SignalCategory]int{
	domain.SignalSenderMatch:          WeightSenderMatch,
	domain.SignalSubjectBillingKW:     WeightSubjectBillingKW,
	domain.SignalBodyBillingKW:        WeightBodyBillingKW,
	domain.SignalRecurringExplicit:    WeightRecurringExplicit,
	domain.SignalAmountDetected:       WeightAmountDetected,
	domain.SignalBillingCycleExplicit: WeightBillingCycleExplicit,
	domain.SignalNextDateExtracted:    WeightNextDateExtracted,
	domain.SignalTrial:                WeightTrial,
	domain.SignalHistoricalRecurrence: WeightHistoricalRecurrence,
	domain.SignalOneTimePenalty:       WeightOneTimePenalty,
}

// ConfidenceResult is the scorer output.
type ConfidenceResult struct {
	Score      int
	Raw        int
	Reasons    []string // positive labels, in firing order
	Signals    []domain.ConfidenceSignal
	Suggestion domain.Suggestion
}

// Reason joins the positive labels for storage.
func (r ConfidenceResult) Reason() string {
	return strings.Join(r.Reasons, ReasonSeparator)
}

// ReasonWithPenalty joins every fired label, penalty included.
func (r ConfidenceResult) ReasonWithPenalty() string {
	labels := make([]string, 0, len(r.Signals))
	for _, s := range r.Signals {
		labels = append(labels, s.Label)
	}
	return strings.Join(labels, ReasonSeparator)
}

// Score turns a signal set into a 0-95 confidence and a routing suggestion.
func Score(s domain.SignalSet) ConfidenceResult {
	fired := make([]domain.ConfidenceSignal, 0, 10)
	add := func(c domain.SignalCategory) {
		fired = append(fired, domain.ConfidenceSignal{Category: c, Label: signalLabels[c], Points: signalWeights[c]})
	}

	if s.SenderMatched {
		add(domain.SignalSenderMatch)
	}
	if s.BillingKeywordInSubject {
		add(domain.SignalSubjectBillingKW)
	} else if s.BillingKeywordInBody {
		add(domain.SignalBodyBillingKW)
	}
	if s.RecurringPhraseFound {
		add(domain.SignalRecurringExplicit)
	}
	if s.AmountFound {
		add(domain.SignalAmountDetected)
	}
	if s.BillingCycleExplicit {
		add(domain.SignalBillingCycleExplicit)
	}
	if s.NextDateExtracted {
		add(domain.SignalNextDateExtracted)
	}
	if s.TrialPhraseFound {
		add(domain.SignalTrial)
	}
	if s.HasPriorHistory {
		add(domain.SignalHistoricalRecurrence)
	}
	if s.OneTimePhraseFound && !s.RecurringPhraseFound {
		add(domain.SignalOneTimePenalty)
	}

	raw := 0
	reasons := make([]string, 0, len(fired))
	for _, f := range fired {
		raw += f.Points
		if f.Points > 0 {
			reasons = append(reasons, f.Label)
		}
	}

	limit := SoftCap
	if s.SenderMatched && s.RecurringPhraseFound && s.HasPriorHistory {
		limit = HardCap
	}
	score := int(math.Round(float64(max(0, raw)) / MaxRaw * 100))
	score = min(score, limit)

	return ConfidenceResult{
		Score:      score,
		Raw:        raw,
		Reasons:    reasons,
		Signals:    fired,
		Suggestion: Suggest(score),
	}
}

// Suggest routes a score: >=90 auto, 60-89 ask, below 60 ignore.
func Suggest(score int) domain.Suggestion {
	switch {
	case score >= AutoThreshold:
		return domain.SuggestAuto
	case score >= AskThreshold:
		return domain.SuggestAsk
	default:
		return domain.SuggestIgnore
	}
}
