package detection

import (
	"strings"

	"subscription_server/core/domain"
)

// =============================================================================
// Signal extractors
// =============================================================================

// DetectBillingKeywords reports whether a billing keyword occurs in the subject,
// and whether one occurs in the body while the subject has none.
func DetectBillingKeywords(subject, body string) (inSubject, inBodyOnly bool) {
	inSubject = containsAny(strings.ToLower(subject), billingKeywords)
	if inSubject {
		return true, false
	}
	return false, containsAny(strings.ToLower(body), billingKeywords)
}

// ExtractBillingCycle returns the cycle named in text and whether it was explicit.
// Without any cycle keyword the cycle defaults to monthly, not explicit.
func ExtractBillingCycle(text string) (domain.BillingCycle, bool) {
	lower := strings.ToLower(text)
	for _, r := range cycleRules {
		if containsAny(lower, r.keywords) {
			return domain.BillingCycle(r.cycle), true
		}
	}
	return domain.CycleMonthly, false
}

// ClassifyRecurrence reports recurring language, and one-time language that is
// not overridden by recurring language.
func ClassifyRecurrence(text string) (isRecurring, isOneTime bool) {
	lower := strings.ToLower(text)
	isRecurring = containsAny(negatedRecurring.Replace(lower), recurringPhrases)
	if isRecurring {
		return true, false
	}
	return false, containsAny(lower, oneTimePhrases)
}

func HasTrialPhrase(text string) bool {
	return containsAny(strings.ToLower(text), trialPhrases)
}

func HasCancellationPhrase(text string) bool {
	return containsAny(strings.ToLower(text), cancellationPhrases)
}

func HasPausePhrase(text string) bool {
	return containsAny(strings.ToLower(text), pausePhrases)
}
