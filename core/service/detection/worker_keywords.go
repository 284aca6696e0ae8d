package detection

import (
	"fmt"
	"strings"
)

// =============================================================================
// Keyword lists
// =============================================================================

// billingKeywords marks an email as billing-related. Matched as lowercase substrings.
var billingKeywords = []string{
	// Core billing words
	"receipt", "invoice", "billing", "payment", "subscription", "renewed", "renewal",
	"charged", "charge", "paid", "billed", "bill", "fee", "debit",
	// Order & purchase
	"your order", "order confirmation", "order receipt", "purchase confirmation",
	"thank you for your purchase", "thank you for your order", "thanks for your purchase",
	"your receipt", "purchase receipt", "order total", "subtotal",
	// Payment confirmations
	"payment confirmation", "payment received", "payment successful", "payment processed",
	"payment failed", "payment declined", "payment due", "payment method", "amount due",
	"amount paid", "total paid", "total charged", "next payment", "next billing",
	"next charge", "due date", "overdue", "past due", "thank you for your payment",
	"thanks for your payment", "we received your payment",
	// Subscription lifecycle
	"your subscription", "subscription confirmed", "subscription activated",
	"subscription renewed", "subscription renewal", "subscription update",
	"subscription receipt", "subscription fee", "monthly subscription",
	"annual subscription", "has been charged", "successfully charged",
	"successfully renewed", "auto-renew", "auto-renewal", "auto renew", "autorenewal",
	"will be charged", "will be renewed", "will renew", "recurring payment",
	"recurring charge", "recurring billing", "monthly charge", "annual charge",
	"yearly charge",
	// Plan & membership
	"your plan", "plan renewed", "plan renewal", "plan activated", "plan confirmation",
	"service fee", "license fee", "license renewed", "license renewal", "membership",
	"membership renewed", "membership confirmation",
	// Trial
	"trial ending", "trial expires", "trial period", "free trial", "trial ended",
	// Transaction & financial
	"statement", "transaction", "direct debit", "standing order",
	"thank you for subscribing", "thanks for subscribing", "cancellation confirmed",
	"subscription cancelled",
}

// recurringPhrases state that the charge repeats without user action.
// "next billing date" is deliberately absent: it anchors the date extractor only.
var recurringPhrases = []string{
	"auto-renew", "auto renew", "autorenew", "automatically renew", "renews automatically",
	"will renew", "will be renewed", "recurring payment", "recurring charge",
	"recurring billing", "recurring subscription", "is recurring", "successfully renewed",
	"subscription renewed", "membership renewed", "plan renewed", "has been renewed",
	"billed monthly", "billed annually", "billed yearly", "billed every", "charged every",
	"until you cancel", "until cancelled", "until canceled", "cancel anytime",
}

// negatedRecurring is removed before the recurring check so that
// "non-recurring charge" cannot satisfy "recurring charge".
var negatedRecurring = strings.NewReplacer(
	"non-recurring", "", "nonrecurring", "", "non recurring", "",
	"not auto-renew", "", "not auto renew", "", "won't auto-renew", "",
)

// oneTimePhrases describe a single purchase.
var oneTimePhrases = []string{
	"one-time", "one time purchase", "one time payment", "one time charge",
	"single purchase", "non-recurring", "nonrecurring", "lifetime license",
	"lifetime access", "lifetime plan", "your order has shipped", "has shipped",
	"gift card", "you rented", "rental receipt", "you bought",
}

var trialPhrases = []string{
	"free trial", "trial ending", "trial ends", "trial ended", "trial expires",
	"trial will end", "trial period", "your trial", "after your trial",
	"converts to a paid", "convert to a paid", "converting to paid",
}

var cancellationPhrases = []string{
	"subscription cancelled", "subscription canceled", "cancellation confirmed",
	"has been cancelled", "has been canceled", "you've cancelled", "you've canceled",
	"you have cancelled", "you have canceled", "membership cancelled",
	"membership canceled", "we're sorry to see you go", "sorry to see you go",
	"your subscription has ended", "will not renew", "won't renew",
}

var pausePhrases = []string{
	"subscription paused", "subscription is paused", "membership paused",
	"has been paused", "is now paused", "you've paused", "you have paused",
	"pause confirmed",
}

type cycleRule struct {
	cycle    string
	keywords []string
}

// cycleRules are checked in order; the first hit wins.
var cycleRules = []cycleRule{
	{"yearly", []string{"annual", "yearly", "year plan", "/year", "per year"}},
	{"quarterly", []string{"quarterly", "every 3 months", "3-month"}},
	{"weekly", []string{"weekly", "per week", "/week"}},
	{"monthly", []string{"monthly", "per month", "every month", "/month"}},
}

// gmailQueryTerms are OR-ed into the mailbox search.
var gmailQueryTerms = []string{
	"receipt", "invoice", "billing", "billed", "bill", "subscription", "renewal",
	"payment", "paid", "charge", "charged", "fee", "debit", "statement", "membership",
	"overdue", "recurring",
	`"auto-renew"`, `"auto-renewal"`, `"order confirmation"`, `"payment confirmation"`,
	`"payment received"`, `"payment successful"`, `"payment processed"`, `"amount due"`,
	`"payment due"`, `"next payment"`, `"will be charged"`, `"will renew"`,
	`"successfully charged"`, `"has been charged"`, `"your subscription"`, `"your plan"`,
	`"plan renewed"`, `"trial ending"`, `"free trial"`, `"thank you for subscribing"`,
	`"recurring payment"`, `"recurring charge"`, `"subscription fee"`, `"service fee"`,
	`"license fee"`, `"direct debit"`, `"thank you for your payment"`,
}

// BillingQuery builds the mailbox search for billing mail over the last windowDays.
func BillingQuery(windowDays int) string {
	if windowDays <= 0 {
		windowDays = 365
	}
	return fmt.Sprintf("(%s) newer_than:%dd", strings.Join(gmailQueryTerms, " OR "), windowDays)
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
