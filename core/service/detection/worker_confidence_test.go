package detection

import (
	"strings"
	"testing"

	"subscription_server/core/domain"
)

func TestSuggest_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  domain.Suggestion
	}{
		{0, domain.SuggestIgnore},
		{59, domain.SuggestIgnore},
		{60, domain.SuggestAsk},
		{89, domain.SuggestAsk},
		{90, domain.SuggestAuto},
		{95, domain.SuggestAuto},
	}

	for _, tt := range tests {
		if got := Suggest(tt.score); got != tt.want {
			t.Errorf("Suggest(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestMaxRaw(t *testing.T) {
	if MaxRaw != 120 {
		t.Fatalf("MaxRaw = %d, want 120", MaxRaw)
	}
}

func TestScore_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		signals     domain.SignalSet
		wantRaw     int
		wantScore   int
		wantSuggest domain.Suggestion
	}{
		{
			name: "receipt without recurring language lands in ask",
			signals: domain.SignalSet{
				SenderMatched:           true,
				BillingKeywordInSubject: true,
				AmountFound:             true,
				NextDateExtracted:       true,
			},
			wantRaw:     74,
			wantScore:   62,
			wantSuggest: domain.SuggestAsk,
		},
		{
			name: "recurring, explicit cycle and history reach auto",
			signals: domain.SignalSet{
				SenderMatched:           true,
				BillingKeywordInSubject: true,
				RecurringPhraseFound:    true,
				AmountFound:             true,
				BillingCycleExplicit:    true,
				NextDateExtracted:       true,
				HasPriorHistory:         true,
			},
			wantRaw:     109,
			wantScore:   91,
			wantSuggest: domain.SuggestAuto,
		},
		{
			name: "one-time purchase is penalised into ignore",
			signals: domain.SignalSet{
				SenderMatched:           true,
				BillingKeywordInSubject: true,
				AmountFound:             true,
				OneTimePhraseFound:      true,
			},
			wantRaw:     40,
			wantScore:   33,
			wantSuggest: domain.SuggestIgnore,
		},
		{
			name: "penalty below zero is floored",
			signals: domain.SignalSet{
				BillingKeywordInBody: true,
				OneTimePhraseFound:   true,
			},
			wantRaw:     -22,
			wantScore:   0,
			wantSuggest: domain.SuggestIgnore,
		},
		{
			name: "recurring language suppresses the penalty",
			signals: domain.SignalSet{
				SenderMatched:           true,
				BillingKeywordInSubject: true,
				AmountFound:             true,
				RecurringPhraseFound:    true,
				OneTimePhraseFound:      true,
			},
			wantRaw:     85,
			wantScore:   71,
			wantSuggest: domain.SuggestAsk,
		},
		{
			name: "subject keyword outweighs body keyword",
			signals: domain.SignalSet{
				BillingKeywordInSubject: true,
				BillingKeywordInBody:    true,
			},
			wantRaw:     20,
			wantScore:   17,
			wantSuggest: domain.SuggestIgnore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.signals)
			if got.Raw != tt.wantRaw {
				t.Errorf("Raw = %d, want %d", got.Raw, tt.wantRaw)
			}
			if got.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", got.Score, tt.wantScore)
			}
			if got.Suggestion != tt.wantSuggest {
				t.Errorf("Suggestion = %s, want %s", got.Suggestion, tt.wantSuggest)
			}
		})
	}
}

// Every combination of the ten flags stays within [0, 95] and agrees with Suggest.
func TestScore_BoundsOverAllCombinations(t *testing.T) {
	for mask := 0; mask < 1<<10; mask++ {
		s := domain.SignalSet{
			SenderMatched:           mask&(1<<0) != 0,
			BillingKeywordInSubject: mask&(1<<1) != 0,
			BillingKeywordInBody:    mask&(1<<2) != 0,
			RecurringPhraseFound:    mask&(1<<3) != 0,
			OneTimePhraseFound:      mask&(1<<4) != 0,
			AmountFound:             mask&(1<<5) != 0,
			BillingCycleExplicit:    mask&(1<<6) != 0,
			NextDateExtracted:       mask&(1<<7) != 0,
			TrialPhraseFound:        mask&(1<<8) != 0,
			HasPriorHistory:         mask&(1<<9) != 0,
		}
		r := Score(s)
		if r.Score < 0 || r.Score > HardCap {
			t.Fatalf("mask %010b: score %d out of range", mask, r.Score)
		}
		if !(s.SenderMatched && s.RecurringPhraseFound && s.HasPriorHistory) && r.Score > SoftCap {
			t.Fatalf("mask %010b: score %d above soft cap without the three strong signals", mask, r.Score)
		}
		if r.Suggestion != Suggest(r.Score) {
			t.Fatalf("mask %010b: suggestion %s disagrees with score %d", mask, r.Suggestion, r.Score)
		}
	}
}

func TestScore_ReasonsExcludePenalty(t *testing.T) {
	r := Score(domain.SignalSet{
		SenderMatched:        true,
		BillingKeywordInBody: true,
		AmountFound:          true,
		TrialPhraseFound:     true,
		OneTimePhraseFound:   true,
	})

	want := []string{
		"Known subscription service sender",
		"Billing keyword in email body",
		"Charge amount extracted",
		"Trial ending or converting to paid plan",
	}
	if strings.Join(r.Reasons, ",") != strings.Join(want, ",") {
		t.Fatalf("Reasons = %v, want %v", r.Reasons, want)
	}
	if r.Reason() != strings.Join(want, " | ") {
		t.Errorf("Reason() = %q", r.Reason())
	}
	if !strings.HasSuffix(r.ReasonWithPenalty(), "One-time purchase language (penalty)") {
		t.Errorf("ReasonWithPenalty() = %q", r.ReasonWithPenalty())
	}

	last := r.Signals[len(r.Signals)-1]
	if last.Category != domain.SignalOneTimePenalty || last.Points != -30 {
		t.Errorf("last signal = %+v, want one-time penalty", last)
	}
}
