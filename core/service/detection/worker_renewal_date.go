package detection

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// Renewal date extraction
// =============================================================================

// StaleDateTolerance is how far in the past an extracted date may lie.
const StaleDateTolerance = 7 * 24 * time.Hour

const (
	monthNames = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?`
	ordinal    = `(?:st|nd|rd|th)?`

	isoDate     = `\d{4}-\d{2}-\d{2}`
	longDate    = monthNames + `\s+\d{1,2}` + ordinal + `,?\s+\d{4}`
	euroDate    = `\d{1,2}` + ordinal + `\s+` + monthNames + `,?\s+\d{4}`
	numericDate = `\d{1,2}/\d{1,2}/\d{4}`

	dateToken = `(` + isoDate + `|` + longDate + `|` + euroDate + `|` + numericDate + `)`

	// separator between the anchor phrase and the date: "date: ", "date is ", "on ", "- "
	anchorGap = `\s*(?:[:\-–]\s*)?(?:(?:is|on|of)\s+)?(?:on\s+)?`
)

// renewalAnchors are tried in order; the first one that yields a parseable date wins.
var renewalAnchors = []string{
	`next billing date`,
	`next billing`,
	`next payment date`,
	`next payment`,
	`next charge date`,
	`next charge`,
	`renewal date`,
	`renews on`,
	`will renew on`,
	`auto-renews on`,
	`will be charged on`,
	`will be billed on`,
	`trial ends on`,
	`trial will end on`,
	`trial ends`,
}

var renewalPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(renewalAnchors))
	for _, a := range renewalAnchors {
		out = append(out, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(a)+anchorGap+dateToken))
	}
	return out
}()

var monthByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

var (
	longDateRe    = regexp.MustCompile(`^([a-z]+)\.?\s+(\d{1,2})` + ordinal + `,?\s+(\d{4})$`)
	euroDateRe    = regexp.MustCompile(`^(\d{1,2})` + ordinal + `\s+([a-z]+)\.?,?\s+(\d{4})$`)
	numericDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// ExtractRenewalDate finds the next renewal date announced in text. Dates more
// than StaleDateTolerance before now are ignored (quoted or forwarded mail).
func ExtractRenewalDate(text string, now time.Time) *time.Time {
	for _, re := range renewalPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		d, ok := parseDateToken(m[1])
		if !ok {
			continue
		}
		if d.Before(truncateDay(now).Add(-StaleDateTolerance)) {
			return nil
		}
		return &d
	}
	return nil
}

func parseDateToken(tok string) (time.Time, bool) {
	tok = strings.ToLower(strings.TrimSpace(tok))

	if t, err := time.Parse("2006-01-02", tok); err == nil {
		return t, true
	}
	if m := numericDateRe.FindStringSubmatch(tok); m != nil {
		return buildDate(m[3], m[1], m[2])
	}
	if m := longDateRe.FindStringSubmatch(tok); m != nil {
		if mon, ok := monthFromName(m[1]); ok {
			return buildDate(m[3], strconv.Itoa(int(mon)), m[2])
		}
	}
	if m := euroDateRe.FindStringSubmatch(tok); m != nil {
		if mon, ok := monthFromName(m[2]); ok {
			return buildDate(m[3], strconv.Itoa(int(mon)), m[1])
		}
	}
	return time.Time{}, false
}

func monthFromName(name string) (time.Month, bool) {
	if len(name) < 3 {
		return 0, false
	}
	m, ok := monthByPrefix[name[:3]]
	return m, ok
}

// buildDate rejects impossible calendar dates instead of letting time.Date normalise them.
func buildDate(year, month, day string) (time.Time, bool) {
	y, err1 := strconv.Atoi(year)
	mo, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil || mo < 1 || mo > 12 || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != time.Month(mo) {
		return time.Time{}, false
	}
	return t, true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
