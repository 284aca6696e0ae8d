package detection

import (
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// Amount / currency extraction
// =============================================================================

// Money is an extracted charge.
type Money struct {
	Amount   float64
	Currency string
}

type amountPattern struct {
	re       *regexp.Regexp
	currency string
}

// amountPatterns are tried in order against the original-case text; first
// positive match wins. Symbol forms precede ISO-code forms per currency.
var amountPatterns = []amountPattern{
	{regexp.MustCompile(`\$\s*(\d{1,4}(?:,\d{3})*(?:\.\d{2})?)`), "USD"},
	{regexp.MustCompile(`USD\s*(\d+(?:\.\d{2})?)`), "USD"},
	{regexp.MustCompile(`(\d+(?:\.\d{2})?)\s*USD`), "USD"},
	{regexp.MustCompile(`€\s*(\d{1,4}(?:[.,]\d{2,3})*(?:[.,]\d{2})?)`), "EUR"},
	{regexp.MustCompile(`EUR\s*(\d+(?:\.\d{2})?)`), "EUR"},
	{regexp.MustCompile(`(\d+(?:\.\d{2})?)\s*EUR`), "EUR"},
	{regexp.MustCompile(`£\s*(\d{1,4}(?:,\d{3})*(?:\.\d{2})?)`), "GBP"},
	{regexp.MustCompile(`GBP\s*(\d+(?:\.\d{2})?)`), "GBP"},
	{regexp.MustCompile(`(\d+(?:\.\d{2})?)\s*GBP`), "GBP"},
	{regexp.MustCompile(`₹\s*(\d{1,3}(?:,\d{2,3})*(?:\.\d{2})?)`), "INR"},
	{regexp.MustCompile(`INR\s*(\d+(?:\.\d{2})?)`), "INR"},
	{regexp.MustCompile(`(\d+(?:\.\d{2})?)\s*INR`), "INR"},
	{regexp.MustCompile(`CA\$\s*(\d+(?:\.\d{2})?)`), "CAD"},
	{regexp.MustCompile(`CAD\s*(\d+(?:\.\d{2})?)`), "CAD"},
	{regexp.MustCompile(`(\d+(?:\.\d{2})?)\s*CAD`), "CAD"},
	{regexp.MustCompile(`A\$\s*(\d+(?:\.\d{2})?)`), "AUD"},
	{regexp.MustCompile(`AUD\s*(\d+(?:\.\d{2})?)`), "AUD"},
	{regexp.MustCompile(`(\d+(?:\.\d{2})?)\s*AUD`), "AUD"},
	{regexp.MustCompile(`¥\s*(\d+)`), "JPY"},
	{regexp.MustCompile(`JPY\s*(\d+)`), "JPY"},
}

// ExtractAmount finds the first positive charge in text.
func ExtractAmount(text string) (Money, bool) {
	for _, p := range amountPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(normalizeNumber(m[1]), 64)
		if err != nil || v <= 0 {
			continue
		}
		return Money{Amount: v, Currency: p.currency}, true
	}
	return Money{}, false
}

// normalizeNumber strips grouping separators. A final '.' or ',' followed by
// exactly two digits is the decimal point ("9,99" and "1.234,56" are EUR style).
func normalizeNumber(raw string) string {
	last := strings.LastIndexAny(raw, ".,")
	if last >= 0 && len(raw)-last-1 == 2 {
		intPart := strings.NewReplacer(",", "", ".", "").Replace(raw[:last])
		return intPart + "." + raw[last+1:]
	}
	return strings.NewReplacer(",", "", ".", "").Replace(raw)
}
