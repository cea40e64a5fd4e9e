package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Amount patterns, in preference order. Keyword-adjacent amounts beat
// bare currency mentions when a message contains several numbers.
var (
	contextAmountPattern = regexp.MustCompile(`(?i)(?:total|amount|charged|payment|paid|due)[^0-9$€£\n]{0,24}[$€£]?\s*(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?)`)
	prefixAmountPattern  = regexp.MustCompile(`[$€£]\s*(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?)`)
	suffixAmountPattern  = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*\.\d{2})\s*(?:USD|EUR|GBP|dollars?)`)
)

// findAmount applies the ordered amount patterns and parses the first
// numeric match. Non-positive or absurdly large values are rejected.
func (e *Extractor) findAmount(text string) (float64, bool) {
	patterns := []*regexp.Regexp{
		contextAmountPattern,
		prefixAmountPattern,
		suffixAmountPattern,
	}

	for _, pattern := range patterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		amount, err := parseAmount(m[1])
		if err != nil {
			continue
		}
		if amount <= 0 || amount > e.config.AmountCeiling {
			return 0, false
		}
		return amount, true
	}

	return 0, false
}

// parseAmount strips thousands separators and parses the number.
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(s, 64)
}

// ContainsAmount reports whether the text contains any currency-amount
// pattern at all. The cascade's receipt gate uses this.
func ContainsAmount(text string) bool {
	return contextAmountPattern.MatchString(text) ||
		prefixAmountPattern.MatchString(text) ||
		suffixAmountPattern.MatchString(text)
}
