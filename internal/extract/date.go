package extract

import (
	"regexp"
	"strings"
	"time"
)

// Date candidates are located with a coarse regex per family, then parsed
// against the family's layouts. The first valid calendar date wins.
var dateFamilies = []struct {
	pattern *regexp.Regexp
	layouts []string
}{
	{
		// Numeric slash/dash: 06/28/2025, 6-28-25
		pattern: regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
		layouts: []string{"01/02/2006", "1/2/2006", "01-02-2006", "1-2-2006", "01/02/06", "1/2/06", "01-02-06", "1-2-06"},
	},
	{
		// ISO: 2025-06-28
		pattern: regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		layouts: []string{"2006-01-02"},
	},
	{
		// Month name: June 28, 2025 / 28 Jun 2025 / Jun 28 2025
		pattern: regexp.MustCompile(`(?i)\b(?:(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2}(?:,?\s+\d{4})?|\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?(?:,?\s+\d{4})?)\b`),
		layouts: []string{
			"January 2, 2006", "January 2 2006", "Jan 2, 2006", "Jan 2 2006",
			"2 January 2006", "2 Jan 2006",
		},
	},
}

// findDate tries each date family in order and returns the first valid
// calendar date. Invalid dates (e.g. 02/30) parse-fail and are skipped.
func (e *Extractor) findDate(text string) (time.Time, bool) {
	for _, family := range dateFamilies {
		match := family.pattern.FindString(text)
		if match == "" {
			continue
		}

		normalized := normalizeDateText(match)
		for _, layout := range family.layouts {
			t, err := time.Parse(layout, normalized)
			if err != nil {
				continue
			}
			if t.Year() < 100 {
				t = t.AddDate(2000, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// normalizeDateText canonicalizes month-name matches so fewer layouts
// are needed: collapse whitespace and trim trailing periods on
// abbreviations.
func normalizeDateText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, ".", "")
	return s
}
