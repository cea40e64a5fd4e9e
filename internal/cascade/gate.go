package cascade

import (
	"strings"

	"github.com/Veraticus/tally/internal/extract"
	"github.com/Veraticus/tally/internal/model"
)

// GateConfig decides whether a message body is worth the expense of a
// headless render. The body must look receipt-like: at least one primary
// keyword or two secondary keywords, plus a currency-amount pattern, and
// no exclusion hit.
type GateConfig struct {
	PrimaryKeywords   []string
	SecondaryKeywords []string
	Exclusions        []string
}

// DefaultGateConfig returns the built-in gate keyword tables.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		PrimaryKeywords: []string{
			"receipt",
			"invoice",
			"order confirmation",
			"payment confirmation",
			"your purchase",
		},
		SecondaryKeywords: []string{
			"total",
			"subtotal",
			"amount",
			"order",
			"payment",
			"charged",
			"billed",
			"thank you for",
		},
		// Known non-receipt noise: CI notifications, account hygiene,
		// marketing blasts.
		Exclusions: []string{
			"build process",
			"build failed",
			"build failure",
			"pipeline failed",
			"password reset",
			"verify your email",
			"security alert",
			"unsubscribe from this newsletter",
			"webinar",
		},
	}
}

// Passes applies the gate to a candidate's subject, sender, and body.
func (g GateConfig) Passes(candidate *model.RawCandidate) bool {
	combined := strings.ToLower(candidate.Subject + " " + candidate.Sender + " " + candidate.Body)

	for _, excluded := range g.Exclusions {
		if strings.Contains(combined, excluded) {
			return false
		}
	}

	if !extract.ContainsAmount(candidate.Body) {
		return false
	}

	for _, keyword := range g.PrimaryKeywords {
		if strings.Contains(combined, keyword) {
			return true
		}
	}

	secondary := 0
	for _, keyword := range g.SecondaryKeywords {
		if strings.Contains(combined, keyword) {
			secondary++
			if secondary >= 2 {
				return true
			}
		}
	}

	return false
}

// keywordHits counts gate keywords present in a block of text. Used to
// rank HTML sections by receipt keyword density.
func (g GateConfig) keywordHits(text string) int {
	lower := strings.ToLower(text)

	hits := 0
	for _, keyword := range g.PrimaryKeywords {
		if strings.Contains(lower, keyword) {
			hits += 2
		}
	}
	for _, keyword := range g.SecondaryKeywords {
		if strings.Contains(lower, keyword) {
			hits++
		}
	}
	return hits
}
