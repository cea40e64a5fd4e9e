package extract

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// fromPattern catches "from <name>", "receipt from <name>",
	// "invoice from <name>" style phrasing.
	fromPattern = regexp.MustCompile(`(?i)(?:receipt|invoice|order|payment)?\s*from\s+([A-Za-z][A-Za-z0-9&.' -]{1,40})`)

	// mailPrefixPattern strips common transactional mail prefixes from a
	// sender's local part or domain.
	mailPrefixPattern = regexp.MustCompile(`(?i)^(?:no-?reply|receipts?|billing|notifications?|mailer|support|hello|info)[.@-]`)

	addressPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@([A-Za-z0-9.-]+\.[A-Za-z]{2,})`)

	titleCaser = cases.Title(language.English)
)

// merchantHit is the outcome of one merchant extraction strategy.
type merchantHit struct {
	canonical string
	display   string
	category  string
}

// findMerchant runs the merchant strategies in priority order: brand
// aliases, sender-domain heuristics, then "from <name>" phrasing.
func (e *Extractor) findMerchant(text string) (merchantHit, bool) {
	lower := strings.ToLower(text)

	if hit, ok := e.findBrand(lower); ok {
		return hit, true
	}

	if hit, ok := e.findSenderDomain(text); ok {
		return hit, true
	}

	if m := fromPattern.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(m[1])
		return merchantHit{
			canonical: strings.ToUpper(name),
			display:   formatDisplay(name),
			category:  DefaultCategory,
		}, true
	}

	return merchantHit{}, false
}

// findBrand scans the alias table for substring hits. Longer aliases are
// checked first so "uber eats" wins over "uber"; ties break
// lexicographically for determinism.
func (e *Extractor) findBrand(lower string) (merchantHit, bool) {
	aliases := make([]string, 0, len(e.config.Brands))
	for alias := range e.config.Brands {
		aliases = append(aliases, alias)
	}
	sort.Slice(aliases, func(i, j int) bool {
		if len(aliases[i]) != len(aliases[j]) {
			return len(aliases[i]) > len(aliases[j])
		}
		return aliases[i] < aliases[j]
	})

	for _, alias := range aliases {
		if strings.Contains(lower, alias) {
			brand := e.config.Brands[alias]
			return merchantHit{
				canonical: strings.ToUpper(brand.Name),
				display:   brand.Name,
				category:  brand.Category,
			}, true
		}
	}

	return merchantHit{}, false
}

// findSenderDomain derives a merchant from an email address in the text:
// strip mail-service prefixes, then drop the TLD.
func (e *Extractor) findSenderDomain(text string) (merchantHit, bool) {
	m := addressPattern.FindStringSubmatch(text)
	if m == nil {
		return merchantHit{}, false
	}

	domain := strings.ToLower(m[1])
	for mailPrefixPattern.MatchString(domain) {
		domain = mailPrefixPattern.ReplaceAllString(domain, "")
	}

	// Drop the TLD and any remaining subdomain noise; the merchant is
	// the registrable label ("mail.uber.com" -> "uber").
	parts := strings.Split(domain, ".")
	if len(parts) < 2 {
		return merchantHit{}, false
	}
	name := parts[len(parts)-2]
	if name == "" || name == "gmail" || name == "googlemail" || name == "outlook" || name == "yahoo" {
		return merchantHit{}, false
	}

	if hit, ok := e.findBrand(name); ok {
		return hit, true
	}

	return merchantHit{
		canonical: strings.ToUpper(name),
		display:   formatDisplay(name),
		category:  DefaultCategory,
	}, true
}

// formatDisplay title-cases a raw merchant name for display.
func formatDisplay(raw string) string {
	words := strings.Fields(strings.TrimSpace(raw))
	for i, word := range words {
		if len(word) > 2 {
			words[i] = titleCaser.String(strings.ToLower(word))
		} else {
			words[i] = strings.ToUpper(word)
		}
	}
	return strings.Join(words, " ")
}
