package match

import (
	"strings"
)

// legalSuffixes and stopwords are dropped during merchant normalization;
// they carry no identity ("STARBUCKS STORE #441 LLC" vs "STARBUCKS").
var (
	legalSuffixes = map[string]bool{
		"inc":  true,
		"llc":  true,
		"corp": true,
		"co":   true,
		"ltd":  true,
	}

	stopwords = map[string]bool{
		"store":    true,
		"location": true,
		"branch":   true,
		"the":      true,
	}
)

// normalizeTokens lowercases, strips punctuation, and drops legal
// suffixes and stopwords, returning the identity-bearing tokens.
func normalizeTokens(s string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	var tokens []string
	for _, tok := range strings.Fields(b.String()) {
		if legalSuffixes[tok] || stopwords[tok] {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// MerchantScore computes similarity between two merchant strings in
// [0,1]: token-set overlap ratio plus a containment bonus. When one
// token set fully contains the other the pair is treated as the same
// merchant with extra descriptor noise and scores at least 0.95; bank
// descriptors routinely extend the receipt name ("ANTHROPIC" vs
// "ANTHROPIC CLAUDE").
func MerchantScore(a, b string) float64 {
	ta := normalizeTokens(a)
	tb := normalizeTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(ta))
	for _, tok := range ta {
		setA[tok] = true
	}
	setB := make(map[string]bool, len(tb))
	for _, tok := range tb {
		setB[tok] = true
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 || intersection == 0 {
		return 0
	}

	score := float64(intersection) / float64(union)

	joinedA := strings.Join(ta, " ")
	joinedB := strings.Join(tb, " ")
	if strings.Contains(joinedA, joinedB) || strings.Contains(joinedB, joinedA) {
		score += 0.2
	}

	if intersection == len(setA) || intersection == len(setB) {
		if score < 0.95 {
			score = 0.95
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
