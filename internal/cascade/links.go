package cascade

import (
	"regexp"
	"strings"

	"github.com/Veraticus/tally/internal/extract"
	"github.com/Veraticus/tally/internal/model"
)

var (
	urlPattern = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)
	tagPattern = regexp.MustCompile(`(?s)<[^>]*>`)
)

// linkKeywords mark a URI as receipt-indicative when present in its path
// or query.
var linkKeywords = []string{
	"receipt",
	"invoice",
	"order",
	"billing",
	"statement",
}

// receiptHosts are domains known to host receipts and invoices.
var receiptHosts = []string{
	"invoice.stripe.com",
	"pay.stripe.com",
	"squareup.com/receipt",
	"paypal.com/receipt",
}

// firstReceiptLink returns the first receipt-indicative URI from the
// candidate: pre-extracted link URIs first, then a body scan.
func firstReceiptLink(candidate *model.RawCandidate) (string, bool) {
	for _, uri := range candidate.LinkURIs {
		if isReceiptLink(uri) {
			return uri, true
		}
	}

	for _, uri := range urlPattern.FindAllString(candidate.Body, -1) {
		if isReceiptLink(uri) {
			return strings.TrimRight(uri, ".,;"), true
		}
	}

	return "", false
}

// isReceiptLink applies the keyword and known-host heuristics.
func isReceiptLink(uri string) bool {
	lower := strings.ToLower(uri)

	for _, host := range receiptHosts {
		if strings.Contains(lower, host) {
			return true
		}
	}
	for _, keyword := range linkKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// isHTMLContent decides whether fetched content should be treated as
// HTML rather than an image or document.
func isHTMLContent(contentType string, content []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	head := strings.ToLower(string(content[:min(len(content), 256)]))
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

// densestSection strips tags and returns the most keyword-dense section
// of an HTML document; sections with currency amounts score extra.
func densestSection(html string, gate GateConfig) string {
	text := tagPattern.ReplaceAllString(html, "\n")

	var best string
	bestScore := -1

	for _, section := range strings.Split(text, "\n\n") {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}

		score := gate.keywordHits(section)
		if extract.ContainsAmount(section) {
			score += 3
		}
		if score > bestScore {
			bestScore = score
			best = section
		}
	}

	if best == "" {
		return strings.TrimSpace(text)
	}
	return best
}
