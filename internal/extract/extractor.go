package extract

import (
	"strings"
	"time"
)

// Confidence contributions per field, per the scoring rules.
const (
	merchantWeight = 0.3
	amountWeight   = 0.3
	dateWeight     = 0.1
	keywordWeight  = 0.1
	keywordCap     = 0.3
)

// Fields holds the optionally-present values one extraction pass
// produced, plus that pass's confidence contribution. Zero values mean
// "not found".
type Fields struct {
	Date            time.Time
	Merchant        string
	DisplayMerchant string
	Category        string
	Amount          float64
	Confidence      float64
}

// Extractor applies pattern rules and brand normalization to free text.
type Extractor struct {
	config Config
}

// New creates a field extractor with the given rule tables.
func New(config Config) *Extractor {
	if config.AmountCeiling <= 0 {
		config.AmountCeiling = DefaultConfig().AmountCeiling
	}
	return &Extractor{config: config}
}

// Extract runs every field strategy over the text. sourceWeight scales
// the confidence contribution so weaker sources (e.g. sender line) count
// less than OCR output; pass 1.0 for full weight.
func (e *Extractor) Extract(text string, sourceWeight float64) Fields {
	if sourceWeight <= 0 {
		sourceWeight = 1.0
	}

	var fields Fields
	var confidence float64

	if hit, ok := e.findMerchant(text); ok {
		fields.Merchant = hit.canonical
		fields.DisplayMerchant = hit.display
		fields.Category = hit.category
		confidence += merchantWeight
	}

	if amount, ok := e.findAmount(text); ok {
		fields.Amount = amount
		confidence += amountWeight
	}

	if date, ok := e.findDate(text); ok {
		fields.Date = date
		confidence += dateWeight
	}

	confidence += e.keywordBonus(text)

	fields.Confidence = clamp(confidence * sourceWeight)
	if fields.Category == "" {
		fields.Category = DefaultCategory
	}

	return fields
}

// Merge combines multiple extraction passes: the highest-confidence
// non-empty value wins per field, and contributions sum, capped at 1.0.
func Merge(passes ...Fields) Fields {
	var merged Fields
	var total, merchantConf, amountConf, dateConf float64

	for _, pass := range passes {
		total += pass.Confidence

		if pass.Merchant != "" && (merged.Merchant == "" || pass.Confidence > merchantConf) {
			merged.Merchant = pass.Merchant
			merged.DisplayMerchant = pass.DisplayMerchant
			merged.Category = pass.Category
			merchantConf = pass.Confidence
		}
		if pass.Amount > 0 && (merged.Amount == 0 || pass.Confidence > amountConf) {
			merged.Amount = pass.Amount
			amountConf = pass.Confidence
		}
		if !pass.Date.IsZero() && (merged.Date.IsZero() || pass.Confidence > dateConf) {
			merged.Date = pass.Date
			dateConf = pass.Confidence
		}
	}

	merged.Confidence = clamp(total)
	if merged.Category == "" {
		merged.Category = DefaultCategory
	}

	return merged
}

// keywordBonus scores receipt-domain keyword density, up to keywordCap.
func (e *Extractor) keywordBonus(text string) float64 {
	lower := strings.ToLower(text)

	var bonus float64
	for _, keyword := range e.config.Keywords {
		if strings.Contains(lower, keyword) {
			bonus += keywordWeight
		}
	}
	if bonus > keywordCap {
		bonus = keywordCap
	}
	return bonus
}

func clamp(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < 0 {
		return 0
	}
	return v
}
