package model

import "time"

// ExtractionMethod records which cascade stage produced a receipt.
type ExtractionMethod string

// Extraction methods, in cascade priority order.
const (
	MethodAttachment     ExtractionMethod = "attachment"
	MethodRenderedBody   ExtractionMethod = "rendered_body"
	MethodLinkedDocument ExtractionMethod = "linked_document"
	MethodTextFallback   ExtractionMethod = "text_fallback"
)

// ReceiptRecord is a structured receipt extracted from a RawCandidate.
// Merchant holds the canonical uppercase form used for matching;
// DisplayMerchant preserves a human-readable variant. An Amount of 0
// means the amount is unknown, and a zero Date means the date is unknown.
type ReceiptRecord struct {
	Date            time.Time
	ID              string
	CandidateID     string
	Merchant        string
	DisplayMerchant string
	Category        string
	Amount          float64
	Confidence      float64
	Method          ExtractionMethod
}

// HasMerchant reports whether extraction produced a merchant name.
func (r *ReceiptRecord) HasMerchant() bool {
	return r.Merchant != ""
}

// HasAmount reports whether extraction produced a usable amount.
func (r *ReceiptRecord) HasAmount() bool {
	return r.Amount > 0
}

// HasDate reports whether extraction produced a date.
func (r *ReceiptRecord) HasDate() bool {
	return !r.Date.IsZero()
}
