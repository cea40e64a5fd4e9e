package model

import "time"

// MatchType classifies how a receipt was linked to a transaction.
type MatchType string

// Match types, from strongest to weakest. MatchNone means no transaction
// cleared the acceptance threshold.
const (
	MatchExact        MatchType = "exact"
	MatchFuzzy        MatchType = "fuzzy"
	MatchAmountDate   MatchType = "amount_date"
	MatchMerchantOnly MatchType = "merchant_only"
	MatchNone         MatchType = "none"
)

// MatchResult links a receipt to at most one transaction. TransactionID
// is empty when no match was accepted. Records refer to each other by ID
// only; the batch context owns the underlying records.
type MatchResult struct {
	CreatedAt     time.Time
	ID            string
	ReceiptID     string
	TransactionID string
	EvidenceURL   string
	Score         float64
	Type          MatchType
}

// Matched reports whether the result references a claimed transaction.
func (m *MatchResult) Matched() bool {
	return m.TransactionID != ""
}
