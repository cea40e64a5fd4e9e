package match

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/tally/internal/model"
)

// Engine scores a receipt against a pool of transactions and selects the
// best match above the acceptance threshold. Match is pure: it never
// mutates the pool, so callers own claiming and its serialization.
type Engine struct {
	config Config
}

// New creates a matching engine with the given config.
func New(config Config) *Engine {
	if config.AmountTolerance <= 0 {
		config.AmountTolerance = DefaultConfig().AmountTolerance
	}
	if config.DateHorizonDays <= 0 {
		config.DateHorizonDays = DefaultConfig().DateHorizonDays
	}
	if config.AmountDateWindowDays <= 0 {
		config.AmountDateWindowDays = DefaultConfig().AmountDateWindowDays
	}
	if config.AcceptThreshold <= 0 {
		config.AcceptThreshold = DefaultConfig().AcceptThreshold
	}
	return &Engine{config: config}
}

// Match evaluates the receipt against every unclaimed transaction in
// pool order. Ties break to the earliest pool position; a receipt with
// no surviving candidate at or above the acceptance threshold yields a
// MatchResult with an empty TransactionID and MatchNone.
func (e *Engine) Match(receipt *model.ReceiptRecord, pool []*model.TransactionRecord) model.MatchResult {
	result := model.MatchResult{
		ID:        uuid.NewString(),
		ReceiptID: receipt.ID,
		Type:      model.MatchNone,
		CreatedAt: time.Now(),
	}

	var bestScore float64
	var bestType model.MatchType
	var bestID string

	for _, txn := range pool {
		if txn.Claimed {
			continue
		}

		score, matchType := e.score(receipt, txn)
		if matchType == model.MatchNone {
			continue
		}

		// Strictly greater keeps the earliest pool position on ties.
		if score > bestScore {
			bestScore = score
			bestType = matchType
			bestID = txn.ID
		}
	}

	if bestID == "" || bestScore < e.config.AcceptThreshold {
		return result
	}

	result.TransactionID = bestID
	result.Score = bestScore
	result.Type = bestType
	return result
}

// score applies the priority rule table to one (receipt, transaction)
// pair. The first satisfied rule determines match type and score.
func (e *Engine) score(receipt *model.ReceiptRecord, txn *model.TransactionRecord) (float64, model.MatchType) {
	merchantScore := MerchantScore(receipt.Merchant, txn.Merchant)
	amountOK := e.amountMatches(receipt, txn)
	dateScore := e.dateProximity(receipt, txn)

	switch {
	case merchantScore >= exactMerchantThreshold && amountOK:
		return exactScore, model.MatchExact
	case merchantScore >= fuzzyMerchantThreshold && amountOK:
		return fuzzyScore, model.MatchFuzzy
	case amountOK && dateScore >= e.amountDateFloor():
		return amountDateScore, model.MatchAmountDate
	case merchantScore >= soloMerchantThreshold:
		return merchantOnlyScore, model.MatchMerchantOnly
	default:
		return 0, model.MatchNone
	}
}

// amountMatches compares the receipt amount against the transaction's
// magnitude. The comparison is strict: a difference of exactly the
// tolerance does not match.
func (e *Engine) amountMatches(receipt *model.ReceiptRecord, txn *model.TransactionRecord) bool {
	if !receipt.HasAmount() {
		return false
	}
	return math.Abs(receipt.Amount-math.Abs(txn.Amount)) < e.config.AmountTolerance
}

// dateProximity is 1.0 for the same calendar day, decaying linearly to 0
// at the horizon; 0 when either date is missing.
func (e *Engine) dateProximity(receipt *model.ReceiptRecord, txn *model.TransactionRecord) float64 {
	if !receipt.HasDate() || txn.Date.IsZero() {
		return 0
	}

	days := calendarDaysApart(receipt.Date, txn.Date)
	if days == 0 {
		return 1.0
	}
	if days >= e.config.DateHorizonDays {
		return 0
	}
	return 1.0 - float64(days)/float64(e.config.DateHorizonDays)
}

// amountDateFloor is the date score an amount-only match must reach:
// within AmountDateWindowDays on the horizon's linear scale.
func (e *Engine) amountDateFloor() float64 {
	return 1.0 - float64(e.config.AmountDateWindowDays)/float64(e.config.DateHorizonDays)
}

// calendarDaysApart counts whole calendar days between two dates,
// ignoring time of day.
func calendarDaysApart(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)

	diff := ad.Sub(bd)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}
