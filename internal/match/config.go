// Package match links candidate receipts to bank transactions using
// weighted multi-field scoring.
package match

// Config holds matching thresholds and tolerances.
type Config struct {
	// AmountTolerance is the strict upper bound on the absolute amount
	// difference: a difference of exactly AmountTolerance does NOT match.
	AmountTolerance float64
	// DateHorizonDays is where date proximity decays to zero.
	DateHorizonDays int
	// AmountDateWindowDays bounds the date gap allowed for amount+date
	// matches that lack merchant agreement.
	AmountDateWindowDays int
	// AcceptThreshold is the minimum score required to accept a match.
	AcceptThreshold float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		AmountTolerance:      0.01,
		DateHorizonDays:      7,
		AmountDateWindowDays: 3,
		AcceptThreshold:      0.7,
	}
}

// Scores and thresholds for the priority rule table, strongest first.
const (
	exactMerchantThreshold = 0.95
	fuzzyMerchantThreshold = 0.8
	soloMerchantThreshold  = 0.9

	exactScore        = 0.95
	fuzzyScore        = 0.85
	amountDateScore   = 0.75
	merchantOnlyScore = 0.70
)
