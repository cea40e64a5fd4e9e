package gmail

import (
	"fmt"
	"time"

	"github.com/Veraticus/tally/internal/common"
)

// Config holds Gmail source configuration.
type Config struct {
	ClientID      string
	ClientSecret  string
	RefreshToken  string
	TokenFile     string
	Label         string
	MaxMessages   int64
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxMessages:   500,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// Validate checks that required fields are set.
func (c Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: client ID", common.ErrMissingConfig)
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("%w: client secret", common.ErrMissingConfig)
	}
	if c.RefreshToken == "" && c.TokenFile == "" {
		return fmt.Errorf("%w: either refresh token or token file", common.ErrMissingConfig)
	}
	if c.MaxMessages <= 0 {
		return fmt.Errorf("%w: max messages must be positive", common.ErrInvalidConfig)
	}
	return nil
}
