// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Extraction errors. Stage failures are recovered locally by the
	// cascade; unavailable collaborators degrade their stage to a skip.
	ErrStageFailed    = errors.New("extraction stage failed")
	ErrEmptyOCRResult = errors.New("empty OCR result")

	// Ledger errors.
	ErrLedgerConnection = errors.New("ledger connection failed")
	ErrLedgerRateLimit  = errors.New("ledger rate limit exceeded")

	// Coordinator errors.
	ErrBatchClosed = errors.New("batch closed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

