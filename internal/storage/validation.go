// Package storage provides the data persistence layer for the tally
// application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidReceipt = errors.New("invalid receipt")
	ErrInvalidMatch   = errors.New("invalid match")
	ErrInvalidReport  = errors.New("invalid report")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateReceipt checks receipt fields before persistence.
func validateReceipt(receipt *model.ReceiptRecord) error {
	if receipt == nil {
		return fmt.Errorf("%w: receipt", ErrNilParameter)
	}
	if receipt.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidReceipt)
	}
	if receipt.CandidateID == "" {
		return fmt.Errorf("%w: missing candidate ID", ErrInvalidReceipt)
	}
	if receipt.Confidence < 0 || receipt.Confidence > 1 {
		return fmt.Errorf("%w: confidence %f out of range", ErrInvalidReceipt, receipt.Confidence)
	}
	return nil
}

// validateMatch checks match fields before persistence.
func validateMatch(match *model.MatchResult) error {
	if match == nil {
		return fmt.Errorf("%w: match", ErrNilParameter)
	}
	if match.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidMatch)
	}
	if match.ReceiptID == "" {
		return fmt.Errorf("%w: missing receipt ID", ErrInvalidMatch)
	}
	if match.Matched() && match.Score <= 0 {
		return fmt.Errorf("%w: accepted match with non-positive score", ErrInvalidMatch)
	}
	return nil
}

// validateReport checks report fields before persistence.
func validateReport(report *model.BatchReport) error {
	if report == nil {
		return fmt.Errorf("%w: report", ErrNilParameter)
	}
	if report.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidReport)
	}
	return nil
}
