package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// SaveReceipt persists an extracted receipt. Re-saving the same ID
// replaces the row, so re-running a batch is idempotent.
func (s *SQLiteStorage) SaveReceipt(ctx context.Context, receipt *model.ReceiptRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReceipt(receipt); err != nil {
		return err
	}

	var date any
	if receipt.HasDate() {
		date = receipt.Date
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO receipts (id, candidate_id, merchant, display_merchant, category, amount, date, confidence, method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			candidate_id = excluded.candidate_id,
			merchant = excluded.merchant,
			display_merchant = excluded.display_merchant,
			category = excluded.category,
			amount = excluded.amount,
			date = excluded.date,
			confidence = excluded.confidence,
			method = excluded.method`,
		receipt.ID, receipt.CandidateID, receipt.Merchant, receipt.DisplayMerchant,
		receipt.Category, receipt.Amount, date, receipt.Confidence, string(receipt.Method))
	if err != nil {
		return fmt.Errorf("failed to save receipt: %w", err)
	}

	return nil
}

// GetReceiptByID retrieves a receipt by its ID.
func (s *SQLiteStorage) GetReceiptByID(ctx context.Context, id string) (*model.ReceiptRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, candidate_id, merchant, display_merchant, category, amount, date, confidence, method
		FROM receipts WHERE id = ?`, id)

	var receipt model.ReceiptRecord
	var method string
	var date sql.NullTime
	var amount sql.NullFloat64
	err := row.Scan(&receipt.ID, &receipt.CandidateID, &receipt.Merchant, &receipt.DisplayMerchant,
		&receipt.Category, &amount, &date, &receipt.Confidence, &method)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: receipt %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	receipt.Method = model.ExtractionMethod(method)
	if amount.Valid {
		receipt.Amount = amount.Float64
	}
	if date.Valid {
		receipt.Date = date.Time.UTC()
	} else {
		receipt.Date = time.Time{}
	}

	return &receipt, nil
}
