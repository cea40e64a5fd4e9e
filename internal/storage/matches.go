package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

// SaveMatch persists a match result. A unique index on transaction_id
// backs up the in-memory claim logic: a second claim of the same
// transaction surfaces as ErrDuplicateEntry rather than silently
// double-linking.
func (s *SQLiteStorage) SaveMatch(ctx context.Context, match *model.MatchResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMatch(match); err != nil {
		return err
	}

	var transactionID any
	if match.TransactionID != "" {
		transactionID = match.TransactionID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (id, receipt_id, transaction_id, match_type, score, evidence_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			receipt_id = excluded.receipt_id,
			transaction_id = excluded.transaction_id,
			match_type = excluded.match_type,
			score = excluded.score,
			evidence_url = excluded.evidence_url`,
		match.ID, match.ReceiptID, transactionID, string(match.Type),
		match.Score, match.EvidenceURL, match.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: transaction %s already claimed", common.ErrDuplicateEntry, match.TransactionID)
		}
		return fmt.Errorf("failed to save match: %w", err)
	}

	return nil
}

// GetMatches retrieves match results, newest first, honoring the
// filter's since/type/limit constraints.
func (s *SQLiteStorage) GetMatches(ctx context.Context, filter service.MatchFilter) ([]model.MatchResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id, receipt_id, transaction_id, match_type, score, evidence_url, created_at FROM matches`
	var conditions []string
	var args []any

	if filter.Since != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *filter.Since)
	}
	if filter.Type != "" {
		conditions = append(conditions, "match_type = ?")
		args = append(args, string(filter.Type))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []model.MatchResult
	for rows.Next() {
		var m model.MatchResult
		var matchType string
		var transactionID sql.NullString
		if err := rows.Scan(&m.ID, &m.ReceiptID, &transactionID, &matchType,
			&m.Score, &m.EvidenceURL, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Type = model.MatchType(matchType)
		if transactionID.Valid {
			m.TransactionID = transactionID.String
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}

	return matches, nil
}
