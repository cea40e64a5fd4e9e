package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Veraticus/tally/internal/model"
)

// SaveReport persists a batch report. The per-type and per-stage
// breakdowns are stored as JSON blobs; they are read by humans, not
// queried.
func (s *SQLiteStorage) SaveReport(ctx context.Context, report *model.BatchReport) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReport(report); err != nil {
		return err
	}

	matchedByType, err := json.Marshal(report.MatchedByType)
	if err != nil {
		return fmt.Errorf("failed to encode match breakdown: %w", err)
	}
	stageHistogram, err := json.Marshal(report.StageHistogram)
	if err != nil {
		return fmt.Errorf("failed to encode stage histogram: %w", err)
	}
	errorSamples, err := json.Marshal(report.ErrorSamples)
	if err != nil {
		return fmt.Errorf("failed to encode error samples: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, started_at, completed_at, processed, matched, unmatched, errors,
			matched_by_type, stage_histogram, error_samples)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed_at = excluded.completed_at,
			processed = excluded.processed,
			matched = excluded.matched,
			unmatched = excluded.unmatched,
			errors = excluded.errors,
			matched_by_type = excluded.matched_by_type,
			stage_histogram = excluded.stage_histogram,
			error_samples = excluded.error_samples`,
		report.ID, report.StartedAt, report.CompletedAt,
		report.Processed, report.Matched, report.Unmatched, report.Errors,
		string(matchedByType), string(stageHistogram), string(errorSamples))
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}
