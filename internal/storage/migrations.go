package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the
// application expects. If the database cannot be migrated to this
// version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS receipts (
					id TEXT PRIMARY KEY,
					candidate_id TEXT NOT NULL,
					merchant TEXT,
					display_merchant TEXT,
					category TEXT,
					amount REAL,
					date DATETIME,
					confidence REAL NOT NULL,
					method TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_receipts_candidate ON receipts(candidate_id)`,
				`CREATE INDEX idx_receipts_merchant ON receipts(merchant)`,

				`CREATE TABLE IF NOT EXISTS matches (
					id TEXT PRIMARY KEY,
					receipt_id TEXT NOT NULL,
					transaction_id TEXT,
					match_type TEXT NOT NULL,
					score REAL NOT NULL,
					evidence_url TEXT,
					created_at DATETIME NOT NULL,
					FOREIGN KEY (receipt_id) REFERENCES receipts(id)
				)`,
				`CREATE INDEX idx_matches_receipt ON matches(receipt_id)`,
				`CREATE INDEX idx_matches_type ON matches(match_type)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add batch reports table",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS reports (
					id TEXT PRIMARY KEY,
					started_at DATETIME NOT NULL,
					completed_at DATETIME NOT NULL,
					processed INTEGER NOT NULL,
					matched INTEGER NOT NULL,
					unmatched INTEGER NOT NULL,
					errors INTEGER NOT NULL,
					matched_by_type TEXT,
					stage_histogram TEXT,
					error_samples TEXT
				)`,
				`CREATE INDEX idx_reports_started ON reports(started_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Enforce one claim per transaction",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_transaction
				ON matches(transaction_id) WHERE transaction_id IS NOT NULL AND transaction_id != ''`)
			return err
		},
	},
}

// Migrate applies pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
