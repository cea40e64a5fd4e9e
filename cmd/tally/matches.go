package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
	"github.com/Veraticus/tally/internal/storage"
)

func matchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "List persisted match results",
		Long: `Show match results from previous reconciliation runs, newest first.

Filter by age and match type to review what was linked and what fell
through to the fallback.`,
		RunE: runMatches,
	}

	cmd.Flags().IntP("days", "d", 30, "Only show matches created in the last N days")
	cmd.Flags().StringP("type", "t", "", "Filter by match type (exact, fuzzy, amount_date, merchant_only, none)")
	cmd.Flags().IntP("limit", "n", 50, "Maximum number of matches to show")

	_ = viper.BindPFlag("matches.days", cmd.Flags().Lookup("days"))
	_ = viper.BindPFlag("matches.type", cmd.Flags().Lookup("type"))
	_ = viper.BindPFlag("matches.limit", cmd.Flags().Lookup("limit"))

	return cmd
}

func runMatches(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	matchType, err := parseMatchType(viper.GetString("matches.type"))
	if err != nil {
		return err
	}

	dataDir, err := config.DataDir()
	if err != nil {
		return err
	}
	store, err := storage.NewSQLiteStorage(filepath.Join(dataDir, "tally.db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	since := time.Now().AddDate(0, 0, -viper.GetInt("matches.days"))
	results, err := store.GetMatches(ctx, service.MatchFilter{
		Since: &since,
		Type:  matchType,
		Limit: viper.GetInt("matches.limit"),
	})
	if err != nil {
		return fmt.Errorf("failed to query matches: %w", err)
	}

	if len(results) == 0 {
		slog.Info(cli.FormatInfo("No matches found for the given filters"))
		return nil
	}

	fmt.Fprintln(os.Stdout, renderMatches(ctx, store, results))
	return nil
}

func parseMatchType(raw string) (model.MatchType, error) {
	if raw == "" {
		return "", nil
	}
	switch model.MatchType(raw) {
	case model.MatchExact, model.MatchFuzzy, model.MatchAmountDate, model.MatchMerchantOnly, model.MatchNone:
		return model.MatchType(raw), nil
	}
	return "", fmt.Errorf("invalid match type: %s", raw)
}

func renderMatches(ctx context.Context, store service.Storage, results []model.MatchResult) string {
	var b strings.Builder
	b.WriteString(cli.TableHeaderStyle.Render(fmt.Sprintf("%-12s %-24s %-10s %-6s %s",
		"TYPE", "MERCHANT", "AMOUNT", "SCORE", "TRANSACTION")))
	b.WriteString("\n")

	for i := range results {
		m := &results[i]

		merchant := "-"
		amount := "-"
		if receipt, err := store.GetReceiptByID(ctx, m.ReceiptID); err == nil {
			if receipt.DisplayMerchant != "" {
				merchant = receipt.DisplayMerchant
			}
			if receipt.HasAmount() {
				amount = fmt.Sprintf("$%.2f", receipt.Amount)
			}
		} else if !errors.Is(err, common.ErrNotFound) {
			slog.Warn("Failed to load receipt for match", "match_id", m.ID, "error", err)
		}

		transactionID := m.TransactionID
		if transactionID == "" {
			transactionID = "-"
		}

		line := fmt.Sprintf("%-12s %-24s %-10s %-6.2f %s",
			m.Type, truncate(merchant, 24), amount, m.Score, transactionID)
		if m.Matched() {
			b.WriteString(line)
		} else {
			b.WriteString(cli.SubtleStyle.Render(line))
		}
		b.WriteString("\n")
	}

	return cli.RenderBox(cli.ReceiptIcon+" Matches", strings.TrimRight(b.String(), "\n"))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
