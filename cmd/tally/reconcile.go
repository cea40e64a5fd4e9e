package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/tally/internal/blob"
	"github.com/Veraticus/tally/internal/cascade"
	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/extract"
	"github.com/Veraticus/tally/internal/fetch"
	"github.com/Veraticus/tally/internal/gmail"
	"github.com/Veraticus/tally/internal/match"
	"github.com/Veraticus/tally/internal/ocr"
	"github.com/Veraticus/tally/internal/ofx"
	"github.com/Veraticus/tally/internal/plaid"
	"github.com/Veraticus/tally/internal/recon"
	"github.com/Veraticus/tally/internal/render"
	"github.com/Veraticus/tally/internal/service"
	"github.com/Veraticus/tally/internal/storage"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match receipt emails against bank transactions",
		Long: `Fetch candidate receipt emails, extract structured receipts through the
strategy cascade, and link each one to the bank transaction it paid for.

Accepted matches and the batch report are saved to the local database.`,
		RunE: runReconcile,
	}

	// Date range flags
	cmd.Flags().StringP("start-date", "s", "", "Start of the reconciliation window (format: 2006-01-02)")
	cmd.Flags().StringP("end-date", "e", "", "End of the reconciliation window (format: 2006-01-02)")
	cmd.Flags().IntP("days", "d", 30, "Number of days to reconcile (used if start/end dates not specified)")

	// Sources
	cmd.Flags().String("query", "", "Extra Gmail search query to narrow candidates")
	cmd.Flags().String("ofx", "", "Read transactions from an OFX/QFX statement file instead of Plaid")
	cmd.Flags().String("brands", "", "YAML file with extra brand aliases")

	// Execution options
	cmd.Flags().IntP("workers", "w", 0, "Extraction worker count (default 4)")
	cmd.Flags().Bool("dry-run", false, "Run the batch without saving anything")

	// Bind to viper
	_ = viper.BindPFlag("reconcile.start_date", cmd.Flags().Lookup("start-date"))
	_ = viper.BindPFlag("reconcile.end_date", cmd.Flags().Lookup("end-date"))
	_ = viper.BindPFlag("reconcile.days", cmd.Flags().Lookup("days"))
	_ = viper.BindPFlag("reconcile.query", cmd.Flags().Lookup("query"))
	_ = viper.BindPFlag("reconcile.ofx", cmd.Flags().Lookup("ofx"))
	_ = viper.BindPFlag("reconcile.brands", cmd.Flags().Lookup("brands"))
	_ = viper.BindPFlag("reconcile.workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("reconcile.dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	interrupts := cli.NewInterruptHandler(os.Stderr)
	ctx := interrupts.HandleInterrupts(cmd.Context())

	startDate, endDate, err := parseDateRange()
	if err != nil {
		return err
	}
	dryRun := viper.GetBool("reconcile.dry_run")

	slog.Info(cli.FormatTitle("Reconciling receipts against transactions"))
	slog.Info("Date range", "start", startDate.Format("2006-01-02"), "end", endDate.Format("2006-01-02"))

	// Mail source
	mailSource, err := buildMailSource(cmd)
	if err != nil {
		return err
	}

	// Ledger source
	ledger, err := buildLedgerSource()
	if err != nil {
		return err
	}

	// Extraction rules
	extractConfig := extract.DefaultConfig()
	if brandFile := viper.GetString("reconcile.brands"); brandFile != "" {
		extra, brandErr := config.LoadBrands(brandFile)
		if brandErr != nil {
			return fmt.Errorf("failed to load brand aliases: %w", brandErr)
		}
		extractConfig = extractConfig.MergeBrands(extra)
		slog.Info("Loaded extra brand aliases", "count", len(extra))
	}
	extractor := extract.New(extractConfig)

	// Cascade collaborators
	casc := cascade.New(extractor, buildOCRClient(), buildRenderer(), buildFetcher(), cascade.DefaultConfig())
	engine := match.New(match.DefaultConfig())

	// Persistence sinks (skipped entirely in dry-run mode)
	var store service.Storage
	var blobs service.BlobStore
	if !dryRun {
		dataDir, dirErr := config.DataDir()
		if dirErr != nil {
			return dirErr
		}
		sqlStore, storeErr := storage.NewSQLiteStorage(filepath.Join(dataDir, "tally.db"))
		if storeErr != nil {
			return fmt.Errorf("failed to open database: %w", storeErr)
		}
		defer func() { _ = sqlStore.Close() }()
		if migrateErr := sqlStore.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("failed to migrate database: %w", migrateErr)
		}
		store = sqlStore

		blobStore, blobErr := blob.New(filepath.Join(dataDir, "evidence"))
		if blobErr != nil {
			return fmt.Errorf("failed to open evidence store: %w", blobErr)
		}
		blobs = blobStore
	} else {
		slog.Info(cli.FormatWarning("Dry run mode - nothing will be saved"))
	}

	// Fetch inputs
	slog.Info("🔄 Fetching candidate emails...")
	candidates, err := mailSource.FetchCandidates(ctx, startDate, viper.GetString("reconcile.query"))
	if err != nil {
		return fmt.Errorf("failed to fetch candidates: %w", err)
	}
	slog.Info(cli.FormatSuccess(fmt.Sprintf("Fetched %d candidates", len(candidates))))

	slog.Info("🔄 Fetching transactions...")
	transactions, err := ledger.GetTransactions(ctx, startDate, endDate)
	if err != nil {
		return fmt.Errorf("failed to fetch transactions: %w", err)
	}
	slog.Info(cli.FormatSuccess(fmt.Sprintf("Fetched %d transactions", len(transactions))))

	// Run the batch
	bar := newReconcileBar(len(candidates))
	coordinator := recon.New(casc, engine, store, blobs, recon.Config{
		Workers: viper.GetInt("reconcile.workers"),
		DryRun:  dryRun,
		Progress: func(_, _ int) {
			if err := bar.Add(1); err != nil {
				slog.Warn("Failed to update progress bar", "error", err)
			}
		},
	})

	report, err := coordinator.Reconcile(ctx, candidates, transactions)
	if err != nil && !interrupts.WasInterrupted() {
		slog.Warn("Batch ended early", "error", err)
	}
	if report == nil {
		return fmt.Errorf("reconciliation produced no report")
	}

	fmt.Fprintln(os.Stdout, cli.RenderReport(report))
	return nil
}

// buildMailSource wires the Gmail source from configuration. Gmail is
// the only candidate source, so missing credentials are an error.
func buildMailSource(cmd *cobra.Command) (service.MailSource, error) {
	gmailConfig := gmail.DefaultConfig()
	gmailConfig.ClientID = viper.GetString("gmail.client_id")
	gmailConfig.ClientSecret = viper.GetString("gmail.client_secret")
	gmailConfig.RefreshToken = viper.GetString("gmail.refresh_token")
	gmailConfig.TokenFile = config.ExpandPath(viper.GetString("gmail.token_file"))
	gmailConfig.Label = viper.GetString("gmail.label")

	source, err := gmail.NewSource(cmd.Context(), gmailConfig, nil)
	if err != nil {
		return nil, common.NewUserError(
			"Gmail is not configured; set gmail.client_id, gmail.client_secret, and a token in the config file", err)
	}
	return source, nil
}

// buildLedgerSource picks the OFX file source when --ofx is set and
// Plaid otherwise.
func buildLedgerSource() (service.LedgerSource, error) {
	if ofxPath := viper.GetString("reconcile.ofx"); ofxPath != "" {
		return ofx.NewFileSource(config.ExpandPath(ofxPath)), nil
	}

	plaidConfig := plaid.Config{
		ClientID:    viper.GetString("plaid.client_id"),
		Secret:      viper.GetString("plaid.secret"),
		Environment: viper.GetString("plaid.environment"),
		AccessToken: viper.GetString("plaid.access_token"),
	}
	if plaidConfig.Environment == "" {
		plaidConfig.Environment = "sandbox"
	}

	client, err := plaid.NewClient(plaidConfig)
	if err != nil {
		return nil, common.NewUserError(
			"Plaid is not configured; set plaid.client_id, plaid.secret, and plaid.access_token, or pass --ofx", err)
	}
	return client, nil
}

// buildOCRClient returns nil when no OCR service is configured; the
// cascade then falls back to text extraction for image content.
func buildOCRClient() service.OCRClient {
	endpoint := viper.GetString("ocr.endpoint")
	if endpoint == "" {
		return nil
	}
	client, err := ocr.NewClient(ocr.Config{
		Endpoint: endpoint,
		APIKey:   viper.GetString("ocr.api_key"),
	})
	if err != nil {
		slog.Warn("OCR client unavailable", "error", err)
		return nil
	}
	return client
}

// buildRenderer returns nil when no renderer service is configured; the
// body capture stage is then skipped.
func buildRenderer() service.Renderer {
	endpoint := viper.GetString("render.endpoint")
	if endpoint == "" {
		return nil
	}
	client, err := render.NewClient(render.Config{
		Endpoint: endpoint,
		PoolSize: viper.GetInt("render.pool_size"),
	})
	if err != nil {
		slog.Warn("Renderer unavailable", "error", err)
		return nil
	}
	return render.NewPool(client, viper.GetInt("render.pool_size"))
}

func buildFetcher() service.DocumentFetcher {
	return fetch.New(fetch.Config{})
}

func parseDateRange() (startDate, endDate time.Time, err error) {
	startStr := viper.GetString("reconcile.start_date")
	endStr := viper.GetString("reconcile.end_date")

	if startStr != "" && endStr != "" {
		startDate, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date format: %w", err)
		}

		endDate, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date format: %w", err)
		}

		return startDate, endDate, nil
	}

	days := viper.GetInt("reconcile.days")
	if days <= 0 {
		days = 30
	}

	endDate = time.Now()
	startDate = endDate.AddDate(0, 0, -days)

	return startDate, endDate, nil
}

func newReconcileBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Reconciling receipts...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(os.Stderr); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}
