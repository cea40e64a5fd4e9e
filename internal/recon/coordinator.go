package recon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/tally/internal/cascade"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/match"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

// Config holds coordinator options.
type Config struct {
	// Workers bounds extraction concurrency. Claiming stays serialized
	// regardless of the worker count.
	Workers int
	// DryRun skips persistence and evidence upload.
	DryRun bool
	// Progress, when set, is called after each candidate completes.
	Progress func(done, total int)
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{Workers: 4}
}

// Coordinator iterates a batch of candidates, running the extraction
// cascade and matching engine for each, and commits accepted results.
// Any single-candidate failure is recorded and logged; it never aborts
// the batch.
type Coordinator struct {
	cascade *cascade.Cascade
	engine  *match.Engine
	storage service.Storage
	blobs   service.BlobStore
	logger  *slog.Logger
	config  Config
	closed  atomic.Bool
}

// New creates a coordinator. storage and blobs may be nil, which forces
// dry-run behavior for the respective sink.
func New(casc *cascade.Cascade, engine *match.Engine, storage service.Storage, blobs service.BlobStore, config Config) *Coordinator {
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}
	return &Coordinator{
		cascade: casc,
		engine:  engine,
		storage: storage,
		blobs:   blobs,
		config:  config,
		logger:  slog.Default().With("component", "recon"),
	}
}

// Shutdown stops the coordinator accepting new batches. In-flight
// candidates finish; queued but undispatched work is dropped by the
// running batch's context.
func (c *Coordinator) Shutdown() {
	c.closed.Store(true)
}

// Reconcile processes one batch. Candidates are dispatched to a bounded
// worker pool in order; the shared transaction pool serializes claiming.
// Submission after Shutdown fails fast with ErrBatchClosed.
func (c *Coordinator) Reconcile(ctx context.Context, candidates []model.RawCandidate, transactions []model.TransactionRecord) (*model.BatchReport, error) {
	if c.closed.Load() {
		return nil, common.ErrBatchClosed
	}

	report := model.NewBatchReport(uuid.NewString())
	pool := NewPool(transactions)

	c.logger.Info("Starting reconciliation batch",
		"batch_id", report.ID,
		"candidates", len(candidates),
		"transactions", pool.Size(),
		"workers", c.config.Workers)

	var reportMu sync.Mutex
	var done atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(c.config.Workers)

	dispatched := 0
dispatch:
	for i := range candidates {
		// Cooperative shutdown: no new candidates after cancellation;
		// in-flight workers finish their current candidate.
		select {
		case <-ctx.Done():
			break dispatch
		default:
		}
		if c.closed.Load() {
			break dispatch
		}

		candidate := &candidates[i]
		dispatched++
		g.Go(func() error {
			c.processCandidate(ctx, candidate, pool, report, &reportMu)

			completed := int(done.Add(1))
			if c.config.Progress != nil {
				c.config.Progress(completed, len(candidates))
			}
			return nil
		})
	}

	_ = g.Wait()

	if dropped := len(candidates) - dispatched; dropped > 0 {
		c.logger.Warn("Batch interrupted, candidates dropped",
			"batch_id", report.ID,
			"dropped", dropped)
	}

	report.CompletedAt = time.Now()
	c.persistReport(ctx, report)

	c.logger.Info("Reconciliation batch complete",
		"batch_id", report.ID,
		"processed", report.Processed,
		"matched", report.Matched,
		"unmatched", report.Unmatched,
		"unclaimed_transactions", pool.Unclaimed(),
		"errors", report.Errors)

	return report, ctx.Err()
}

// processCandidate runs the cascade and matching for one candidate. All
// failures are contained here.
func (c *Coordinator) processCandidate(ctx context.Context, candidate *model.RawCandidate, pool *Pool, report *model.BatchReport, reportMu *sync.Mutex) {
	receipt, state, stageErrs := c.cascade.Run(ctx, candidate)

	c.logger.Debug("Cascade finished",
		"candidate_id", candidate.ID,
		"state", state.String(),
		"method", receipt.Method,
		"confidence", receipt.Confidence,
		"stage_errors", len(stageErrs))

	result := pool.MatchAndClaim(c.engine, receipt)

	reportMu.Lock()
	for _, stageErr := range stageErrs {
		report.RecordError("extraction", fmt.Sprintf("candidate %s: %v", candidate.ID, stageErr))
	}
	report.RecordStage(receipt.Method)
	report.RecordMatch(&result)
	reportMu.Unlock()

	if !result.Matched() {
		return
	}

	if err := c.commit(ctx, candidate, receipt, &result); err != nil {
		c.logger.Error("Failed to commit match",
			"candidate_id", candidate.ID,
			"receipt_id", receipt.ID,
			"error", err)
		reportMu.Lock()
		report.RecordError("persistence", err.Error())
		reportMu.Unlock()
	}
}

// commit uploads evidence and persists the accepted result. Evidence is
// stored only for accepted matches to avoid accumulating noise.
func (c *Coordinator) commit(ctx context.Context, candidate *model.RawCandidate, receipt *model.ReceiptRecord, result *model.MatchResult) error {
	if c.config.DryRun {
		return nil
	}

	if c.blobs != nil {
		if att := candidate.BestAttachment(); att != nil {
			key := fmt.Sprintf("receipts/%s/%s", receipt.ID, att.Filename)
			url, err := c.blobs.Upload(ctx, att.Data, key)
			if err != nil {
				c.logger.Warn("Evidence upload failed",
					"receipt_id", receipt.ID,
					"error", err)
			} else {
				result.EvidenceURL = url
			}
		}
	}

	if c.storage == nil {
		return nil
	}

	if err := c.storage.SaveReceipt(ctx, receipt); err != nil {
		return fmt.Errorf("save receipt: %w", err)
	}
	if err := c.storage.SaveMatch(ctx, result); err != nil {
		return fmt.Errorf("save match: %w", err)
	}
	return nil
}

// persistReport saves the batch report for audit; failure is logged, not
// returned, so a reporting problem never fails the batch.
func (c *Coordinator) persistReport(ctx context.Context, report *model.BatchReport) {
	if c.config.DryRun || c.storage == nil {
		return
	}
	if err := c.storage.SaveReport(ctx, report); err != nil {
		c.logger.Warn("Failed to persist batch report",
			"batch_id", report.ID,
			"error", err)
	}
}
