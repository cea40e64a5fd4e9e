// Package cascade orchestrates the extraction strategy chain for one
// candidate message: attachment OCR, rendered-body capture, linked
// document download, then a plain-text fallback that always succeeds.
package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/extract"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

// State tracks cascade progress for one candidate. Stages are attempted
// in fixed order and never retried within a run.
type State int

// Cascade states, in transition order.
const (
	StatePending State = iota
	StateAttachmentAttempted
	StateBodyAttempted
	StateLinkAttempted
	StateResolved
	StateExhausted
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAttachmentAttempted:
		return "attachment_attempted"
	case StateBodyAttempted:
		return "body_attempted"
	case StateLinkAttempted:
		return "link_attempted"
	case StateResolved:
		return "resolved"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Config holds cascade thresholds and per-collaborator timeouts.
type Config struct {
	SufficientConfidence float64
	OCRTimeout           time.Duration
	RenderTimeout        time.Duration
	FetchTimeout         time.Duration
	RegionPadding        int
	Gate                 GateConfig
}

// DefaultConfig returns the default cascade configuration.
func DefaultConfig() Config {
	return Config{
		SufficientConfidence: 0.5,
		OCRTimeout:           30 * time.Second,
		RenderTimeout:        20 * time.Second,
		FetchTimeout:         15 * time.Second,
		RegionPadding:        24,
		Gate:                 DefaultGateConfig(),
	}
}

// Cascade runs the extraction strategy chain. Each worker owns its own
// Cascade value; the collaborators behind it must be safe for concurrent
// use.
type Cascade struct {
	extractor *extract.Extractor
	ocr       service.OCRClient
	renderer  service.Renderer
	fetcher   service.DocumentFetcher
	logger    *slog.Logger
	config    Config
}

// New creates a cascade over the given collaborators. renderer and
// fetcher may be nil; the corresponding stages are then skipped.
func New(extractor *extract.Extractor, ocr service.OCRClient, renderer service.Renderer, fetcher service.DocumentFetcher, config Config) *Cascade {
	if config.SufficientConfidence <= 0 {
		config.SufficientConfidence = DefaultConfig().SufficientConfidence
	}
	return &Cascade{
		extractor: extractor,
		ocr:       ocr,
		renderer:  renderer,
		fetcher:   fetcher,
		config:    config,
		logger:    slog.Default().With("component", "cascade"),
	}
}

// stage is one extraction strategy. attempt returns nil fields when the
// stage has nothing to work with; an error means the stage failed and
// the cascade moves on.
type stage struct {
	method  model.ExtractionMethod
	state   State
	attempt func(ctx context.Context, candidate *model.RawCandidate) (*extract.Fields, error)
}

// StageError records one failed extraction stage so callers can surface
// collaborator outages in the batch report.
type StageError struct {
	Err    error
	Method model.ExtractionMethod
}

func (e StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

func (e StageError) Unwrap() error {
	return e.Err
}

// Run drives the state machine for one candidate. It always returns a
// ReceiptRecord: if no stage reaches sufficient confidence the text
// fallback produces one, possibly with confidence 0. Stage failures
// never stop the cascade; they are returned so the caller can report
// them.
func (c *Cascade) Run(ctx context.Context, candidate *model.RawCandidate) (*model.ReceiptRecord, State, []StageError) {
	stages := []stage{
		{method: model.MethodAttachment, state: StateAttachmentAttempted, attempt: c.attemptAttachment},
		{method: model.MethodRenderedBody, state: StateBodyAttempted, attempt: c.attemptBody},
		{method: model.MethodLinkedDocument, state: StateLinkAttempted, attempt: c.attemptLink},
	}

	state := StatePending
	var stageErrs []StageError
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			break
		}

		state = s.state
		fields, err := s.attempt(ctx, candidate)
		if err != nil {
			c.logger.Debug("Extraction stage failed",
				"candidate_id", candidate.ID,
				"stage", s.method,
				"error", err)
			stageErrs = append(stageErrs, StageError{Method: s.method, Err: err})
			continue
		}
		if fields == nil {
			continue
		}

		if fields.Confidence >= c.config.SufficientConfidence {
			state = StateResolved
			return c.buildReceipt(candidate, *fields, s.method), state, stageErrs
		}

		c.logger.Debug("Stage below sufficiency threshold",
			"candidate_id", candidate.ID,
			"stage", s.method,
			"confidence", fields.Confidence)
	}

	state = StateExhausted
	return c.buildReceipt(candidate, c.textFallback(candidate), model.MethodTextFallback), state, stageErrs
}

// textFallback extracts from subject, body, and sender alone. It always
// yields fields, possibly with confidence 0.
func (c *Cascade) textFallback(candidate *model.RawCandidate) extract.Fields {
	return extract.Merge(
		c.extractor.Extract(candidate.Subject, 1.0),
		c.extractor.Extract(candidate.Body, 1.0),
		c.extractor.Extract(candidate.Sender, 0.5),
	)
}

// buildReceipt turns merged fields into an immutable ReceiptRecord.
func (c *Cascade) buildReceipt(candidate *model.RawCandidate, fields extract.Fields, method model.ExtractionMethod) *model.ReceiptRecord {
	return &model.ReceiptRecord{
		ID:              uuid.NewString(),
		CandidateID:     candidate.ID,
		Merchant:        fields.Merchant,
		DisplayMerchant: fields.DisplayMerchant,
		Category:        fields.Category,
		Amount:          fields.Amount,
		Date:            fields.Date,
		Confidence:      fields.Confidence,
		Method:          method,
	}
}

// attemptAttachment decodes the highest-priority attachment and runs it
// through OCR and the field extractor.
func (c *Cascade) attemptAttachment(ctx context.Context, candidate *model.RawCandidate) (*extract.Fields, error) {
	att := candidate.BestAttachment()
	if att == nil {
		return nil, nil
	}

	text, err := c.recognize(ctx, att.Data)
	if err != nil {
		return nil, fmt.Errorf("attachment OCR: %w", err)
	}

	fields := c.extractor.Extract(text, 1.0)
	return &fields, nil
}

// attemptBody gates the body, renders it, crops to a receipt-shaped
// region when one is found, and OCRs the capture. A dead renderer
// degrades the stage to a skip.
func (c *Cascade) attemptBody(ctx context.Context, candidate *model.RawCandidate) (*extract.Fields, error) {
	if c.renderer == nil {
		return nil, nil
	}
	if !c.config.Gate.Passes(candidate) {
		return nil, nil
	}
	if !c.renderer.Healthy(ctx) {
		c.logger.Warn("Renderer unavailable, skipping body capture", "candidate_id", candidate.ID)
		return nil, nil
	}

	renderCtx, cancel := context.WithTimeout(ctx, c.config.RenderTimeout)
	defer cancel()

	page, err := c.renderer.Render(renderCtx, candidate.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: render: %v", common.ErrStageFailed, err)
	}

	capture := page
	if box, locErr := c.renderer.LocateReceiptRegion(renderCtx, page); locErr == nil && box != nil {
		padded := padBox(*box, c.config.RegionPadding)
		if cropped, cropErr := c.renderer.Crop(renderCtx, page, padded); cropErr == nil {
			capture = cropped
		}
	}

	text, err := c.recognize(ctx, capture)
	if err != nil {
		return nil, fmt.Errorf("body OCR: %w", err)
	}

	fields := c.extractor.Extract(text, 1.0)
	return &fields, nil
}

// attemptLink downloads the first receipt-indicative link. Images and
// documents go through OCR; HTML is reduced to its most keyword-dense
// section and extracted as text.
func (c *Cascade) attemptLink(ctx context.Context, candidate *model.RawCandidate) (*extract.Fields, error) {
	if c.fetcher == nil {
		return nil, nil
	}

	uri, ok := firstReceiptLink(candidate)
	if !ok {
		return nil, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.config.FetchTimeout)
	defer cancel()

	content, contentType, err := c.fetcher.Get(fetchCtx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", common.ErrStageFailed, uri, err)
	}

	var text string
	if isHTMLContent(contentType, content) {
		text = densestSection(string(content), c.config.Gate)
	} else {
		text, err = c.recognize(ctx, content)
		if err != nil {
			return nil, fmt.Errorf("linked document OCR: %w", err)
		}
	}

	fields := c.extractor.Extract(text, 1.0)
	return &fields, nil
}

// recognize runs OCR with the configured timeout. Empty output is a
// stage failure, not a fatal error.
func (c *Cascade) recognize(ctx context.Context, image []byte) (string, error) {
	if c.ocr == nil {
		return "", fmt.Errorf("%w: no OCR client configured", common.ErrStageFailed)
	}

	ocrCtx, cancel := context.WithTimeout(ctx, c.config.OCRTimeout)
	defer cancel()

	text, err := c.ocr.Recognize(ocrCtx, image)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrStageFailed, err)
	}
	if text == "" {
		return "", common.ErrEmptyOCRResult
	}
	return text, nil
}

// padBox expands a bounding box by the configured padding, clamped to
// the page origin.
func padBox(box service.BoundingBox, padding int) service.BoundingBox {
	box.X -= padding
	box.Y -= padding
	if box.X < 0 {
		box.X = 0
	}
	if box.Y < 0 {
		box.Y = 0
	}
	box.Width += 2 * padding
	box.Height += 2 * padding
	return box
}
