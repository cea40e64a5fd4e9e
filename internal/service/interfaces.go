// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/tally/internal/model"
)

// MailSource yields candidate messages for a look-back window and search
// filter. An empty result is normal, not an error.
type MailSource interface {
	FetchCandidates(ctx context.Context, since time.Time, query string) ([]model.RawCandidate, error)
}

// LedgerSource yields bank transactions for a date range at batch start.
type LedgerSource interface {
	GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.TransactionRecord, error)
}

// OCRClient turns image or document bytes into text. An empty string with
// a nil error is a normal, expected outcome.
type OCRClient interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// BoundingBox describes a rectangular sub-region of a rendered page.
type BoundingBox struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Renderer captures HTML as an image via a headless browser service.
// LocateReceiptRegion returns nil when no receipt-shaped region is found.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
	LocateReceiptRegion(ctx context.Context, page []byte) (*BoundingBox, error)
	Crop(ctx context.Context, page []byte, box BoundingBox) ([]byte, error)
	Healthy(ctx context.Context) bool
}

// DocumentFetcher downloads a linked document, returning content bytes
// and the declared content type.
type DocumentFetcher interface {
	Get(ctx context.Context, uri string) ([]byte, string, error)
}

// BlobStore persists evidence bytes and returns a stable URL.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, key string) (string, error)
}

// MatchFilter defines filtering options for persisted match queries.
type MatchFilter struct {
	Since *time.Time
	Type  model.MatchType
	Limit int
}

// Storage defines the contract for the persistence sink. Only accepted
// results and batch reports are durable; the transaction pool itself is
// discarded at batch end.
type Storage interface {
	SaveReceipt(ctx context.Context, receipt *model.ReceiptRecord) error
	SaveMatch(ctx context.Context, match *model.MatchResult) error
	GetMatches(ctx context.Context, filter MatchFilter) ([]model.MatchResult, error)
	GetReceiptByID(ctx context.Context, id string) (*model.ReceiptRecord, error)
	SaveReport(ctx context.Context, report *model.BatchReport) error
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
