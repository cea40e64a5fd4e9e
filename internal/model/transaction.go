package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// TransactionRecord represents a single bank transaction from any ledger
// source. Sources normalize Amount to purchases positive, credits and
// refunds negative. Claimed is engine-local state marking the
// transaction as consumed by a match within the current batch; it is
// never written back to the source system.
type TransactionRecord struct {
	Date      time.Time
	ID        string
	Merchant  string // Raw merchant/description text from the ledger
	AccountID string
	Amount    float64
	Claimed   bool
}

// GenerateHash creates a stable hash for duplicate detection across
// ledger sources that do not provide reliable identifiers.
func (t *TransactionRecord) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Merchant,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
