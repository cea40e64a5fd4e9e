// Package recon drives extraction and matching across a batch of
// candidates while enforcing the one-receipt-per-transaction invariant.
package recon

import (
	"sync"

	"github.com/Veraticus/tally/internal/match"
	"github.com/Veraticus/tally/internal/model"
)

// Pool is the shared unclaimed-transaction pool for one batch. The
// check-select-claim sequence is a single critical section, so no two
// receipts can claim the same transaction and no worker ever claims
// against a stale snapshot.
type Pool struct {
	mu           sync.Mutex
	transactions []*model.TransactionRecord
}

// NewPool copies the batch transactions into a fresh pool. Pool order is
// preserved; the matching engine's tie-break depends on it.
func NewPool(transactions []model.TransactionRecord) *Pool {
	pool := &Pool{
		transactions: make([]*model.TransactionRecord, len(transactions)),
	}
	for i := range transactions {
		txn := transactions[i]
		txn.Claimed = false
		pool.transactions[i] = &txn
	}
	return pool
}

// MatchAndClaim scores the receipt against the unclaimed pool and, on an
// accepted match, claims the chosen transaction before releasing the
// lock. First-come priority by candidate processing order.
func (p *Pool) MatchAndClaim(engine *match.Engine, receipt *model.ReceiptRecord) model.MatchResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := engine.Match(receipt, p.transactions)
	if !result.Matched() {
		return result
	}

	for _, txn := range p.transactions {
		if txn.ID == result.TransactionID {
			txn.Claimed = true
			break
		}
	}

	return result
}

// Unclaimed returns how many transactions remain available.
func (p *Pool) Unclaimed() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, txn := range p.transactions {
		if !txn.Claimed {
			count++
		}
	}
	return count
}

// Size returns the total pool size.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.transactions)
}
