package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "tally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func testReceipt(id string) *model.ReceiptRecord {
	return &model.ReceiptRecord{
		ID:              id,
		CandidateID:     "msg-" + id,
		Merchant:        "STARBUCKS",
		DisplayMerchant: "Starbucks",
		Category:        "dining",
		Amount:          6.40,
		Date:            time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC),
		Confidence:      0.8,
		Method:          model.MethodTextFallback,
	}
}

func testMatch(id, receiptID, transactionID string) *model.MatchResult {
	return &model.MatchResult{
		ID:            id,
		ReceiptID:     receiptID,
		TransactionID: transactionID,
		Score:         0.95,
		Type:          model.MatchExact,
		CreatedAt:     time.Date(2025, 6, 28, 12, 0, 0, 0, time.UTC),
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStorage(t)
	assert.NoError(t, store.Migrate(context.Background()))
}

func TestSaveReceiptRoundtrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	receipt := testReceipt("r1")
	require.NoError(t, store.SaveReceipt(ctx, receipt))

	got, err := store.GetReceiptByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, receipt.CandidateID, got.CandidateID)
	assert.Equal(t, receipt.Merchant, got.Merchant)
	assert.Equal(t, receipt.DisplayMerchant, got.DisplayMerchant)
	assert.Equal(t, receipt.Category, got.Category)
	assert.InDelta(t, receipt.Amount, got.Amount, 0.0001)
	assert.True(t, receipt.Date.Equal(got.Date))
	assert.InDelta(t, receipt.Confidence, got.Confidence, 0.0001)
	assert.Equal(t, receipt.Method, got.Method)
}

func TestSaveReceiptUpsert(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	receipt := testReceipt("r1")
	require.NoError(t, store.SaveReceipt(ctx, receipt))

	receipt.Merchant = "UBER"
	receipt.Amount = 23.10
	require.NoError(t, store.SaveReceipt(ctx, receipt))

	got, err := store.GetReceiptByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "UBER", got.Merchant)
	assert.InDelta(t, 23.10, got.Amount, 0.0001)
}

func TestSaveReceiptWithoutDate(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	receipt := testReceipt("r1")
	receipt.Date = time.Time{}
	require.NoError(t, store.SaveReceipt(ctx, receipt))

	got, err := store.GetReceiptByID(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, got.Date.IsZero())
}

func TestSaveReceiptValidation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.SaveReceipt(ctx, nil), ErrNilParameter)

	missing := testReceipt("r1")
	missing.CandidateID = ""
	assert.ErrorIs(t, store.SaveReceipt(ctx, missing), ErrInvalidReceipt)

	bad := testReceipt("r2")
	bad.Confidence = 1.5
	assert.ErrorIs(t, store.SaveReceipt(ctx, bad), ErrInvalidReceipt)
}

func TestGetReceiptByIDNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetReceiptByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveMatchRoundtrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveReceipt(ctx, testReceipt("r1")))
	match := testMatch("m1", "r1", "t1")
	match.EvidenceURL = "file:///evidence/receipt.pdf"
	require.NoError(t, store.SaveMatch(ctx, match))

	got, err := store.GetMatches(ctx, service.MatchFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "r1", got[0].ReceiptID)
	assert.Equal(t, "t1", got[0].TransactionID)
	assert.Equal(t, model.MatchExact, got[0].Type)
	assert.InDelta(t, 0.95, got[0].Score, 0.0001)
	assert.Equal(t, "file:///evidence/receipt.pdf", got[0].EvidenceURL)
}

func TestSaveMatchDuplicateTransaction(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveReceipt(ctx, testReceipt("r1")))
	require.NoError(t, store.SaveReceipt(ctx, testReceipt("r2")))

	require.NoError(t, store.SaveMatch(ctx, testMatch("m1", "r1", "t1")))

	err := store.SaveMatch(ctx, testMatch("m2", "r2", "t1"))
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestSaveMatchUpsertSameID(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveReceipt(ctx, testReceipt("r1")))
	match := testMatch("m1", "r1", "t1")
	require.NoError(t, store.SaveMatch(ctx, match))

	match.Score = 0.85
	match.Type = model.MatchFuzzy
	require.NoError(t, store.SaveMatch(ctx, match))

	got, err := store.GetMatches(ctx, service.MatchFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.MatchFuzzy, got[0].Type)
}

func TestSaveMatchUnmatchedHasNoTransaction(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	// two unmatched results must not collide on the claim index
	unmatched1 := testMatch("m1", "r1", "")
	unmatched1.Type = model.MatchNone
	unmatched1.Score = 0
	unmatched2 := testMatch("m2", "r2", "")
	unmatched2.Type = model.MatchNone
	unmatched2.Score = 0

	require.NoError(t, store.SaveMatch(ctx, unmatched1))
	require.NoError(t, store.SaveMatch(ctx, unmatched2))

	got, err := store.GetMatches(ctx, service.MatchFilter{Type: model.MatchNone})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Empty(t, got[0].TransactionID)
}

func TestGetMatchesFilters(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, typ := range []model.MatchType{model.MatchExact, model.MatchFuzzy, model.MatchExact} {
		m := testMatch(
			[]string{"m1", "m2", "m3"}[i],
			"r1",
			[]string{"t1", "t2", "t3"}[i],
		)
		m.Type = typ
		m.CreatedAt = base.AddDate(0, 0, i*10)
		require.NoError(t, store.SaveMatch(ctx, m))
	}

	t.Run("newest first", func(t *testing.T) {
		got, err := store.GetMatches(ctx, service.MatchFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "m3", got[0].ID)
		assert.Equal(t, "m1", got[2].ID)
	})

	t.Run("since", func(t *testing.T) {
		since := base.AddDate(0, 0, 5)
		got, err := store.GetMatches(ctx, service.MatchFilter{Since: &since})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("type", func(t *testing.T) {
		got, err := store.GetMatches(ctx, service.MatchFilter{Type: model.MatchFuzzy})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "m2", got[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := store.GetMatches(ctx, service.MatchFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "m3", got[0].ID)
	})
}

func TestSaveReport(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	report := model.NewBatchReport("batch-1")
	report.Processed = 10
	report.Matched = 7
	report.Unmatched = 3
	report.MatchedByType[model.MatchExact] = 5
	report.MatchedByType[model.MatchFuzzy] = 2
	report.StageHistogram[model.MethodAttachment] = 4
	report.RecordError("ocr", "timeout talking to service")
	report.CompletedAt = report.StartedAt.Add(time.Minute)

	require.NoError(t, store.SaveReport(ctx, report))

	// re-saving the same batch updates in place
	report.Matched = 8
	assert.NoError(t, store.SaveReport(ctx, report))

	assert.ErrorIs(t, store.SaveReport(ctx, nil), ErrNilParameter)
	assert.ErrorIs(t, store.SaveReport(ctx, &model.BatchReport{}), ErrInvalidReport)
}
