package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftd/sift/internal/common"
	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/service"
)

func setupTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func testTransaction(date time.Time, descriptor string, cents int64) model.Transaction {
	txn := model.Transaction{
		TxnDate:       date,
		RawDescriptor: descriptor,
		SourceAccount: "checking",
		Direction:     model.DirectionDebit,
		AmountCents:   cents,
	}
	txn.HashID = txn.GenerateHash()
	return txn
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := setupTestStorage(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestSaveTransactionsDeduplicates(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	batch := []model.Transaction{
		testTransaction(date, "COSTCO WHSE #0682", 15423),
		testTransaction(date, "TRADER JOES #552", 4211),
	}
	inserted, err := store.SaveTransactions(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Re-importing the same file inserts nothing.
	inserted, err = store.SaveTransactions(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	// A batch mixing known and new rows inserts only the new one.
	mixed := append(batch, testTransaction(date.AddDate(0, 0, 1), "SHELL OIL 57444", 6120))
	inserted, err = store.SaveTransactions(ctx, mixed)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestSaveTransactionsFillsDefaults(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	txn := model.Transaction{
		TxnDate:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		RawDescriptor: "NETFLIX.COM",
		SourceAccount: "credit",
		Direction:     model.DirectionDebit,
		AmountCents:   1599,
	}
	// Hash, currency and status are filled on insert.
	inserted, err := store.SaveTransactions(ctx, []model.Transaction{txn})
	require.NoError(t, err)
	require.Equal(t, 1, inserted)

	got, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].HashID)
	assert.Equal(t, "USD", got[0].Currency)
	assert.Equal(t, model.StatusIngested, got[0].Status)
	assert.Nil(t, got[0].Confidence)
}

func TestGetTransactionByID(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	_, err := store.SaveTransactions(ctx, []model.Transaction{
		testTransaction(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "CHIPOTLE", 1400),
	})
	require.NoError(t, err)

	all, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)

	got, err := store.GetTransactionByID(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "CHIPOTLE", got.RawDescriptor)

	_, err = store.GetTransactionByID(ctx, 9999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetTransactionsFilters(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	march := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	april := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)

	groceries := testTransaction(march, "COSTCO WHSE #0682", 15423)
	dining := testTransaction(april, "CHIPOTLE", 1400)
	dining.SourceAccount = "credit"

	_, err := store.SaveTransactions(ctx, []model.Transaction{groceries, dining})
	require.NoError(t, err)

	all, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, store.UpdateCategorization(ctx, all[1].ID, model.CategorizationResult{
		Category: "Groceries", Status: model.StatusFinalized, Confidence: 1.0,
	}))

	tests := []struct {
		name   string
		filter service.TransactionFilter
		want   int
	}{
		{"no filter", service.TransactionFilter{}, 2},
		{"start date", service.TransactionFilter{StartDate: &april}, 1},
		{"end date excludes the bound", service.TransactionFilter{EndDate: &april}, 1},
		{"category", service.TransactionFilter{Category: "Groceries"}, 1},
		{"account", service.TransactionFilter{Account: "credit"}, 1},
		{"status", service.TransactionFilter{Status: model.StatusFinalized}, 1},
		{"limit", service.TransactionFilter{Limit: 1}, 1},
		{"no match", service.TransactionFilter{Category: "Travel-Air"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.GetTransactions(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestGetTransactionsHalfOpenDateWindow(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	// Midnight on the 1st of the next month must not leak into the prior
	// month's window.
	marchStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	aprilStart := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.SaveTransactions(ctx, []model.Transaction{
		testTransaction(marchStart, "MARCH COFFEE", 450),
		testTransaction(aprilStart, "APRIL FOOLS CAFE", 1200),
	})
	require.NoError(t, err)

	march, err := store.GetTransactions(ctx, service.TransactionFilter{
		StartDate: &marchStart,
		EndDate:   &aprilStart,
	})
	require.NoError(t, err)
	require.Len(t, march, 1)
	assert.Equal(t, "MARCH COFFEE", march[0].RawDescriptor)

	april, err := store.GetTransactions(ctx, service.TransactionFilter{
		StartDate: &aprilStart,
	})
	require.NoError(t, err)
	require.Len(t, april, 1)
	assert.Equal(t, "APRIL FOOLS CAFE", april[0].RawDescriptor)
}

func TestGetTransactionsToCategorize(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	older := testTransaction(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "OLDER", 100)
	newer := testTransaction(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), "NEWER", 200)

	_, err := store.SaveTransactions(ctx, []model.Transaction{newer, older})
	require.NoError(t, err)

	pending, err := store.GetTransactionsToCategorize(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "OLDER", pending[0].RawDescriptor)

	// Finalizing one removes it from the queue.
	require.NoError(t, store.UpdateCategorization(ctx, pending[0].ID, model.CategorizationResult{
		Category: "Shopping", Status: model.StatusFinalized, Confidence: 1.0,
	}))

	pending, err = store.GetTransactionsToCategorize(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "NEWER", pending[0].RawDescriptor)

	limited, err := store.GetTransactionsToCategorize(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestUpdateCategorization(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	txn := testTransaction(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "TST* STARBUCKS 1234", 675)
	txn.CanonicalVendor = "Starbucks"
	_, err := store.SaveTransactions(ctx, []model.Transaction{txn})
	require.NoError(t, err)

	all, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	id := all[0].ID

	// An empty result vendor keeps the stored one.
	require.NoError(t, store.UpdateCategorization(ctx, id, model.CategorizationResult{
		Category:    "Dining",
		Subcategory: "Coffee",
		Status:      model.StatusReview,
		Confidence:  0.72,
	}))

	got, err := store.GetTransactionByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Dining", got.Category)
	assert.Equal(t, "Coffee", got.Subcategory)
	assert.Equal(t, model.StatusReview, got.Status)
	assert.Equal(t, "Starbucks", got.CanonicalVendor)
	require.NotNil(t, got.Confidence)
	assert.InDelta(t, 0.72, *got.Confidence, 0.001)

	// A non-empty result vendor replaces it.
	require.NoError(t, store.UpdateCategorization(ctx, id, model.CategorizationResult{
		Category: "Dining", Vendor: "Starbucks Coffee", Status: model.StatusFinalized, Confidence: 1.0,
	}))
	got, err = store.GetTransactionByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Starbucks Coffee", got.CanonicalVendor)

	err = store.UpdateCategorization(ctx, 9999, model.CategorizationResult{
		Category: "Dining", Status: model.StatusFinalized, Confidence: 1.0,
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateReceiptURL(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	_, err := store.SaveTransactions(ctx, []model.Transaction{
		testTransaction(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "BEST BUY", 19999),
	})
	require.NoError(t, err)

	all, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)

	require.NoError(t, store.UpdateReceiptURL(ctx, all[0].ID, "https://drive.example.com/r.pdf"))

	got, err := store.GetTransactionByID(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "https://drive.example.com/r.pdf", got.ReceiptURL)

	assert.ErrorIs(t, store.UpdateReceiptURL(ctx, 9999, "x"), common.ErrNotFound)
}

func TestRules(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	low := &model.Rule{
		Priority:  200,
		Active:    true,
		Condition: []byte(`{"descriptor_contains":"NETFLIX"}`),
		Action:    model.RuleAction{Category: "Subscriptions", Subcategory: "Streaming"},
	}
	high := &model.Rule{
		Priority:  10,
		Active:    true,
		Condition: []byte(`{"mcc":["5411"]}`),
		Action:    model.RuleAction{Category: "Groceries"},
	}
	inactive := &model.Rule{
		Priority:  1,
		Active:    false,
		Condition: []byte(`{"descriptor_contains":"UBER"}`),
		Action:    model.RuleAction{Category: "Transport"},
	}

	for _, rule := range []*model.Rule{low, high, inactive} {
		require.NoError(t, store.SaveRule(ctx, rule))
		assert.Positive(t, rule.ID)
	}

	rules, err := store.GetActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "Groceries", rules[0].Action.Category)
	assert.Equal(t, "Subscriptions", rules[1].Action.Category)
	assert.JSONEq(t, `{"mcc":["5411"]}`, string(rules[0].Condition))

	// Updating an existing rule keeps its id.
	high.Priority = 500
	require.NoError(t, store.SaveRule(ctx, high))

	rules, err = store.GetActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "Subscriptions", rules[0].Action.Category)

	assert.Error(t, store.SaveRule(ctx, &model.Rule{Condition: []byte(`{}`)}))
}

func TestVendors(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	vendor := &model.Vendor{
		CanonicalName:      "Netflix",
		DefaultCategory:    "Subscriptions",
		DefaultSubcategory: "Streaming",
		Aliases:            []string{"NETFLIX.COM"},
	}
	require.NoError(t, store.SaveVendor(ctx, vendor))
	require.NoError(t, store.SaveVendor(ctx, &model.Vendor{CanonicalName: "Amazon"}))

	got, err := store.GetVendor(ctx, "Netflix")
	require.NoError(t, err)
	assert.Equal(t, "Subscriptions", got.DefaultCategory)
	assert.Equal(t, []string{"NETFLIX.COM"}, got.Aliases)

	_, err = store.GetVendor(ctx, "Unknown")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Saving again upserts rather than duplicating.
	vendor.Aliases = append(vendor.Aliases, "NETFLIX STREAMING")
	require.NoError(t, store.SaveVendor(ctx, vendor))

	all, err := store.GetAllVendors(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Amazon", all[0].CanonicalName)
	assert.Len(t, all[1].Aliases, 2)
}
