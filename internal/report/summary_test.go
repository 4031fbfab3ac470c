package report

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftd/sift/internal/model"
)

func txn(date time.Time, vendor, category string, cents int64, direction model.TransactionDirection) model.Transaction {
	return model.Transaction{
		TxnDate:         date,
		CanonicalVendor: vendor,
		Category:        category,
		AmountCents:     cents,
		Direction:       direction,
		Status:          model.StatusFinalized,
	}
}

func TestSummarize(t *testing.T) {
	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	transactions := []model.Transaction{
		txn(march, "Costco", "Groceries", 15423, model.DirectionDebit),
		txn(march.AddDate(0, 0, 2), "Costco", "Groceries", 8000, model.DirectionDebit),
		txn(march.AddDate(0, 0, 2), "Chipotle", "Dining", 1400, model.DirectionDebit),
		txn(march.AddDate(0, 0, 14), "Employer", "Income", 500000, model.DirectionCredit),
	}

	summary := Summarize("2024-03", transactions)

	assert.Equal(t, "2024-03", summary.Period)
	assert.Equal(t, int64(500000), summary.TotalIncomeCents)
	assert.Equal(t, int64(24823), summary.TotalExpenseCents)
	assert.Equal(t, int64(475177), summary.NetSavingsCents)

	require.Len(t, summary.TotalsByCategory, 2)
	assert.Equal(t, CategoryTotal{Category: "Groceries", AmountCents: 23423}, summary.TotalsByCategory[0])
	assert.Equal(t, CategoryTotal{Category: "Dining", AmountCents: 1400}, summary.TotalsByCategory[1])

	require.Len(t, summary.TopVendors, 2)
	assert.Equal(t, "Costco", summary.TopVendors[0].Vendor)

	require.Len(t, summary.Timeseries, 2)
	assert.Equal(t, int64(15423), summary.Timeseries[0].SumCents)
	assert.Equal(t, int64(9400), summary.Timeseries[1].SumCents)
	assert.True(t, summary.Timeseries[0].Date.Before(summary.Timeseries[1].Date))
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize("2024-03", nil)
	assert.Zero(t, summary.TotalExpenseCents)
	assert.Zero(t, summary.TotalIncomeCents)
	assert.Empty(t, summary.TotalsByCategory)
	assert.Empty(t, summary.TopVendors)
	assert.Empty(t, summary.Timeseries)
}

func TestSummarizeTopVendorLimit(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	var transactions []model.Transaction
	for i := 0; i < 15; i++ {
		transactions = append(transactions,
			txn(date, fmt.Sprintf("Vendor %02d", i), "Shopping", int64(1000+i*100), model.DirectionDebit))
	}

	summary := Summarize("2024-03", transactions)
	require.Len(t, summary.TopVendors, 10)
	// Highest spend first.
	assert.Equal(t, "Vendor 14", summary.TopVendors[0].Vendor)
	assert.Equal(t, int64(2400), summary.TopVendors[0].AmountCents)
}

func TestSummarizeTieBreaksAreStable(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	summary := Summarize("2024-03", []model.Transaction{
		txn(date, "Beta", "Dining", 1000, model.DirectionDebit),
		txn(date, "Alpha", "Groceries", 1000, model.DirectionDebit),
	})

	// Equal amounts fall back to name order.
	assert.Equal(t, "Dining", summary.TotalsByCategory[0].Category)
	assert.Equal(t, "Groceries", summary.TotalsByCategory[1].Category)
	assert.Equal(t, "Alpha", summary.TopVendors[0].Vendor)
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(2024, time.December)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), end)
}
