// Package report aggregates finalized transactions into financial
// summaries.
package report

import (
	"sort"
	"time"

	"github.com/siftd/sift/internal/model"
)

// topVendorLimit caps the vendor leaderboard.
const topVendorLimit = 10

// CategoryTotal is one category's debit total for the period.
type CategoryTotal struct {
	Category    string
	AmountCents int64
}

// VendorTotal is one vendor's debit total for the period.
type VendorTotal struct {
	Vendor      string
	AmountCents int64
}

// TimeseriesPoint is one day's debit total.
type TimeseriesPoint struct {
	Date     time.Time
	SumCents int64
}

// Summary is a period's financial rollup: debit totals by category, the
// top vendors, a daily spending series, and income vs expense totals.
type Summary struct {
	Period            string
	TotalsByCategory  []CategoryTotal
	TopVendors        []VendorTotal
	Timeseries        []TimeseriesPoint
	TotalIncomeCents  int64
	TotalExpenseCents int64
	NetSavingsCents   int64
}

// Summarize rolls up a set of transactions. Callers filter first (by
// period, status, account); this just aggregates what it is given.
func Summarize(period string, transactions []model.Transaction) Summary {
	summary := Summary{Period: period}

	categoryTotals := make(map[string]int64)
	vendorTotals := make(map[string]int64)
	dailyTotals := make(map[time.Time]int64)

	for _, txn := range transactions {
		if !txn.IsDebit() {
			summary.TotalIncomeCents += txn.AmountCents
			continue
		}
		summary.TotalExpenseCents += txn.AmountCents

		if txn.Category != "" {
			categoryTotals[txn.Category] += txn.AmountCents
		}
		if txn.CanonicalVendor != "" {
			vendorTotals[txn.CanonicalVendor] += txn.AmountCents
		}

		day := txn.TxnDate.Truncate(24 * time.Hour)
		dailyTotals[day] += txn.AmountCents
	}

	summary.NetSavingsCents = summary.TotalIncomeCents - summary.TotalExpenseCents

	for category, total := range categoryTotals {
		summary.TotalsByCategory = append(summary.TotalsByCategory, CategoryTotal{
			Category:    category,
			AmountCents: total,
		})
	}
	sort.Slice(summary.TotalsByCategory, func(i, j int) bool {
		a, b := summary.TotalsByCategory[i], summary.TotalsByCategory[j]
		if a.AmountCents != b.AmountCents {
			return a.AmountCents > b.AmountCents
		}
		return a.Category < b.Category
	})

	for vendor, total := range vendorTotals {
		summary.TopVendors = append(summary.TopVendors, VendorTotal{
			Vendor:      vendor,
			AmountCents: total,
		})
	}
	sort.Slice(summary.TopVendors, func(i, j int) bool {
		a, b := summary.TopVendors[i], summary.TopVendors[j]
		if a.AmountCents != b.AmountCents {
			return a.AmountCents > b.AmountCents
		}
		return a.Vendor < b.Vendor
	})
	if len(summary.TopVendors) > topVendorLimit {
		summary.TopVendors = summary.TopVendors[:topVendorLimit]
	}

	for day, total := range dailyTotals {
		summary.Timeseries = append(summary.Timeseries, TimeseriesPoint{
			Date:     day,
			SumCents: total,
		})
	}
	sort.Slice(summary.Timeseries, func(i, j int) bool {
		return summary.Timeseries[i].Date.Before(summary.Timeseries[j].Date)
	})

	return summary
}

// MonthRange returns the [start, end) date range for a YYYY-MM period.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
