// Package anomaly implements the behavioral anomaly detectors: new
// vendors over threshold, duplicates, z-score spending spikes, missing
// receipts, pending reviews and unusual category spending.
package anomaly

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/siftd/sift/internal/config"
	"github.com/siftd/sift/internal/model"
)

// unusualSpendingMultiplier flags a category whose window spend exceeds
// this multiple of the preceding baseline spend.
const unusualSpendingMultiplier = 3.0

// minBaselineSamples is the smallest baseline a z-score is computed over.
const minBaselineSamples = 2

// Window is one scan's worth of transactions. Recent holds the
// transactions inside the scan window; Prior holds history from before the
// window, used as the spending baseline and for first-appearance checks.
// The collaborator supplies the query; detectors only compute over these
// in-memory records.
type Window struct {
	Start  time.Time
	End    time.Time
	Recent []model.Transaction
	Prior  []model.Transaction
}

// Detector runs the anomaly scans. Each scan is a pure function of the
// supplied window plus the configured thresholds; alerts are recomputed
// every time and never persisted.
type Detector struct {
	thresholds config.Thresholds
}

// New creates a detector with the given thresholds.
func New(thresholds config.Thresholds) *Detector {
	return &Detector{thresholds: thresholds}
}

// Scan runs every detector over the window and returns the combined
// alerts.
func (d *Detector) Scan(w Window) []model.Alert {
	var alerts []model.Alert
	alerts = append(alerts, d.NewVendors(w)...)
	alerts = append(alerts, d.Duplicates(w)...)
	alerts = append(alerts, d.SpendingSpikes(w)...)
	alerts = append(alerts, d.MissingReceipts(w)...)
	alerts = append(alerts, d.PendingReview(w)...)
	alerts = append(alerts, d.UnusualSpending(w)...)

	slog.Info("Anomaly scan complete",
		"window_start", w.Start.Format("2006-01-02"),
		"window_end", w.End.Format("2006-01-02"),
		"recent", len(w.Recent),
		"alerts", len(alerts))

	return alerts
}

// NewVendors alerts on vendors whose first-ever transaction falls inside
// the window with an amount over the new-vendor threshold. Debits only.
func (d *Detector) NewVendors(w Window) []model.Alert {
	known := make(map[string]bool)
	for _, txn := range w.Prior {
		if txn.CanonicalVendor != "" {
			known[txn.CanonicalVendor] = true
		}
	}

	// First appearance per vendor inside the window, in date order.
	recent := sortedByDate(w.Recent)

	var alerts []model.Alert
	seen := make(map[string]bool)
	for _, txn := range recent {
		if !txn.IsDebit() || txn.CanonicalVendor == "" {
			continue
		}
		if known[txn.CanonicalVendor] || seen[txn.CanonicalVendor] {
			seen[txn.CanonicalVendor] = true
			continue
		}
		seen[txn.CanonicalVendor] = true

		if txn.AmountCents > d.thresholds.NewVendorCents {
			alerts = append(alerts, model.Alert{
				Type:           model.AlertNewVendorOverThreshold,
				Vendor:         txn.CanonicalVendor,
				Category:       txn.Category,
				AmountCents:    txn.AmountCents,
				Date:           txn.TxnDate,
				Severity:       model.SeverityWarning,
				TransactionIDs: []int64{txn.ID},
				Message: fmt.Sprintf("New vendor %q with charge of $%.2f",
					txn.CanonicalVendor, dollars(txn.AmountCents)),
			})
		}
	}

	return alerts
}

// Duplicates alerts on hash collisions inside the window, and secondarily
// on distinct-hash transactions sharing the exact
// (date, amount, descriptor, account) tuple, which surfaces cross-batch
// duplicates whose hashes differ by whitespace or encoding.
func (d *Detector) Duplicates(w Window) []model.Alert {
	var alerts []model.Alert

	byHash := make(map[string][]model.Transaction)
	for _, txn := range w.Recent {
		byHash[txn.HashID] = append(byHash[txn.HashID], txn)
	}
	for _, group := range byHash {
		if len(group) > 1 {
			alerts = append(alerts, duplicateAlert(group))
		}
	}

	byTuple := make(map[string][]model.Transaction)
	for _, txn := range w.Recent {
		key := fmt.Sprintf("%s|%d|%s|%s",
			txn.TxnDate.Format("2006-01-02"),
			txn.AmountCents,
			strings.Join(strings.Fields(strings.ToLower(txn.RawDescriptor)), " "),
			txn.SourceAccount)
		byTuple[key] = append(byTuple[key], txn)
	}
	for _, group := range byTuple {
		if len(group) < 2 {
			continue
		}
		// Same hash is already reported above.
		if allSameHash(group) {
			continue
		}
		alerts = append(alerts, duplicateAlert(group))
	}

	return alerts
}

func allSameHash(group []model.Transaction) bool {
	for _, txn := range group[1:] {
		if txn.HashID != group[0].HashID {
			return false
		}
	}
	return true
}

func duplicateAlert(group []model.Transaction) model.Alert {
	ids := make([]int64, len(group))
	for i, txn := range group {
		ids[i] = txn.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	first := group[0]
	return model.Alert{
		Type:           model.AlertDuplicate,
		Vendor:         first.CanonicalVendor,
		AmountCents:    first.AmountCents,
		Date:           first.TxnDate,
		Severity:       model.SeverityInfo,
		TransactionIDs: ids,
		Message: fmt.Sprintf("Possible duplicate: $%.2f %q on %s (%d records)",
			dollars(first.AmountCents), first.RawDescriptor,
			first.TxnDate.Format("2006-01-02"), len(group)),
	}
}

// SpendingSpikes alerts on per-category statistical outliers. The baseline
// is the per-transaction debit amounts in the trailing window (Prior); each
// debit in the scan window is scored as z = (amount - mean) / stddev. A
// degenerate baseline (fewer than two points, or stddev 0) skips the check
// rather than dividing by zero. Debits only.
func (d *Detector) SpendingSpikes(w Window) []model.Alert {
	baseline := make(map[string][]int64)
	for _, txn := range w.Prior {
		if txn.IsDebit() && txn.Category != "" {
			baseline[txn.Category] = append(baseline[txn.Category], txn.AmountCents)
		}
	}

	var alerts []model.Alert
	for _, txn := range sortedByDate(w.Recent) {
		if !txn.IsDebit() || txn.Category == "" {
			continue
		}
		amounts := baseline[txn.Category]
		if len(amounts) < minBaselineSamples {
			continue
		}
		mean, stddev := meanStddev(amounts)
		if stddev == 0 {
			continue
		}

		z := (float64(txn.AmountCents) - mean) / stddev
		if math.Abs(z) <= d.thresholds.ZScoreCutoff {
			continue
		}

		severity := model.SeverityWarning
		if math.Abs(z) > 3.0 {
			severity = model.SeverityHigh
		}
		alerts = append(alerts, model.Alert{
			Type:           model.AlertSpendingSpike,
			Vendor:         txn.CanonicalVendor,
			Category:       txn.Category,
			AmountCents:    txn.AmountCents,
			Date:           txn.TxnDate,
			Severity:       severity,
			ZScore:         z,
			TransactionIDs: []int64{txn.ID},
			Message: fmt.Sprintf("Unusual $%.2f transaction in %s (z-score %.2f)",
				dollars(txn.AmountCents), txn.Category, z),
		})
	}

	return alerts
}

// MissingReceipts alerts on categorized transactions above the
// receipt-worthy threshold that carry no receipt reference. Credits are
// eligible too.
func (d *Detector) MissingReceipts(w Window) []model.Alert {
	var alerts []model.Alert
	for _, txn := range sortedByDate(w.Recent) {
		if txn.Status == model.StatusIngested {
			continue
		}
		if txn.AmountCents <= d.thresholds.ReceiptWorthyCents || txn.ReceiptURL != "" {
			continue
		}

		subject := txn.CanonicalVendor
		if subject == "" {
			subject = txn.RawDescriptor
		}
		alerts = append(alerts, model.Alert{
			Type:           model.AlertMissingReceipt,
			Vendor:         txn.CanonicalVendor,
			Category:       txn.Category,
			AmountCents:    txn.AmountCents,
			Date:           txn.TxnDate,
			Severity:       model.SeverityInfo,
			TransactionIDs: []int64{txn.ID},
			Message: fmt.Sprintf("Missing receipt for $%.2f at %s",
				dollars(txn.AmountCents), subject),
		})
	}
	return alerts
}

// PendingReview alerts on transactions sitting in review, naming the
// routing reason.
func (d *Detector) PendingReview(w Window) []model.Alert {
	var alerts []model.Alert
	for _, txn := range sortedByDate(w.Recent) {
		if txn.Status != model.StatusReview {
			continue
		}

		reason := "high amount"
		if txn.Confidence != nil && *txn.Confidence < d.thresholds.LowConfidence {
			reason = "low confidence"
		}

		subject := txn.CanonicalVendor
		if subject == "" {
			subject = txn.RawDescriptor
		}
		alerts = append(alerts, model.Alert{
			Type:           model.AlertPendingReview,
			Vendor:         txn.CanonicalVendor,
			Category:       txn.Category,
			AmountCents:    txn.AmountCents,
			Date:           txn.TxnDate,
			Severity:       model.SeverityWarning,
			TransactionIDs: []int64{txn.ID},
			Message: fmt.Sprintf("Transaction pending review (%s): $%.2f at %s",
				reason, dollars(txn.AmountCents), subject),
		})
	}
	return alerts
}

// UnusualSpending alerts on categories whose window debit total exceeds
// three times the baseline total. The baseline is bounded to the two
// window lengths immediately preceding the window, so ancient history
// cannot dilute the ratio. Debits only.
func (d *Detector) UnusualSpending(w Window) []model.Alert {
	baselineStart := w.Start.Add(-2 * w.End.Sub(w.Start))
	baseline := make([]model.Transaction, 0, len(w.Prior))
	for _, txn := range w.Prior {
		if txn.TxnDate.Before(baselineStart) || !txn.TxnDate.Before(w.Start) {
			continue
		}
		baseline = append(baseline, txn)
	}

	recentTotals := debitTotalsByCategory(w.Recent)
	priorTotals := debitTotalsByCategory(baseline)

	categories := make([]string, 0, len(recentTotals))
	for category := range recentTotals {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var alerts []model.Alert
	for _, category := range categories {
		prior := priorTotals[category]
		if prior == 0 {
			continue
		}
		recent := recentTotals[category]
		ratio := float64(recent) / float64(prior)
		if ratio <= unusualSpendingMultiplier {
			continue
		}

		severity := model.SeverityWarning
		if ratio > 5.0 {
			severity = model.SeverityHigh
		}
		alerts = append(alerts, model.Alert{
			Type:        model.AlertUnusualSpending,
			Category:    category,
			AmountCents: recent,
			Date:        w.End,
			Severity:    severity,
			Message: fmt.Sprintf("%s spending is %.1fx higher than the baseline",
				category, ratio),
		})
	}
	return alerts
}

func debitTotalsByCategory(txns []model.Transaction) map[string]int64 {
	totals := make(map[string]int64)
	for _, txn := range txns {
		if txn.IsDebit() && txn.Category != "" {
			totals[txn.Category] += txn.AmountCents
		}
	}
	return totals
}

func meanStddev(amounts []int64) (float64, float64) {
	mean := 0.0
	for _, a := range amounts {
		mean += float64(a)
	}
	mean /= float64(len(amounts))

	variance := 0.0
	for _, a := range amounts {
		diff := float64(a) - mean
		variance += diff * diff
	}
	variance /= float64(len(amounts))

	return mean, math.Sqrt(variance)
}

func sortedByDate(txns []model.Transaction) []model.Transaction {
	out := make([]model.Transaction, len(txns))
	copy(out, txns)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TxnDate.Equal(out[j].TxnDate) {
			return out[i].TxnDate.Before(out[j].TxnDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func dollars(cents int64) float64 {
	return float64(cents) / 100
}
