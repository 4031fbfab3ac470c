package model

import "time"

// AlertType identifies which anomaly detector produced an alert.
type AlertType string

// Alert types.
const (
	AlertNewVendorOverThreshold AlertType = "new_vendor_over_threshold"
	AlertDuplicate              AlertType = "duplicate_detected"
	AlertSpendingSpike          AlertType = "spending_spike"
	AlertMissingReceipt         AlertType = "missing_receipt"
	AlertPendingReview          AlertType = "pending_review"
	AlertUnusualSpending        AlertType = "unusual_category_spending"
)

// AlertSeverity grades how urgent an alert is.
type AlertSeverity string

// Alert severities.
const (
	SeverityInfo    AlertSeverity = "info"
	SeverityWarning AlertSeverity = "warning"
	SeverityHigh    AlertSeverity = "high"
)

// Alert is a single anomaly finding. Alerts are recomputed on every scan
// and never persisted, so there is no stored state to reconcile.
type Alert struct {
	Date           time.Time
	Type           AlertType
	Vendor         string
	Category       string
	Message        string
	Severity       AlertSeverity
	TransactionIDs []int64
	AmountCents    int64
	ZScore         float64 // Only set for spending_spike alerts
}
