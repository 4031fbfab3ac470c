// Package config holds the tunable decision boundaries injected into the
// categorization engine and anomaly detectors.
package config

import (
	"fmt"
	"time"
)

// Thresholds holds every tunable decision boundary used by the
// categorization engine and the anomaly detectors. It is built once from
// the external configuration and passed into constructors, never read
// from ambient globals, so tests can inject arbitrary values.
type Thresholds struct {
	// LowConfidence routes categorizations below this confidence to review.
	LowConfidence float64
	// ReviewAmountCents routes transactions above this amount to review,
	// even when a deterministic rule matched.
	ReviewAmountCents int64
	// NewVendorCents triggers a new-vendor alert for first-time vendors
	// charging above this amount.
	NewVendorCents int64
	// ReceiptWorthyCents triggers a missing-receipt alert for categorized
	// transactions above this amount without a receipt reference.
	ReceiptWorthyCents int64
	// ZScoreCutoff is the |z| above which a spending spike is alerted.
	ZScoreCutoff float64
	// MaxConcurrentAI caps outstanding AI fallback calls during a batch.
	MaxConcurrentAI int
	// TxnTimeout bounds a single categorization attempt, retries included.
	TxnTimeout time.Duration
}

// DefaultThresholds returns the stock decision boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowConfidence:      0.80,
		ReviewAmountCents:  5000,
		NewVendorCents:     5000,
		ReceiptWorthyCents: 2500,
		ZScoreCutoff:       2.0,
		MaxConcurrentAI:    5,
		TxnTimeout:         10 * time.Second,
	}
}

// Validate checks that the thresholds are internally consistent.
func (t Thresholds) Validate() error {
	if t.LowConfidence < 0 || t.LowConfidence > 1 {
		return fmt.Errorf("low confidence threshold must be in [0,1], got %v", t.LowConfidence)
	}
	if t.ReviewAmountCents < 0 {
		return fmt.Errorf("review amount threshold must be non-negative, got %d", t.ReviewAmountCents)
	}
	if t.ZScoreCutoff <= 0 {
		return fmt.Errorf("z-score cutoff must be positive, got %v", t.ZScoreCutoff)
	}
	if t.MaxConcurrentAI <= 0 {
		return fmt.Errorf("max concurrent AI calls must be positive, got %d", t.MaxConcurrentAI)
	}
	if t.TxnTimeout <= 0 {
		return fmt.Errorf("transaction timeout must be positive, got %v", t.TxnTimeout)
	}
	return nil
}
