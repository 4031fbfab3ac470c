// Package model defines the core data structures for the sift application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// TransactionDirection indicates whether money left or entered the account.
type TransactionDirection string

// Transaction directions.
const (
	DirectionDebit  TransactionDirection = "debit"
	DirectionCredit TransactionDirection = "credit"
)

// TransactionStatus tracks a transaction through the categorization lifecycle.
type TransactionStatus string

// Transaction statuses.
const (
	StatusIngested  TransactionStatus = "ingested"
	StatusReview    TransactionStatus = "review"
	StatusFinalized TransactionStatus = "finalized"
)

// Transaction represents a single bank transaction from any source.
// Records are immutable once ingested; only the categorization fields
// (Category, Subcategory, Confidence, CanonicalVendor, Status) change
// afterwards.
type Transaction struct {
	TxnDate         time.Time
	RawDescriptor   string
	CanonicalVendor string // Normalized vendor name, empty until matched
	MCC             string // Merchant category code, may be empty
	Memo            string
	SourceAccount   string
	Currency        string
	HashID          string // Dedupe key, derived from date+amount+descriptor+account
	ReceiptURL      string
	Category        string
	Subcategory     string
	Status          TransactionStatus
	Direction       TransactionDirection
	Confidence      *float64 // nil until categorized, otherwise in [0,1]
	AmountCents     int64    // Always non-negative; sign is conveyed by Direction
	ID              int64
}

// GenerateHash computes the dedupe hash for a transaction from its
// date, amount, descriptor and account.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s|%d|%s|%s",
		t.TxnDate.Format("2006-01-02"),
		t.AmountCents,
		t.RawDescriptor,
		t.SourceAccount)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// IsDebit reports whether the transaction took money out of the account.
func (t *Transaction) IsDebit() bool {
	return t.Direction == DirectionDebit
}

// CategorizationResult is the outcome of running a transaction through the
// categorization engine.
type CategorizationResult struct {
	Category    string
	Subcategory string
	Vendor      string
	Status      TransactionStatus
	Confidence  float64
	RuleID      int64 // 0 when the AI fallback produced the result
}
