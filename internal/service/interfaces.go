// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/siftd/sift/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
// Date bounds are half-open: StartDate is inclusive and EndDate is
// exclusive, so adjacent windows never share a transaction.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Category  string
	Vendor    string
	Account   string
	Status    model.TransactionStatus
	Limit     int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
	GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionsToCategorize(ctx context.Context, limit int) ([]model.Transaction, error)
	UpdateCategorization(ctx context.Context, id int64, result model.CategorizationResult) error
	UpdateReceiptURL(ctx context.Context, id int64, receiptURL string) error

	// Rule operations
	GetActiveRules(ctx context.Context) ([]model.Rule, error)
	SaveRule(ctx context.Context, rule *model.Rule) error

	// Vendor operations
	GetAllVendors(ctx context.Context) ([]model.Vendor, error)
	GetVendor(ctx context.Context, canonicalName string) (*model.Vendor, error)
	SaveVendor(ctx context.Context, vendor *model.Vendor) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
