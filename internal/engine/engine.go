// Package engine orchestrates transaction categorization: deterministic
// rules first, the AI fallback second, then the review-routing decision
// and the single persistence write.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/siftd/sift/internal/config"
	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/rules"
	"github.com/siftd/sift/internal/service"
)

// Engine is the single entry point external callers use to categorize
// and finalize transactions.
type Engine struct {
	storage    service.Storage
	classifier Classifier
	vendors    VendorResolver
	thresholds config.Thresholds
}

// New creates a categorization engine. vendors may be nil when no vendor
// table is available.
func New(storage service.Storage, classifier Classifier, vendors VendorResolver, thresholds config.Thresholds) *Engine {
	return &Engine{
		storage:    storage,
		classifier: classifier,
		vendors:    vendors,
		thresholds: thresholds,
	}
}

// Categorize runs one transaction through the rule stage and, on a miss,
// the AI fallback, then persists the outcome. On failure the transaction
// keeps its current status; partial results are never written.
func (e *Engine) Categorize(ctx context.Context, txn model.Transaction) (model.CategorizationResult, error) {
	ruleEngine, err := e.loadRules(ctx)
	if err != nil {
		return model.CategorizationResult{}, err
	}
	return e.categorizeWith(ctx, ruleEngine, txn)
}

// loadRules takes the rule snapshot used for one evaluation pass. A batch
// holds the snapshot it started with; rules refreshed mid-batch are picked
// up by the next batch.
func (e *Engine) loadRules(ctx context.Context) (*rules.Engine, error) {
	active, err := e.storage.GetActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return rules.NewEngine(active), nil
}

func (e *Engine) categorizeWith(ctx context.Context, ruleEngine *rules.Engine, txn model.Transaction) (model.CategorizationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.thresholds.TxnTimeout)
	defer cancel()

	if txn.CanonicalVendor == "" && e.vendors != nil {
		if canonical, ok := e.vendors.Normalize(txn.RawDescriptor); ok {
			txn.CanonicalVendor = canonical
		}
	}

	result, err := e.decide(ctx, ruleEngine, txn)
	if err != nil {
		return model.CategorizationResult{}, err
	}

	if err := e.storage.UpdateCategorization(ctx, txn.ID, result); err != nil {
		return model.CategorizationResult{}, fmt.Errorf("failed to persist categorization: %w", err)
	}

	slog.Info("Transaction categorized",
		"transaction_id", txn.ID,
		"category", result.Category,
		"confidence", result.Confidence,
		"status", result.Status,
		"rule_id", result.RuleID)

	return result, nil
}

// decide runs the ordered strategy chain (rule stage, AI stage) and applies
// review routing to whichever stage produced a result.
func (e *Engine) decide(ctx context.Context, ruleEngine *rules.Engine, txn model.Transaction) (model.CategorizationResult, error) {
	if m := ruleEngine.Match(txn); m != nil {
		result := model.CategorizationResult{
			Category:    m.Category,
			Subcategory: m.Subcategory,
			Vendor:      txn.CanonicalVendor,
			Confidence:  1.0,
			RuleID:      m.RuleID,
		}
		result.Status = e.routeStatus(result.Confidence, txn.AmountCents)
		return result, nil
	}

	suggestion, err := e.classifier.Suggest(ctx, txn)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return model.CategorizationResult{}, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return model.CategorizationResult{}, err
	}

	result := model.CategorizationResult{
		Category:    suggestion.Category,
		Subcategory: suggestion.Subcategory,
		Vendor:      txn.CanonicalVendor,
		Confidence:  suggestion.Confidence,
	}
	if result.Vendor == "" {
		result.Vendor = suggestion.Vendor
	}

	// Vendor default hint: when the AI is unsure and the vendor carries a
	// default categorization, prefer the default over the low-confidence
	// guess. The transaction still routes to review.
	if result.Confidence < e.thresholds.LowConfidence && e.vendors != nil && txn.CanonicalVendor != "" {
		if category, subcategory, ok := e.vendors.DefaultFor(txn.CanonicalVendor); ok {
			slog.Debug("Applying vendor default hint",
				"transaction_id", txn.ID,
				"vendor", txn.CanonicalVendor,
				"category", category)
			result.Category = category
			result.Subcategory = subcategory
		}
	}

	result.Status = e.routeStatus(result.Confidence, txn.AmountCents)
	return result, nil
}

// routeStatus is the review-routing decision: review when confidence is
// below the threshold or the amount is above it, finalized otherwise.
// Pure function of its inputs.
func (e *Engine) routeStatus(confidence float64, amountCents int64) model.TransactionStatus {
	if confidence < e.thresholds.LowConfidence || amountCents > e.thresholds.ReviewAmountCents {
		return model.StatusReview
	}
	return model.StatusFinalized
}

// Finalize applies a manual category override: confidence becomes 1.0 and
// the transaction is finalized regardless of its prior state. The category
// must come from the fixed taxonomy.
func (e *Engine) Finalize(ctx context.Context, txnID int64, category, subcategory string) error {
	if !model.ValidCategory(category) {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	txn, err := e.storage.GetTransactionByID(ctx, txnID)
	if err != nil {
		return fmt.Errorf("failed to load transaction %d: %w", txnID, err)
	}

	result := model.CategorizationResult{
		Category:    category,
		Subcategory: subcategory,
		Vendor:      txn.CanonicalVendor,
		Confidence:  1.0,
		Status:      model.StatusFinalized,
	}
	if err := e.storage.UpdateCategorization(ctx, txnID, result); err != nil {
		return fmt.Errorf("failed to finalize transaction %d: %w", txnID, err)
	}

	slog.Info("Transaction finalized",
		"transaction_id", txnID,
		"category", category,
		"subcategory", subcategory)

	return nil
}
