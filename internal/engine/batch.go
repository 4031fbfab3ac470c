package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/siftd/sift/internal/model"
)

// BatchStats summarizes one batch categorization run.
type BatchStats struct {
	Processed int
	Finalized int
	Review    int
	Failed    int
}

// CategorizeBatch categorizes independent transactions concurrently,
// capping outstanding AI calls with a semaphore so the external service's
// rate limit is respected. The rule snapshot is taken once at the start
// and held for the whole batch. A failed transaction is counted and
// logged, never aborting the rest; progress (if non-nil) is called once
// per completed transaction, from worker goroutines, so it must be safe
// for concurrent use.
func (e *Engine) CategorizeBatch(ctx context.Context, txns []model.Transaction, progress func()) (BatchStats, error) {
	var stats BatchStats
	if len(txns) == 0 {
		return stats, nil
	}

	ruleEngine, err := e.loadRules(ctx)
	if err != nil {
		return stats, err
	}

	sem := make(chan struct{}, e.thresholds.MaxConcurrentAI)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, txn := range txns {
		wg.Add(1)
		go func(txn model.Transaction) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				stats.Failed++
				mu.Unlock()
				return
			}

			result, err := e.categorizeWith(ctx, ruleEngine, txn)

			mu.Lock()
			stats.Processed++
			switch {
			case err != nil:
				stats.Failed++
				slog.Error("Batch categorization failed for transaction",
					"transaction_id", txn.ID,
					"error", err)
			case result.Status == model.StatusReview:
				stats.Review++
			default:
				stats.Finalized++
			}
			mu.Unlock()

			if progress != nil {
				progress()
			}
		}(txn)
	}

	wg.Wait()

	slog.Info("Batch categorization complete",
		"processed", stats.Processed,
		"finalized", stats.Finalized,
		"review", stats.Review,
		"failed", stats.Failed)

	return stats, ctx.Err()
}
