package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/siftd/sift/internal/common"
	"github.com/siftd/sift/internal/model"
)

// maxAttempts caps total calls per transaction, for both malformed-output
// retries and rate-limit backoff.
const maxAttempts = 3

// Fallback wraps a Client with the retry policy the engine relies on:
// malformed output gets an immediate fresh call, rate limiting backs off
// exponentially, and both are capped at three total attempts.
type Fallback struct {
	client    Client
	limiter   *rateLimiter
	logger    *slog.Logger
	baseDelay time.Duration
}

// NewFallback creates the AI fallback categorizer from configuration.
func NewFallback(cfg Config, logger *slog.Logger) (*Fallback, error) {
	client, err := newOpenAIClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}
	return NewFallbackWithClient(client, cfg, logger), nil
}

// NewFallbackWithClient wires an explicit client, used by tests to inject
// a mock service.
func NewFallbackWithClient(client Client, cfg Config, logger *slog.Logger) *Fallback {
	baseDelay := cfg.RetryDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{
		client:    client,
		limiter:   newRateLimiter(cfg.RateLimit),
		logger:    logger,
		baseDelay: baseDelay,
	}
}

// Suggest asks the service to categorize one transaction. Each attempt is
// an independent call; the response must parse as strict JSON with a
// taxonomy category. After exhausting attempts the last failure surfaces
// as ErrFormat or common.ErrRateLimit, and a context deadline surfaces as
// the context error so the caller can report a timeout.
func (f *Fallback) Suggest(ctx context.Context, txn model.Transaction) (Classification, error) {
	prompt := buildPrompt(txn)
	delay := f.baseDelay

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := f.limiter.wait(ctx); err != nil {
			return Classification{}, err
		}

		raw, err := f.client.Classify(ctx, prompt)
		if err != nil {
			lastErr = err

			if ctx.Err() != nil {
				return Classification{}, fmt.Errorf("classification aborted: %w", ctx.Err())
			}

			f.logger.Warn("AI classification attempt failed",
				"transaction_id", txn.ID,
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"error", err)

			if attempt == maxAttempts {
				break
			}

			// Rate limits back off with a doubling delay; transport
			// errors retry on the same schedule.
			select {
			case <-ctx.Done():
				return Classification{}, fmt.Errorf("classification aborted: %w", ctx.Err())
			case <-time.After(delay):
				delay *= 2
			}
			continue
		}

		result, perr := parseClassification(raw)
		if perr != nil {
			lastErr = perr
			f.logger.Warn("AI response rejected",
				"transaction_id", txn.ID,
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"error", perr)
			// Malformed output: issue a fresh call immediately.
			continue
		}

		f.logger.Debug("AI classification succeeded",
			"transaction_id", txn.ID,
			"attempt", attempt,
			"category", result.Category,
			"confidence", result.Confidence)

		return result, nil
	}

	switch {
	case errors.Is(lastErr, common.ErrRateLimit):
		return Classification{}, fmt.Errorf("rate limited after %d attempts: %w", maxAttempts, lastErr)
	case errors.Is(lastErr, ErrFormat):
		return Classification{}, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
	default:
		return Classification{}, fmt.Errorf("classification failed after %d attempts: %w", maxAttempts, lastErr)
	}
}

// Close releases any resources held by the fallback.
func (f *Fallback) Close() error {
	return nil
}

// buildPrompt renders the fixed-taxonomy categorization prompt with the
// transaction fields the service contract names.
func buildPrompt(txn model.Transaction) string {
	taxonomy, _ := json.Marshal(model.Taxonomy)

	return fmt.Sprintf(`Taxonomy = %s

Transaction:
date=%s
amount=%.2f %s (%s)
descriptor=%q
memo=%q
mcc=%q

Examples:
- "NETFLIX.COM" -> {"category":"Subscriptions","subcategory":"Streaming","confidence":0.97,"vendor":"Netflix"}
- "CASEY'S STORE 1234" -> {"category":"Fuel","subcategory":"Gas Station","confidence":0.92,"vendor":"Casey's"}
- "HY-VEE 1234" -> {"category":"Groceries","subcategory":"Supermarket","confidence":0.95,"vendor":"Hy-Vee"}
- "STARBUCKS 5678" -> {"category":"Dining","subcategory":"Coffee","confidence":0.93,"vendor":"Starbucks"}

Now classify this transaction. Return only valid JSON.`,
		taxonomy,
		txn.TxnDate.Format("2006-01-02"),
		float64(txn.AmountCents)/100,
		txn.Currency,
		txn.Direction,
		txn.RawDescriptor,
		txn.Memo,
		txn.MCC)
}
