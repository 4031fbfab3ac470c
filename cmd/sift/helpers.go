package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/siftd/sift/internal/ai"
	"github.com/siftd/sift/internal/config"
	"github.com/siftd/sift/internal/engine"
	"github.com/siftd/sift/internal/service"
	"github.com/siftd/sift/internal/storage"
	"github.com/siftd/sift/internal/vendor"
)

// expandPath resolves a leading ~ and any $VAR references in a
// user-supplied path from config.
func expandPath(path string) string {
	switch {
	case path == "~":
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	case strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return os.ExpandEnv(path)
}

// initStorage opens the database and runs any pending migrations.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/sift/sift.db"
	}
	dbPath = expandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadThresholds builds decision thresholds from config, falling back to
// defaults for anything unset.
func loadThresholds() (config.Thresholds, error) {
	thresholds := config.DefaultThresholds()

	if viper.IsSet("thresholds.low_confidence") {
		thresholds.LowConfidence = viper.GetFloat64("thresholds.low_confidence")
	}
	if viper.IsSet("thresholds.review_amount_cents") {
		thresholds.ReviewAmountCents = viper.GetInt64("thresholds.review_amount_cents")
	}
	if viper.IsSet("thresholds.new_vendor_cents") {
		thresholds.NewVendorCents = viper.GetInt64("thresholds.new_vendor_cents")
	}
	if viper.IsSet("thresholds.receipt_worthy_cents") {
		thresholds.ReceiptWorthyCents = viper.GetInt64("thresholds.receipt_worthy_cents")
	}
	if viper.IsSet("thresholds.zscore_cutoff") {
		thresholds.ZScoreCutoff = viper.GetFloat64("thresholds.zscore_cutoff")
	}
	if viper.IsSet("thresholds.max_concurrent_ai") {
		thresholds.MaxConcurrentAI = viper.GetInt("thresholds.max_concurrent_ai")
	}
	if viper.IsSet("thresholds.txn_timeout") {
		thresholds.TxnTimeout = viper.GetDuration("thresholds.txn_timeout")
	}

	if err := thresholds.Validate(); err != nil {
		return config.Thresholds{}, err
	}
	return thresholds, nil
}

// newEngine wires storage, the AI fallback and the vendor normalizer into
// a categorization engine.
func newEngine(ctx context.Context, store service.Storage) (*engine.Engine, *ai.Fallback, error) {
	thresholds, err := loadThresholds()
	if err != nil {
		return nil, nil, err
	}

	aiConfig := ai.Config{
		APIKey:      viper.GetString("ai.api_key"),
		Model:       viper.GetString("ai.model"),
		BaseURL:     viper.GetString("ai.base_url"),
		Temperature: viper.GetFloat64("ai.temperature"),
		MaxTokens:   viper.GetInt("ai.max_tokens"),
		RateLimit:   viper.GetInt("ai.rate_limit"),
		RetryDelay:  viper.GetDuration("ai.retry_delay"),
	}
	fallback, err := ai.NewFallback(aiConfig, slog.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create AI fallback: %w", err)
	}

	vendors, err := store.GetAllVendors(ctx)
	if err != nil {
		_ = fallback.Close()
		return nil, nil, fmt.Errorf("failed to load vendors: %w", err)
	}

	eng := engine.New(store, fallback, vendor.NewNormalizer(vendors), thresholds)
	return eng, fallback, nil
}

// dollars renders cents for display.
func dollars(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}

func dateOnly(t time.Time) string {
	return t.Format("2006-01-02")
}
