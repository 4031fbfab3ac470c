package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/siftd/sift/internal/anomaly"
	"github.com/siftd/sift/internal/service"
)

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan recent transactions for anomalies",
		Long: `Run the anomaly detectors over a recent window of transactions:
new vendors with large first charges, duplicates, per-category spending
spikes, missing receipts, stale review items and unusual category
spending. The baseline is the history preceding the window.`,
		RunE: runScan,
	}

	cmd.Flags().Int("days", 30, "size of the scan window in days")
	return cmd
}

func runScan(cmd *cobra.Command, _ []string) error {
	days, _ := cmd.Flags().GetInt("days")
	if days <= 0 {
		return fmt.Errorf("scan window must be positive, got %d", days)
	}
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	thresholds, err := loadThresholds()
	if err != nil {
		return err
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	recent, err := store.GetTransactions(ctx, service.TransactionFilter{
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return fmt.Errorf("failed to load scan window: %w", err)
	}
	prior, err := store.GetTransactions(ctx, service.TransactionFilter{
		EndDate: &start,
	})
	if err != nil {
		return fmt.Errorf("failed to load baseline: %w", err)
	}

	detector := anomaly.New(thresholds)
	alerts := detector.Scan(anomaly.Window{
		Start:  start,
		End:    end,
		Recent: recent,
		Prior:  prior,
	})

	if len(alerts) == 0 {
		fmt.Printf("No anomalies in the last %d days (%d transactions)\n", days, len(recent))
		return nil
	}

	for _, alert := range alerts {
		fmt.Printf("[%-7s] %-26s %s\n", alert.Severity, alert.Type, alert.Message)
	}
	fmt.Printf("\n%d alerts across %d transactions\n", len(alerts), len(recent))
	return nil
}
