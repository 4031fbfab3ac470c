package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func categorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Categorize ingested transactions",
		Long: `Run every ingested transaction through the categorization engine:
deterministic rules first, then the AI fallback. Confident results are
finalized; uncertain or large ones are routed to review.`,
		RunE: runCategorize,
	}

	cmd.Flags().IntP("limit", "n", 0, "maximum transactions to process (0 = all)")
	return cmd
}

func runCategorize(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng, fallback, err := newEngine(ctx, store)
	if err != nil {
		return err
	}
	defer func() { _ = fallback.Close() }()

	pending, err := store.GetTransactionsToCategorize(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to load pending transactions: %w", err)
	}
	if len(pending) == 0 {
		fmt.Println("Nothing to categorize")
		return nil
	}

	bar := progressbar.NewOptions(len(pending),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Categorizing transactions..."))

	stats, err := eng.CategorizeBatch(ctx, pending, func() {
		_ = bar.Add(1)
	})
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d transactions: %d finalized, %d routed to review, %d failed\n",
		stats.Processed, stats.Finalized, stats.Review, stats.Failed)
	return nil
}
