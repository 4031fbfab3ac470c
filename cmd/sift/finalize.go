package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/siftd/sift/internal/engine"
	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/service"
)

func finalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finalize [transaction-id] [category] [subcategory]",
		Short: "Finalize a transaction pending review",
		Long: `Record a human category decision for a transaction. The category must
be one of the known labels; the decision is stored with full confidence
and the transaction leaves the review queue.

With --list, show the review queue instead.`,
		Args: cobra.RangeArgs(0, 3),
		RunE: runFinalize,
	}

	cmd.Flags().Bool("list", false, "list transactions pending review")
	return cmd
}

func runFinalize(cmd *cobra.Command, args []string) error {
	list, _ := cmd.Flags().GetBool("list")
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if list {
		pending, err := store.GetTransactions(ctx, service.TransactionFilter{
			Status: model.StatusReview,
		})
		if err != nil {
			return fmt.Errorf("failed to load review queue: %w", err)
		}
		if len(pending) == 0 {
			fmt.Println("Review queue is empty")
			return nil
		}
		for _, txn := range pending {
			subject := txn.CanonicalVendor
			if subject == "" {
				subject = txn.RawDescriptor
			}
			fmt.Printf("%6d  %s  %10s  %-30s  suggested: %s\n",
				txn.ID, dateOnly(txn.TxnDate), dollars(txn.AmountCents),
				subject, txn.Category)
		}
		return nil
	}

	if len(args) < 2 {
		return fmt.Errorf("usage: sift finalize <transaction-id> <category> [subcategory]")
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid transaction id %q", args[0])
	}
	category := args[1]
	subcategory := ""
	if len(args) == 3 {
		subcategory = args[2]
	}

	// Finalizing never consults the AI fallback, so no classifier is
	// wired in here.
	thresholds, err := loadThresholds()
	if err != nil {
		return err
	}
	eng := engine.New(store, nil, nil, thresholds)

	if err := eng.Finalize(ctx, id, category, subcategory); err != nil {
		return err
	}

	fmt.Printf("Finalized transaction %d as %s\n", id, category)
	return nil
}
