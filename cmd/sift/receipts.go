package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/receipt"
	"github.com/siftd/sift/internal/service"
)

func receiptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "Link Google Drive receipts to transactions",
		Long: `Search the configured Google Drive folder for receipts matching
categorized transactions over the receipt-worthy amount that have none
attached. A receipt matches when it was created within three days of the
transaction and its filename carries a compatible amount or the vendor
name.`,
		RunE: runReceipts,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "report matches without saving")
	return cmd
}

func runReceipts(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
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

	matcher, err := receipt.NewMatcher(ctx, receipt.Config{
		FolderID:           viper.GetString("receipts.drive_folder_id"),
		ServiceAccountPath: expandPath(viper.GetString("receipts.service_account_path")),
		ClientID:           viper.GetString("receipts.client_id"),
		ClientSecret:       viper.GetString("receipts.client_secret"),
		RefreshToken:       viper.GetString("receipts.refresh_token"),
	})
	if err != nil {
		return err
	}

	// Receipts only matter for categorized transactions over the
	// receipt-worthy threshold.
	var candidates []model.Transaction
	for _, status := range []model.TransactionStatus{model.StatusFinalized, model.StatusReview} {
		txns, listErr := store.GetTransactions(ctx, service.TransactionFilter{Status: status})
		if listErr != nil {
			return fmt.Errorf("failed to load transactions: %w", listErr)
		}
		for _, txn := range txns {
			if txn.ReceiptURL == "" && txn.AmountCents > thresholds.ReceiptWorthyCents {
				candidates = append(candidates, txn)
			}
		}
	}

	matched := 0
	for _, txn := range candidates {
		url, findErr := matcher.Find(ctx, txn)
		if findErr != nil {
			return findErr
		}
		if url == "" {
			continue
		}
		matched++

		if dryRun {
			fmt.Printf("Would link %d (%s %s) -> %s\n",
				txn.ID, dateOnly(txn.TxnDate), dollars(txn.AmountCents), url)
			continue
		}
		if err := store.UpdateReceiptURL(ctx, txn.ID, url); err != nil {
			return err
		}
	}

	fmt.Printf("Matched %d of %d receipt-worthy transactions\n", matched, len(candidates))
	return nil
}
