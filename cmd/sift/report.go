package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/report"
	"github.com/siftd/sift/internal/service"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a monthly financial summary",
		Long: `Summarize finalized transactions for a month: debit totals by
category, the top vendors, a daily spending series, and income versus
expenses.`,
		RunE: runReport,
	}

	cmd.Flags().String("month", "", "month to report in YYYY-MM format (default: current month)")
	cmd.Flags().String("account", "", "restrict to one source account")
	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	month, _ := cmd.Flags().GetString("month")
	account, _ := cmd.Flags().GetString("account")
	ctx := cmd.Context()

	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	}
	parsed, err := time.Parse("2006-01", month)
	if err != nil {
		return fmt.Errorf("invalid month %q, want YYYY-MM", month)
	}
	start, end := report.MonthRange(parsed.Year(), parsed.Month())

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	transactions, err := store.GetTransactions(ctx, service.TransactionFilter{
		StartDate: &start,
		EndDate:   &end,
		Account:   account,
		Status:    model.StatusFinalized,
	})
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}

	summary := report.Summarize(month, transactions)

	fmt.Printf("Summary for %s\n", summary.Period)
	fmt.Printf("  Income:   %s\n", dollars(summary.TotalIncomeCents))
	fmt.Printf("  Expenses: %s\n", dollars(summary.TotalExpenseCents))
	fmt.Printf("  Net:      %s\n", dollars(summary.NetSavingsCents))

	if len(summary.TotalsByCategory) > 0 {
		fmt.Println("\nSpending by category:")
		for _, ct := range summary.TotalsByCategory {
			fmt.Printf("  %-20s %12s\n", ct.Category, dollars(ct.AmountCents))
		}
	}

	if len(summary.TopVendors) > 0 {
		fmt.Println("\nTop vendors:")
		for i, vt := range summary.TopVendors {
			fmt.Printf("  %2d. %-25s %12s\n", i+1, vt.Vendor, dollars(vt.AmountCents))
		}
	}

	if len(summary.Timeseries) > 0 {
		fmt.Println("\nDaily spending:")
		for _, point := range summary.Timeseries {
			fmt.Printf("  %s %12s\n", dateOnly(point.Date), dollars(point.SumCents))
		}
	}

	return nil
}
