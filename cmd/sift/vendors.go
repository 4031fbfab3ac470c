package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/siftd/sift/internal/model"
)

func vendorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vendors",
		Short: "Manage canonical vendors",
	}

	cmd.AddCommand(vendorsListCmd())
	cmd.AddCommand(vendorsAddCmd())
	return cmd
}

func vendorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known vendors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			vendors, err := store.GetAllVendors(ctx)
			if err != nil {
				return fmt.Errorf("failed to load vendors: %w", err)
			}
			if len(vendors) == 0 {
				fmt.Println("No vendors")
				return nil
			}

			for _, v := range vendors {
				line := v.CanonicalName
				if v.DefaultCategory != "" {
					line += "  -> " + v.DefaultCategory
					if v.DefaultSubcategory != "" {
						line += "/" + v.DefaultSubcategory
					}
				}
				if len(v.Aliases) > 0 {
					line += fmt.Sprintf("  (aliases: %s)", strings.Join(v.Aliases, ", "))
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func vendorsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [canonical-name]",
		Short: "Add or update a vendor",
		Args:  cobra.ExactArgs(1),
		RunE:  runVendorsAdd,
	}

	cmd.Flags().String("category", "", "default category for this vendor")
	cmd.Flags().String("subcategory", "", "default subcategory")
	cmd.Flags().StringSlice("alias", nil, "descriptor alias (repeatable)")
	return cmd
}

func runVendorsAdd(cmd *cobra.Command, args []string) error {
	category, _ := cmd.Flags().GetString("category")
	subcategory, _ := cmd.Flags().GetString("subcategory")
	aliases, _ := cmd.Flags().GetStringSlice("alias")
	ctx := cmd.Context()

	if category != "" && !model.ValidCategory(category) {
		return fmt.Errorf("unknown category %q", category)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	vendor := &model.Vendor{
		CanonicalName:      args[0],
		DefaultCategory:    category,
		DefaultSubcategory: subcategory,
		Aliases:            aliases,
	}
	if err := store.SaveVendor(ctx, vendor); err != nil {
		return err
	}

	fmt.Printf("Saved vendor %q\n", vendor.CanonicalName)
	return nil
}
