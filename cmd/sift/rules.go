package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesSeedCmd())
	cmd.AddCommand(rulesTestCmd())
	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active rules in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			active, err := store.GetActiveRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to load rules: %w", err)
			}
			if len(active) == 0 {
				fmt.Println("No active rules")
				return nil
			}

			for _, rule := range active {
				action := rule.Action.Category
				if rule.Action.Subcategory != "" {
					action += "/" + rule.Action.Subcategory
				}
				fmt.Printf("%4d  prio %4d  %-30s  %s\n",
					rule.ID, rule.Priority, action, string(rule.Condition))
			}
			return nil
		},
	}
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [condition-json]",
		Short: "Add a categorization rule",
		Long: `Add a rule whose condition is a JSON object of clauses, all of which
must match. Supported clauses: mcc, descriptor_contains,
descriptor_regex, account, direction, amount_min_cents, amount_max_cents.

Example:
  sift rules add '{"mcc":["5411"]}' --category Groceries --priority 10`,
		Args: cobra.ExactArgs(1),
		RunE: runRulesAdd,
	}

	cmd.Flags().String("category", "", "category the rule assigns (required)")
	cmd.Flags().String("subcategory", "", "optional subcategory")
	cmd.Flags().Int("priority", 100, "evaluation priority (lower runs first)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func runRulesAdd(cmd *cobra.Command, args []string) error {
	category, _ := cmd.Flags().GetString("category")
	subcategory, _ := cmd.Flags().GetString("subcategory")
	priority, _ := cmd.Flags().GetInt("priority")
	ctx := cmd.Context()

	if !model.ValidCategory(category) {
		return fmt.Errorf("unknown category %q", category)
	}

	condition := json.RawMessage(args[0])
	// Reject malformed conditions up front instead of skipping the rule
	// at match time.
	if _, err := rules.ParseCondition(0, condition); err != nil {
		return fmt.Errorf("invalid condition: %w", err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rule := &model.Rule{
		Priority:  priority,
		Active:    true,
		Condition: condition,
		Action: model.RuleAction{
			Category:    category,
			Subcategory: subcategory,
		},
	}
	if err := store.SaveRule(ctx, rule); err != nil {
		return err
	}

	fmt.Printf("Added rule %d (priority %d) -> %s\n", rule.ID, priority, category)
	return nil
}

// defaultRules covers the common MCC codes and recurring merchants most
// statements carry, so a fresh database categorizes something on day one.
func defaultRules() []model.Rule {
	mcc := func(priority int, category, subcategory string, codes ...string) model.Rule {
		cond, _ := json.Marshal(map[string]any{"mcc": codes})
		return model.Rule{
			Priority:  priority,
			Active:    true,
			Condition: cond,
			Action:    model.RuleAction{Category: category, Subcategory: subcategory},
		}
	}
	contains := func(priority int, category, subcategory, needle string) model.Rule {
		cond, _ := json.Marshal(map[string]any{"descriptor_contains": needle})
		return model.Rule{
			Priority:  priority,
			Active:    true,
			Condition: cond,
			Action:    model.RuleAction{Category: category, Subcategory: subcategory},
		}
	}

	return []model.Rule{
		mcc(10, "Groceries", "", "5411", "5422", "5451"),
		mcc(10, "Dining", "Restaurants", "5812", "5813"),
		mcc(10, "Dining", "Fast Food", "5814"),
		mcc(10, "Fuel", "", "5541", "5542"),
		mcc(10, "Transport", "Rideshare", "4121"),
		mcc(10, "Travel-Air", "", "4511"),
		mcc(10, "Pets", "", "0742", "5995"),
		contains(20, "Subscriptions", "Streaming", "NETFLIX"),
		contains(20, "Subscriptions", "Streaming", "SPOTIFY"),
		contains(20, "Income", "Salary", "PAYROLL"),
	}
}

func rulesSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the default rule set into an empty database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			existing, err := store.GetActiveRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to load rules: %w", err)
			}
			if len(existing) > 0 {
				fmt.Printf("Database already has %d active rules; nothing seeded\n", len(existing))
				return nil
			}

			seeds := defaultRules()
			for i := range seeds {
				if err := store.SaveRule(ctx, &seeds[i]); err != nil {
					return fmt.Errorf("failed to seed rules: %w", err)
				}
			}
			fmt.Printf("Seeded %d default rules\n", len(seeds))
			return nil
		},
	}
}

func rulesTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Dry-run the active rules against a synthetic transaction",
		RunE:  runRulesTest,
	}

	cmd.Flags().String("descriptor", "", "raw transaction descriptor (required)")
	cmd.Flags().Int64("amount-cents", 0, "transaction amount in cents")
	cmd.Flags().String("mcc", "", "merchant category code")
	cmd.Flags().String("account", "", "source account identifier")
	cmd.Flags().String("direction", "debit", "debit or credit")
	_ = cmd.MarkFlagRequired("descriptor")
	return cmd
}

func runRulesTest(cmd *cobra.Command, _ []string) error {
	descriptor, _ := cmd.Flags().GetString("descriptor")
	amountCents, _ := cmd.Flags().GetInt64("amount-cents")
	mcc, _ := cmd.Flags().GetString("mcc")
	account, _ := cmd.Flags().GetString("account")
	direction, _ := cmd.Flags().GetString("direction")
	ctx := cmd.Context()

	dir := model.TransactionDirection(direction)
	if dir != model.DirectionDebit && dir != model.DirectionCredit {
		return fmt.Errorf("invalid direction %q (must be debit or credit)", direction)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	active, err := store.GetActiveRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	txn := model.Transaction{
		RawDescriptor: descriptor,
		AmountCents:   amountCents,
		MCC:           mcc,
		SourceAccount: account,
		Direction:     dir,
	}

	match := rules.NewEngine(active).Match(txn)
	if match == nil {
		fmt.Println("No rule matches; the AI fallback would categorize this transaction")
		return nil
	}

	action := match.Category
	if match.Subcategory != "" {
		action += "/" + match.Subcategory
	}
	fmt.Printf("Rule %d matches -> %s\n", match.RuleID, action)
	return nil
}
