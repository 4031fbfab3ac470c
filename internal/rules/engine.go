package rules

import (
	"log/slog"
	"sort"

	"github.com/siftd/sift/internal/model"
)

// Match is the outcome of a successful rule evaluation. A rule match is
// deterministic, so its confidence is 1.0 by contract.
type Match struct {
	Category    string
	Subcategory string
	RuleID      int64
}

// compiledRule pairs a stored rule with its parsed condition. Rules whose
// condition failed to parse keep a nil condition and are skipped at match
// time.
type compiledRule struct {
	condition *Condition
	rule      model.Rule
}

// Engine evaluates a fixed snapshot of active rules in priority order.
// The snapshot is immutable after construction, so a long batch can share
// one engine without torn reads; reload rules between batches by building
// a new engine.
type Engine struct {
	compiled []compiledRule
}

// NewEngine compiles the given rules into an evaluation snapshot. Inactive
// rules are dropped; rules with malformed conditions are logged and kept as
// permanently non-matching so a single bad rule cannot abort a batch.
func NewEngine(rules []model.Rule) *Engine {
	active := make([]model.Rule, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			active = append(active, r)
		}
	}

	// Lowest priority number wins; rule ID is the stable tie-break.
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority < active[j].Priority
		}
		return active[i].ID < active[j].ID
	})

	compiled := make([]compiledRule, 0, len(active))
	for _, r := range active {
		cond, err := ParseCondition(r.ID, r.Condition)
		if err != nil {
			slog.Error("Skipping rule with invalid condition",
				"rule_id", r.ID,
				"priority", r.Priority,
				"error", err)
			compiled = append(compiled, compiledRule{rule: r})
			continue
		}
		compiled = append(compiled, compiledRule{rule: r, condition: cond})
	}

	return &Engine{compiled: compiled}
}

// Match returns the action of the first rule whose condition evaluates
// true, or nil when no rule matches.
func (e *Engine) Match(txn model.Transaction) *Match {
	for _, cr := range e.compiled {
		if cr.condition == nil {
			continue
		}
		if cr.condition.Matches(txn) {
			slog.Debug("Rule matched transaction",
				"rule_id", cr.rule.ID,
				"priority", cr.rule.Priority,
				"transaction_id", txn.ID,
				"category", cr.rule.Action.Category)
			return &Match{
				Category:    cr.rule.Action.Category,
				Subcategory: cr.rule.Action.Subcategory,
				RuleID:      cr.rule.ID,
			}
		}
	}
	return nil
}

// RuleCount reports how many rules are in the snapshot, including ones
// disabled by a parse failure.
func (e *Engine) RuleCount() int {
	return len(e.compiled)
}
