// Package rules implements the deterministic rule engine that categorizes
// transactions before the AI fallback is consulted.
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/siftd/sift/internal/model"
)

// Condition is the closed set of predicate clauses a rule may carry.
// All present clauses must pass (AND semantics); absent clauses are
// vacuously true. Unknown keys in the stored JSON are a configuration
// error, never silently ignored.
type Condition struct {
	MCC                []string                    `json:"mcc,omitempty"`
	DescriptorContains string                      `json:"descriptor_contains,omitempty"`
	DescriptorRegex    string                      `json:"descriptor_regex,omitempty"`
	Account            string                      `json:"account,omitempty"`
	Direction          *model.TransactionDirection `json:"direction,omitempty"`
	AmountMinCents     *int64                      `json:"amount_min_cents,omitempty"`
	AmountMaxCents     *int64                      `json:"amount_max_cents,omitempty"`

	regex *regexp.Regexp
}

// ConfigError reports a malformed rule condition. The engine recovers from
// it by skipping the offending rule; it never aborts a batch.
type ConfigError struct {
	Err    error
	Reason string
	RuleID int64
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rule %d: %s: %v", e.RuleID, e.Reason, e.Err)
	}
	return fmt.Sprintf("rule %d: %s", e.RuleID, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ParseCondition decodes a stored condition into its validated form.
// Unknown clause keys, invalid directions and invalid regex patterns all
// yield a ConfigError.
func ParseCondition(ruleID int64, raw json.RawMessage) (*Condition, error) {
	if len(raw) == 0 {
		return nil, &ConfigError{RuleID: ruleID, Reason: "empty condition"}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var cond Condition
	if err := dec.Decode(&cond); err != nil {
		return nil, &ConfigError{RuleID: ruleID, Reason: "invalid condition syntax", Err: err}
	}

	if cond.Direction != nil {
		switch *cond.Direction {
		case model.DirectionDebit, model.DirectionCredit:
		default:
			return nil, &ConfigError{
				RuleID: ruleID,
				Reason: fmt.Sprintf("invalid direction %q", *cond.Direction),
			}
		}
	}

	if cond.AmountMinCents != nil && cond.AmountMaxCents != nil &&
		*cond.AmountMinCents > *cond.AmountMaxCents {
		return nil, &ConfigError{RuleID: ruleID, Reason: "amount_min_cents exceeds amount_max_cents"}
	}

	if cond.DescriptorRegex != "" {
		re, err := regexp.Compile("(?i)" + cond.DescriptorRegex)
		if err != nil {
			return nil, &ConfigError{RuleID: ruleID, Reason: "invalid regex pattern", Err: err}
		}
		cond.regex = re
	}

	return &cond, nil
}

// Matches evaluates the condition against a transaction. Pure; no side
// effects.
func (c *Condition) Matches(txn model.Transaction) bool {
	if len(c.MCC) > 0 {
		if txn.MCC == "" || !containsString(c.MCC, txn.MCC) {
			return false
		}
	}

	if c.DescriptorContains != "" {
		if !strings.Contains(strings.ToLower(txn.RawDescriptor), strings.ToLower(c.DescriptorContains)) {
			return false
		}
	}

	if c.regex != nil && !c.regex.MatchString(txn.RawDescriptor) {
		return false
	}

	if c.AmountMinCents != nil && txn.AmountCents < *c.AmountMinCents {
		return false
	}
	if c.AmountMaxCents != nil && txn.AmountCents > *c.AmountMaxCents {
		return false
	}

	if c.Account != "" && txn.SourceAccount != c.Account {
		return false
	}

	if c.Direction != nil && txn.Direction != *c.Direction {
		return false
	}

	return true
}

func containsString(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}
