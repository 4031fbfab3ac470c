package model

import (
	"encoding/json"
	"time"
)

// Rule represents a deterministic categorization rule. The condition is
// stored as JSON and decoded by the rules package; rules with a lower
// priority number are evaluated first.
type Rule struct {
	CreatedAt time.Time       `json:"created_at"`
	Condition json.RawMessage `json:"condition"`
	Action    RuleAction      `json:"action"`
	Priority  int             `json:"priority"`
	ID        int64           `json:"id"`
	Active    bool            `json:"active"`
}

// RuleAction is what a matching rule assigns to a transaction.
type RuleAction struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}
