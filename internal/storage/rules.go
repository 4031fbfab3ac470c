package storage

import (
	"context"
	"fmt"

	"github.com/siftd/sift/internal/model"
)

// GetActiveRules retrieves all active rules in evaluation order:
// ascending priority, with the rule id breaking ties.
func (s *SQLiteStorage) GetActiveRules(ctx context.Context) ([]model.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, priority, active, condition_json, action_category,
			action_subcategory, created_at
		FROM rules WHERE active = 1
		ORDER BY priority, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	for rows.Next() {
		var rule model.Rule
		var condition string
		err := rows.Scan(&rule.ID, &rule.Priority, &rule.Active, &condition,
			&rule.Action.Category, &rule.Action.Subcategory, &rule.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rule.Condition = []byte(condition)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}

// SaveRule inserts a new rule or updates an existing one. New rules get
// their assigned id written back.
func (s *SQLiteStorage) SaveRule(ctx context.Context, rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if rule.Action.Category == "" {
		return fmt.Errorf("rule action category cannot be empty")
	}

	if rule.ID > 0 {
		_, err := s.db.ExecContext(ctx, `
			UPDATE rules SET priority = ?, active = ?, condition_json = ?,
				action_category = ?, action_subcategory = ?
			WHERE id = ?`,
			rule.Priority, rule.Active, string(rule.Condition),
			rule.Action.Category, rule.Action.Subcategory, rule.ID)
		if err != nil {
			return fmt.Errorf("failed to update rule %d: %w", rule.ID, err)
		}
		return nil
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (priority, active, condition_json, action_category, action_subcategory)
		VALUES (?, ?, ?, ?, ?)`,
		rule.Priority, rule.Active, string(rule.Condition),
		rule.Action.Category, rule.Action.Subcategory)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule id: %w", err)
	}
	rule.ID = id
	return nil
}
