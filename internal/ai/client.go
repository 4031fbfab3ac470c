// Package ai implements the AI fallback categorizer: a chat-completions
// client constrained to the fixed taxonomy, with strict JSON parsing,
// bounded retries and confidence clamping.
package ai

import (
	"context"
)

// Client defines the interface to the language-categorization service.
// Classify returns the raw response text, which callers parse as strict
// JSON.
type Client interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

// Classification is the parsed, validated result of one AI call.
type Classification struct {
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Vendor      string  `json:"vendor"`
	Confidence  float64 `json:"confidence"`
}
