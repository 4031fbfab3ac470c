package engine

import (
	"context"

	"github.com/siftd/sift/internal/ai"
	"github.com/siftd/sift/internal/model"
)

// Classifier is the AI fallback consulted when no deterministic rule
// matches. Implemented by ai.Fallback; mocked in tests.
type Classifier interface {
	Suggest(ctx context.Context, txn model.Transaction) (ai.Classification, error)
}

// VendorResolver maps raw descriptors to canonical vendor names and
// supplies per-vendor default categorization hints.
type VendorResolver interface {
	Normalize(rawDescriptor string) (canonical string, ok bool)
	DefaultFor(canonical string) (category, subcategory string, ok bool)
}
