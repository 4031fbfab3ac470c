package engine

import "errors"

// Categorization failure modes surfaced to callers. A failed
// categorization never mutates the stored transaction: it stays visibly
// ingested so it can be reprocessed or hand-reviewed.
var (
	// ErrTimeout indicates the overall per-transaction budget was
	// exceeded, retries included.
	ErrTimeout = errors.New("categorization timed out")
	// ErrInvalidCategory indicates a finalize request with a category
	// outside the fixed taxonomy.
	ErrInvalidCategory = errors.New("category not in taxonomy")
)
