package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/siftd/sift/internal/model"
)

// ErrFormat indicates the service returned output that is not the required
// strict JSON, or a category outside the fixed taxonomy, after all retry
// attempts.
var ErrFormat = errors.New("malformed AI response")

// parseClassification parses one raw response as strict JSON and validates
// it against the taxonomy. No repair heuristics: anything that is not
// exactly the contract shape fails, and the caller issues a fresh call.
// Out-of-range confidence is the one exception, clamped rather than
// rejected.
func parseClassification(raw string) (Classification, error) {
	var result Classification

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&result); err != nil {
		return Classification{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	if result.Category == "" {
		return Classification{}, fmt.Errorf("%w: missing category", ErrFormat)
	}
	if !model.ValidCategory(result.Category) {
		return Classification{}, fmt.Errorf("%w: category %q not in taxonomy", ErrFormat, result.Category)
	}

	result.Confidence = clampConfidence(result.Confidence)

	return result, nil
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
