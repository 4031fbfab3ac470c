package model

// Vendor represents a canonical vendor with its known descriptor aliases
// and an optional default categorization.
type Vendor struct {
	CanonicalName      string
	DefaultCategory    string
	DefaultSubcategory string
	Aliases            []string
}
