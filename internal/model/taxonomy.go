package model

// Taxonomy is the closed set of category labels the categorizer may assign.
// The AI fallback is constrained to this list; anything else it returns is
// treated as malformed output.
var Taxonomy = []string{
	"Groceries",
	"Dining",
	"Transport",
	"Fuel",
	"Utilities",
	"Rent/Mortgage",
	"Internet",
	"Mobile",
	"Subscriptions",
	"Shopping",
	"Healthcare",
	"Pets",
	"Gifts/Charity",
	"Entertainment",
	"Travel-Air",
	"Travel-Hotel",
	"Travel-Other",
	"Income",
	"Transfers",
	"Savings",
}

// ValidCategory reports whether name is a member of the fixed taxonomy.
func ValidCategory(name string) bool {
	for _, c := range Taxonomy {
		if c == name {
			return true
		}
	}
	return false
}
