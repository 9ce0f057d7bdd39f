package core

// Category classifies an expense. The taxonomy is fixed; identifiers are
// lowercase ASCII and double as storage values.
type Category string

const (
	CategoryEssential    Category = "imprescindible"
	CategoryLeisure      Category = "oci"
	CategorySubscription Category = "subscripcio"
	CategoryMicroSavings Category = "microestalvi"

	// CategorySavings is synthetic: it never appears on stored expenses,
	// only as the computed savings bucket in month summaries.
	CategorySavings Category = "estalvi"
)

// CategoryInfo carries the display attributes of a category.
type CategoryInfo struct {
	ID    Category
	Label string
	Color string
}

var categoryOrder = []CategoryInfo{
	{ID: CategoryEssential, Label: "Imprescindible", Color: "#ed4747"},
	{ID: CategoryLeisure, Label: "Oci", Color: "#47e7ed"},
	{ID: CategorySubscription, Label: "Subscripcio", Color: "#9b3fd4"},
	{ID: CategoryMicroSavings, Label: "Micro estalvi", Color: "#2b288f"},
}

var savingsInfo = CategoryInfo{ID: CategorySavings, Label: "Estalvi", Color: "#47ed60"}

// Categories returns the assignable categories in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// SummaryCategories returns the assignable categories plus the synthetic
// savings bucket, in the order summaries present them.
func SummaryCategories() []CategoryInfo {
	return append(Categories(), savingsInfo)
}

// Valid reports whether c is an assignable expense category. The synthetic
// savings bucket is not assignable.
func (c Category) Valid() bool {
	for _, info := range categoryOrder {
		if info.ID == c {
			return true
		}
	}
	return false
}

// Info returns the display attributes for c, falling back to a bare entry
// for unknown values so templates never render empty labels.
func (c Category) Info() CategoryInfo {
	if c == CategorySavings {
		return savingsInfo
	}
	for _, info := range categoryOrder {
		if info.ID == c {
			return info
		}
	}
	return CategoryInfo{ID: c, Label: string(c), Color: "#888888"}
}

func (c Category) String() string { return string(c) }
