package domain

// Predicate decides whether a catalog item belongs to a category.
// Predicates are pure: the same item always yields the same answer.
type Predicate func(CatalogItem) bool

// CategoryKind groups definitions by how they were produced.
type CategoryKind string

const (
	// CategoryKindGenre is a single-genre category.
	CategoryKindGenre CategoryKind = "genre"
	// CategoryKindCombo is a hand-authored combination.
	CategoryKindCombo CategoryKind = "combo"
	// CategoryKindDecade buckets items by release decade.
	CategoryKindDecade CategoryKind = "decade"
	// CategoryKindRegion is a generated region category.
	CategoryKindRegion CategoryKind = "region"
	// CategoryKindMood is a generated mood category.
	CategoryKindMood CategoryKind = "mood"
	// CategoryKindCreator is a generated creator showcase.
	CategoryKindCreator CategoryKind = "creator"
)

// CategoryDefinition is an immutable, titled predicate over catalog items.
type CategoryDefinition struct {
	ID        string
	Title     string
	Kind      CategoryKind
	Predicate Predicate
}

// Matches applies the predicate; a nil predicate matches nothing.
func (d CategoryDefinition) Matches(item CatalogItem) bool {
	if d.Predicate == nil {
		return false
	}
	return d.Predicate(item)
}

// CategoryRow is a revealed category with the items assigned to it.
// Items are append-only and kept in display order.
type CategoryRow struct {
	CategoryID string        `json:"category_id"`
	Title      string        `json:"title"`
	Items      []CatalogItem `json:"items"`
	Page       int           `json:"page"`     // horizontal fetches performed
	HasMore    bool          `json:"has_more"` // more unused items may exist
	Forced     bool          `json:"forced"`   // added by the last-resort pass
}

// Clone returns a deep copy safe to hand to callers.
func (r *CategoryRow) Clone() CategoryRow {
	out := *r
	out.Items = make([]CatalogItem, len(r.Items))
	copy(out.Items, r.Items)
	return out
}

// Contains reports whether the row already holds itemID.
func (r *CategoryRow) Contains(itemID string) bool {
	for i := range r.Items {
		if r.Items[i].ItemID == itemID {
			return true
		}
	}
	return false
}
