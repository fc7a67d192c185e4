// Package category builds the fixed, ordered list of dashboard categories.
//
// The order is part of the contract: the feed engine walks definitions by
// index, so two catalogs built with the same tail count produce identical
// id sequences and identical predicates.
package category

import (
	"fmt"

	"github.com/reelhouse/reelhouse-server/internal/domain"
)

// DefaultTailCount yields roughly 110 definitions in total.
const DefaultTailCount = 165

// Catalog is a read-only, ordered set of category definitions.
type Catalog struct {
	defs  []domain.CategoryDefinition
	index map[string]int
}

// New builds a catalog from the base, combination and decade groups followed
// by a procedural tail generated for indices [0, tailCount).
// It panics if two definitions share an id; that is a programming error.
func New(tailCount int) *Catalog {
	var defs []domain.CategoryDefinition
	defs = append(defs, baseCategories()...)
	defs = append(defs, comboCategories()...)
	defs = append(defs, decadeCategories()...)
	defs = append(defs, Tail(tailCount)...)
	return FromDefinitions(defs)
}

// Default returns the catalog used in production.
func Default() *Catalog {
	return New(DefaultTailCount)
}

// FromDefinitions wraps an explicit list, mainly for tests that need a tiny
// catalog with hand-picked predicates.
func FromDefinitions(defs []domain.CategoryDefinition) *Catalog {
	c := &Catalog{
		defs:  make([]domain.CategoryDefinition, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	copy(c.defs, defs)
	for i, d := range c.defs {
		if _, dup := c.index[d.ID]; dup {
			panic(fmt.Sprintf("category: duplicate id %q", d.ID))
		}
		c.index[d.ID] = i
	}
	return c
}

// Definitions returns the definitions in walk order.
func (c *Catalog) Definitions() []domain.CategoryDefinition {
	out := make([]domain.CategoryDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// At returns the definition at index i.
func (c *Catalog) At(i int) domain.CategoryDefinition {
	return c.defs[i]
}

// Lookup finds a definition by id.
func (c *Catalog) Lookup(id string) (domain.CategoryDefinition, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.CategoryDefinition{}, false
	}
	return c.defs[i], true
}

// IDs returns the ids in walk order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.defs))
	for i, d := range c.defs {
		ids[i] = d.ID
	}
	return ids
}
