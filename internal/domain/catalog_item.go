// Package domain contains the core entities of the Reelhouse dashboard feed.
package domain

import (
	"slices"
	"strings"
)

// GenreTag is a normalized genre key, e.g. "action" or "sci-fi".
type GenreTag string

// GenreSet is the set of genre tags carried by a catalog item.
// It is computed once when an item is ingested and never mutated afterwards.
type GenreSet map[GenreTag]struct{}

// NewGenreSet builds a set from the given tags, skipping empty ones.
func NewGenreSet(tags ...GenreTag) GenreSet {
	set := make(GenreSet, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}

// Has reports whether the set contains tag.
func (s GenreSet) Has(tag GenreTag) bool {
	_, ok := s[tag]
	return ok
}

// HasAll reports whether the set contains every tag.
func (s GenreSet) HasAll(tags ...GenreTag) bool {
	for _, t := range tags {
		if !s.Has(t) {
			return false
		}
	}
	return true
}

// HasAny reports whether the set contains at least one of tags.
func (s GenreSet) HasAny(tags ...GenreTag) bool {
	for _, t := range tags {
		if s.Has(t) {
			return true
		}
	}
	return false
}

// Sorted returns the tags in lexical order.
func (s GenreSet) Sorted() []GenreTag {
	out := make([]GenreTag, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// CatalogItem is one movie or show record.
// Identity is ItemID; two items with the same title but different ids are distinct.
type CatalogItem struct {
	ItemID string   `json:"item_id"`
	Title  string   `json:"title"`
	Year   int      `json:"year,omitempty"`   // 0 when unknown
	Rating *float64 `json:"rating,omitempty"` // nil when unknown
	Genres GenreSet `json:"-"`
}

// HasYear reports whether the release year is known.
func (c CatalogItem) HasYear() bool {
	return c.Year > 0
}

// RatingOr returns the rating, or fallback when unknown.
func (c CatalogItem) RatingOr(fallback float64) float64 {
	if c.Rating == nil {
		return fallback
	}
	return *c.Rating
}

// HasGenre reports whether the item is tagged with genre.
func (c CatalogItem) HasGenre(tag GenreTag) bool {
	return c.Genres.Has(tag)
}

// GenreList returns the item's genres sorted, for display and JSON output.
func (c CatalogItem) GenreList() []string {
	tags := c.Genres.Sorted()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

// SameTitle compares titles case-insensitively, ignoring surrounding spaces.
func (c CatalogItem) SameTitle(title string) bool {
	return strings.EqualFold(strings.TrimSpace(c.Title), strings.TrimSpace(title))
}
