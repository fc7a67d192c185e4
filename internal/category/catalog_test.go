package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelhouse/reelhouse-server/internal/domain"
	"github.com/reelhouse/reelhouse-server/internal/genre"
)

func TestDefault_Size(t *testing.T) {
	c := Default()
	// 8 base + 10 combos + 7 decades + 85 generated.
	assert.Equal(t, 110, c.Len())
}

func TestDefault_Deterministic(t *testing.T) {
	a := Default()
	b := Default()
	require.Equal(t, a.IDs(), b.IDs())

	probe := domain.CatalogItem{
		ItemID: "m1",
		Title:  "Probe",
		Year:   1994,
		Rating: ptr(7.1),
		Genres: domain.NewGenreSet(genre.Action, genre.Thriller, genre.Crime),
	}
	for i := range a.Len() {
		assert.Equal(t, a.At(i).Matches(probe), b.At(i).Matches(probe), "definition %s", a.At(i).ID)
	}
}

func TestDefault_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for _, id := range Default().IDs() {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestDefault_GroupOrder(t *testing.T) {
	ids := Default().IDs()
	assert.Equal(t, "genre-action", ids[0])
	assert.Equal(t, "genre-animation", ids[7])
	assert.Equal(t, "combo-action-comedy", ids[8])
	assert.Equal(t, "combo-classic-cinema", ids[17])
	assert.Equal(t, "decade-1960s", ids[18])
	assert.Equal(t, "decade-2020s", ids[24])
	assert.Equal(t, "region-0-korean", ids[25])
}

func TestTail_ModularOrdering(t *testing.T) {
	defs := Tail(8)
	ids := make([]string, len(defs))
	for i, d := range defs {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{
		"region-0-korean",
		"mood-0-feel-good",
		"creator-0-visionary-directors",
		"mood-5-cozy-night-in",
		"region-6-spanish",
		"creator-7-indie-auteurs",
	}, ids)
}

func TestTail_CountsPerRule(t *testing.T) {
	counts := map[domain.CategoryKind]int{}
	for _, d := range Tail(DefaultTailCount) {
		counts[d.Kind]++
	}
	assert.Equal(t, 28, counts[domain.CategoryKindRegion])
	assert.Equal(t, 33, counts[domain.CategoryKindMood])
	assert.Equal(t, 24, counts[domain.CategoryKindCreator])
}

func TestSeed(t *testing.T) {
	assert.Equal(t, 7, Seed(0))
	assert.Equal(t, 38, Seed(1))
	assert.Equal(t, (100*31+7)%997, Seed(100))
}

func TestRegionPredicate(t *testing.T) {
	// Seed(0)=7: genre pool index 7 (animation), year residue 1.
	def := regionCategory(0)
	assert.Equal(t, "Korean Cinema: Animation", def.Title)

	match := domain.CatalogItem{ItemID: "a", Year: 2002, Genres: domain.NewGenreSet(genre.Animation)}
	wrongYear := domain.CatalogItem{ItemID: "b", Year: 2001, Genres: domain.NewGenreSet(genre.Animation)}
	noYear := domain.CatalogItem{ItemID: "c", Genres: domain.NewGenreSet(genre.Animation)}

	assert.True(t, def.Matches(match))
	assert.False(t, def.Matches(wrongYear))
	assert.False(t, def.Matches(noYear))
}

func TestBasePredicates(t *testing.T) {
	c := Default()
	action, ok := c.Lookup("genre-action")
	require.True(t, ok)
	assert.True(t, action.Matches(domain.CatalogItem{Genres: domain.NewGenreSet(genre.Action)}))
	assert.False(t, action.Matches(domain.CatalogItem{Genres: domain.NewGenreSet(genre.Drama)}))

	acclaimed, ok := c.Lookup("combo-critically-acclaimed")
	require.True(t, ok)
	assert.True(t, acclaimed.Matches(domain.CatalogItem{Rating: ptr(8.2)}))
	assert.False(t, acclaimed.Matches(domain.CatalogItem{}))

	nineties, ok := c.Lookup("decade-1990s")
	require.True(t, ok)
	assert.True(t, nineties.Matches(domain.CatalogItem{Year: 1999}))
	assert.False(t, nineties.Matches(domain.CatalogItem{Year: 2000}))

	_, ok = c.Lookup("genre-missing")
	assert.False(t, ok)
}

func TestFromDefinitions_DuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		FromDefinitions([]domain.CategoryDefinition{{ID: "x"}, {ID: "x"}})
	})
}

func ptr(f float64) *float64 { return &f }
