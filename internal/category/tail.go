package category

import (
	"fmt"
	"strings"

	"github.com/reelhouse/reelhouse-server/internal/domain"
	"github.com/reelhouse/reelhouse-server/internal/genre"
)

// Seed parameters for the tail generator.
const (
	seedMultiplier = 31
	seedOffset     = 7
	seedModulus    = 997
)

// Seed is the index-derived generator behind the procedural tail.
// It is plain modular arithmetic so every derived predicate can be audited.
func Seed(i int) int {
	return (i*seedMultiplier + seedOffset) % seedModulus
}

var regions = []string{
	"Korean", "French", "Japanese", "Indian", "British",
	"Italian", "Spanish", "Nordic", "Latin American", "German",
}

var moods = []struct {
	name string
	tags []domain.GenreTag
}{
	{"Feel-Good", []domain.GenreTag{genre.Comedy, genre.Family, genre.Animation}},
	{"Mind-Bending", []domain.GenreTag{genre.SciFi, genre.Mystery}},
	{"Edge of Your Seat", []domain.GenreTag{genre.Thriller, genre.Action}},
	{"Heartwarming", []domain.GenreTag{genre.Romance, genre.Family}},
	{"Dark and Gritty", []domain.GenreTag{genre.Crime, genre.Horror}},
	{"Cozy Night In", []domain.GenreTag{genre.Romance, genre.Comedy}},
	{"Adrenaline Rush", []domain.GenreTag{genre.Action, genre.Adventure}},
	{"Tearjerker", []domain.GenreTag{genre.Drama, genre.Romance}},
}

var creators = []string{
	"Visionary Directors", "Indie Auteurs", "Studio Legends",
	"Breakout Filmmakers", "Cult Icons", "Festival Favorites",
}

// tailGenres is the pool the generator draws genre affinities from.
var tailGenres = []domain.GenreTag{
	genre.Action, genre.Comedy, genre.Drama, genre.Horror, genre.Romance,
	genre.SciFi, genre.Thriller, genre.Animation, genre.Adventure, genre.Crime,
	genre.Fantasy, genre.Mystery, genre.Family, genre.Documentary,
}

// Tail generates the procedural categories for indices [0, count).
// For each index a region is emitted when i%6 == 0, then a mood when
// i%5 == 0, then a creator showcase when i%7 == 0.
func Tail(count int) []domain.CategoryDefinition {
	var defs []domain.CategoryDefinition
	for i := range count {
		if i%6 == 0 {
			defs = append(defs, regionCategory(i))
		}
		if i%5 == 0 {
			defs = append(defs, moodCategory(i))
		}
		if i%7 == 0 {
			defs = append(defs, creatorCategory(i))
		}
	}
	return defs
}

func regionCategory(i int) domain.CategoryDefinition {
	name := regions[i%len(regions)]
	s := Seed(i)
	tag := tailGenres[s%len(tailGenres)]
	residue := s % 3
	return domain.CategoryDefinition{
		ID:    fmt.Sprintf("region-%d-%s", i, genre.Slugify(name)),
		Title: fmt.Sprintf("%s Cinema: %s", name, titleCase(tag)),
		Kind:  domain.CategoryKindRegion,
		Predicate: func(item domain.CatalogItem) bool {
			return item.HasYear() && item.Year%3 == residue && item.HasGenre(tag)
		},
	}
}

func moodCategory(i int) domain.CategoryDefinition {
	mood := moods[i%len(moods)]
	s := Seed(i)
	minRating := float64(5 + s%3)
	tags := mood.tags
	return domain.CategoryDefinition{
		ID:    fmt.Sprintf("mood-%d-%s", i, genre.Slugify(mood.name)),
		Title: fmt.Sprintf("%s Picks", mood.name),
		Kind:  domain.CategoryKindMood,
		Predicate: func(item domain.CatalogItem) bool {
			return item.Genres.HasAny(tags...) && item.RatingOr(0) >= minRating
		},
	}
}

func creatorCategory(i int) domain.CategoryDefinition {
	name := creators[i%len(creators)]
	s := Seed(i)
	from := 1970 + s%50
	to := from + 10
	tag := tailGenres[(s/7)%len(tailGenres)]
	return domain.CategoryDefinition{
		ID:    fmt.Sprintf("creator-%d-%s", i, genre.Slugify(name)),
		Title: fmt.Sprintf("Creator Showcase: %s (%d-%d)", name, from, to-1),
		Kind:  domain.CategoryKindCreator,
		Predicate: func(item domain.CatalogItem) bool {
			return item.Year >= from && item.Year < to && item.HasGenre(tag)
		},
	}
}

func titleCase(tag domain.GenreTag) string {
	s := string(tag)
	if s == "" {
		return s
	}
	if s == string(genre.SciFi) {
		return "Sci-Fi"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
