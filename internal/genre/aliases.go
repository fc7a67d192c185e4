package genre

import "github.com/reelhouse/reelhouse-server/internal/domain"

// Canonical tags referenced by the category catalog.
const (
	Action      domain.GenreTag = "action"
	Adventure   domain.GenreTag = "adventure"
	Animation   domain.GenreTag = "animation"
	Comedy      domain.GenreTag = "comedy"
	Crime       domain.GenreTag = "crime"
	Documentary domain.GenreTag = "documentary"
	Drama       domain.GenreTag = "drama"
	Family      domain.GenreTag = "family"
	Fantasy     domain.GenreTag = "fantasy"
	History     domain.GenreTag = "history"
	Horror      domain.GenreTag = "horror"
	Music       domain.GenreTag = "music"
	Mystery     domain.GenreTag = "mystery"
	Romance     domain.GenreTag = "romance"
	SciFi       domain.GenreTag = "sci-fi"
	Thriller    domain.GenreTag = "thriller"
	War         domain.GenreTag = "war"
	Western     domain.GenreTag = "western"
)

// aliases maps slug variations found in payloads to canonical tags.
var aliases = map[string]domain.GenreTag{
	"science-fiction": SciFi,
	"scifi":           SciFi,
	"sf":              SciFi,
	"animated":        Animation,
	"anime":           Animation,
	"cartoon":         Animation,
	"comedies":        Comedy,
	"humor":           Comedy,
	"romantic":        Romance,
	"romances":        Romance,
	"suspense":        Thriller,
	"thrillers":       Thriller,
	"scary":           Horror,
	"docs":            Documentary,
	"documentaries":   Documentary,
	"musical":         Music,
	"historical":      History,
	"kids":            Family,
	"children":        Family,
}

// nonGenreKeys lists payload keys that may hold 0/1 values without being genres.
var nonGenreKeys = map[string]bool{
	"id":            true,
	"movie-id":      true,
	"item-id":       true,
	"name":          true,
	"score":         true,
	"release-year":  true,
	"title":         true,
	"year":          true,
	"rating":        true,
	"imdb-rating":   true,
	"votes":         true,
	"budget":        true,
	"length":        true,
	"runtime":       true,
	"mpaa":          true,
	"r":             true,
	"available":     true,
	"is-active":     true,
	"is-featured":   true,
	"featured":      true,
	"subscription":  true,
	"premium":       true,
	"v":             true,
	"created-at":    true,
	"updated-at":    true,
	"poster":        true,
	"image":         true,
	"description":   true,
	"recommended":   true,
	"watched":       true,
	"in-watchlist":  true,
	"adult":         true,
	"has-subtitles": true,
	// camelCase payload keys slugify without separators.
	"movieid":      true,
	"itemid":       true,
	"releaseyear":  true,
	"imdbrating":   true,
	"isactive":     true,
	"isfeatured":   true,
	"createdat":    true,
	"updatedat":    true,
	"inwatchlist":  true,
	"hassubtitles": true,
}

// IsGenreKey reports whether a boolean-valued payload key names a genre.
func IsGenreKey(raw string) bool {
	slug := Slugify(raw)
	return slug != "" && !nonGenreKeys[slug]
}

// FromFlags builds a GenreSet from a map of key -> flag.
// Keys on the non-genre denylist are ignored.
func FromFlags(flags map[string]bool) domain.GenreSet {
	tags := make([]domain.GenreTag, 0, len(flags))
	for key, on := range flags {
		if !on || !IsGenreKey(key) {
			continue
		}
		tags = append(tags, Tag(key))
	}
	return domain.NewGenreSet(tags...)
}

// FromNames builds a GenreSet from a list of genre names.
func FromNames(names []string) domain.GenreSet {
	tags := make([]domain.GenreTag, 0, len(names))
	for _, n := range names {
		tags = append(tags, Tag(n))
	}
	return domain.NewGenreSet(tags...)
}
