// Package genre normalizes raw genre keys from catalog payloads into typed tags.
package genre

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/reelhouse/reelhouse-server/internal/domain"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	multipleHyphens = regexp.MustCompile(`-+`)
)

// Slugify converts a string to a URL-safe slug.
// "Science Fiction" -> "science-fiction".
// "Film-Noir" -> "film-noir".
// "Comédie" -> "comedie".
func Slugify(s string) string {
	// Decompose accented characters, then drop what is left outside ASCII.
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = multipleHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Tag normalizes a single raw key into its canonical tag.
// Returns "" for empty input.
func Tag(raw string) domain.GenreTag {
	slug := Slugify(raw)
	if slug == "" {
		return ""
	}
	if canonical, ok := aliases[slug]; ok {
		return canonical
	}
	return domain.GenreTag(slug)
}
