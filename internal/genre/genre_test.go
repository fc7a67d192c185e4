package genre

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reelhouse/reelhouse-server/internal/domain"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Science Fiction", "science-fiction"},
		{"Film-Noir", "film-noir"},
		{"  Comédie  ", "comedie"},
		{"Sci-Fi/Fantasy", "sci-fi-fantasy"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestTag_Aliases(t *testing.T) {
	assert.Equal(t, SciFi, Tag("Science Fiction"))
	assert.Equal(t, SciFi, Tag("SciFi"))
	assert.Equal(t, Animation, Tag("Anime"))
	assert.Equal(t, domain.GenreTag("film-noir"), Tag("Film Noir"))
	assert.Equal(t, domain.GenreTag(""), Tag("  "))
}

func TestFromFlags_SkipsDenylistAndFalse(t *testing.T) {
	set := FromFlags(map[string]bool{
		"Action":     true,
		"Comedy":     false,
		"isFeatured": true,
		"premium":    true,
		"Animated":   true,
	})

	assert.Equal(t, []domain.GenreTag{Action, Animation}, set.Sorted())
}

func TestFromNames(t *testing.T) {
	set := FromNames([]string{"Thriller", "suspense", "Drama", ""})
	assert.Equal(t, []domain.GenreTag{Drama, Thriller}, set.Sorted())
}
