package category

import (
	"fmt"

	"github.com/reelhouse/reelhouse-server/internal/domain"
	"github.com/reelhouse/reelhouse-server/internal/genre"
)

func genreCategory(tag domain.GenreTag, title string) domain.CategoryDefinition {
	return domain.CategoryDefinition{
		ID:    "genre-" + string(tag),
		Title: title,
		Kind:  domain.CategoryKindGenre,
		Predicate: func(item domain.CatalogItem) bool {
			return item.HasGenre(tag)
		},
	}
}

func baseCategories() []domain.CategoryDefinition {
	return []domain.CategoryDefinition{
		genreCategory(genre.Action, "Action Movies"),
		genreCategory(genre.Comedy, "Comedy Movies"),
		genreCategory(genre.Drama, "Drama Movies"),
		genreCategory(genre.Horror, "Horror Movies"),
		genreCategory(genre.Romance, "Romance Movies"),
		genreCategory(genre.SciFi, "Sci-Fi Movies"),
		genreCategory(genre.Thriller, "Thrillers"),
		genreCategory(genre.Animation, "Animated Movies"),
	}
}

func comboCategory(id, title string, tags ...domain.GenreTag) domain.CategoryDefinition {
	return domain.CategoryDefinition{
		ID:    "combo-" + id,
		Title: title,
		Kind:  domain.CategoryKindCombo,
		Predicate: func(item domain.CatalogItem) bool {
			return item.Genres.HasAll(tags...)
		},
	}
}

func comboCategories() []domain.CategoryDefinition {
	return []domain.CategoryDefinition{
		comboCategory("action-comedy", "Action Comedies", genre.Action, genre.Comedy),
		comboCategory("romantic-comedy", "Romantic Comedies", genre.Romance, genre.Comedy),
		comboCategory("sci-fi-action", "Sci-Fi Action", genre.SciFi, genre.Action),
		comboCategory("horror-thriller", "Horror Thrillers", genre.Horror, genre.Thriller),
		comboCategory("romantic-drama", "Romantic Dramas", genre.Drama, genre.Romance),
		comboCategory("animated-comedy", "Animated Comedies", genre.Animation, genre.Comedy),
		{
			ID:    "combo-critically-acclaimed",
			Title: "Critically Acclaimed",
			Kind:  domain.CategoryKindCombo,
			Predicate: func(item domain.CatalogItem) bool {
				return item.RatingOr(0) >= 8
			},
		},
		{
			ID:    "combo-hidden-gems",
			Title: "Hidden Gems",
			Kind:  domain.CategoryKindCombo,
			Predicate: func(item domain.CatalogItem) bool {
				r := item.RatingOr(0)
				return r >= 6.5 && r <= 7.5
			},
		},
		{
			ID:    "combo-recent-releases",
			Title: "Recent Releases",
			Kind:  domain.CategoryKindCombo,
			Predicate: func(item domain.CatalogItem) bool {
				return item.Year >= 2020
			},
		},
		{
			ID:    "combo-classic-cinema",
			Title: "Classic Cinema",
			Kind:  domain.CategoryKindCombo,
			Predicate: func(item domain.CatalogItem) bool {
				return item.HasYear() && item.Year < 1980
			},
		},
	}
}

// decadeStarts are the buckets in walk order, oldest first.
var decadeStarts = []int{1960, 1970, 1980, 1990, 2000, 2010, 2020}

func decadeCategories() []domain.CategoryDefinition {
	defs := make([]domain.CategoryDefinition, 0, len(decadeStarts))
	for _, start := range decadeStarts {
		from, to := start, start+10
		defs = append(defs, domain.CategoryDefinition{
			ID:    fmt.Sprintf("decade-%ds", start),
			Title: fmt.Sprintf("Best of the %ds", start),
			Kind:  domain.CategoryKindDecade,
			Predicate: func(item domain.CatalogItem) bool {
				return item.Year >= from && item.Year < to
			},
		})
	}
	return defs
}
