package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reelhouse/reelhouse-server/internal/domain"
	"github.com/reelhouse/reelhouse-server/internal/feed"
	"github.com/reelhouse/reelhouse-server/internal/store/sqlite"
)

func testRows() []domain.CategoryRow {
	rating := 8.1
	return []domain.CategoryRow{
		{
			CategoryID: "drama",
			Title:      "Drama",
			Items: []domain.CatalogItem{
				{ItemID: "m1", Title: "Heat", Year: 1995, Rating: &rating},
				{ItemID: "m2", Title: "Ran", Year: 1985},
				{ItemID: "m3", Title: "Alien"},
			},
			HasMore: true,
		},
		{
			CategoryID: "noir",
			Title:      "Noir",
			Items:      []domain.CatalogItem{{ItemID: "m4", Title: "Laura"}},
			Forced:     true,
		},
	}
}

func TestRenderFeed(t *testing.T) {
	out := renderFeed(testRows(), feed.Stats{State: feed.StatePopulated, Rows: 2, Committed: 4, Fetched: 9, PagesFetched: 1}, 0)

	for _, want := range []string{"Drama", "Heat (1995)", "8.1", "Ran (1985)", "Alien", "Noir", "forced", "Laura"} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, out, "2 rows · 4 of 9 items assigned · 1 pages · state populated")
	assert.NotContains(t, out, "more")
}

func TestRenderFeed_Width(t *testing.T) {
	out := renderFeed(testRows(), feed.Stats{}, 2)

	assert.Contains(t, out, "Heat")
	assert.Contains(t, out, "Ran")
	assert.NotContains(t, out, "Alien")
	assert.Contains(t, out, "1 more")
}

func TestRenderCacheStats(t *testing.T) {
	assert.NotContains(t, renderCacheStats(sqlite.Stats{}), "oldest")

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := renderCacheStats(sqlite.Stats{Pages: 3, Items: 600, Oldest: at, Newest: at.Add(time.Hour)})
	assert.Contains(t, out, "600")
	assert.Contains(t, out, "2026-03-01 12:00:00")
	assert.Contains(t, out, "2026-03-01 13:00:00")
}
