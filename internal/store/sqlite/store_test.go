package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelhouse/reelhouse-server/internal/domain"
	"github.com/reelhouse/reelhouse-server/internal/feed"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache", "test.db")
	s, err := Open(dbPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func rating(v float64) *float64 { return &v }

func samplePage() *feed.CatalogPage {
	return &feed.CatalogPage{
		Items: []domain.CatalogItem{
			{ItemID: "m1", Title: "Heat", Year: 1995, Rating: rating(8.3),
				Genres: domain.NewGenreSet("action", "crime")},
			{ItemID: "m2", Title: "Amelie", Genres: domain.NewGenreSet("romance")},
		},
		TotalCount: 40,
	}
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='catalog_pages'").Scan(&name)
	require.NoError(t, err)
}

func TestOpenClose_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, s.PutPage(context.Background(), 10, 1, samplePage()))
	require.NoError(t, s.Close())

	s2, err := Open(dbPath, nil)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.GetPage(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.Len(t, got.Page.Items, 2)
}

func TestGetPage_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPage(context.Background(), 10, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutPage_RoundTripsGenres(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutPage(ctx, 10, 1, samplePage()))

	got, err := s.GetPage(ctx, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Page.TotalCount)
	require.Len(t, got.Page.Items, 2)

	heat := got.Page.Items[0]
	assert.Equal(t, "m1", heat.ItemID)
	assert.Equal(t, 1995, heat.Year)
	require.NotNil(t, heat.Rating)
	assert.InDelta(t, 8.3, *heat.Rating, 1e-9)
	assert.True(t, heat.Genres.HasAll("action", "crime"))

	amelie := got.Page.Items[1]
	assert.Nil(t, amelie.Rating)
	assert.False(t, amelie.HasYear())
	assert.True(t, amelie.HasGenre("romance"))
}

func TestPutPage_Replaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutPage(ctx, 10, 1, samplePage()))
	require.NoError(t, s.PutPage(ctx, 10, 1, &feed.CatalogPage{
		Items:      []domain.CatalogItem{{ItemID: "m9"}},
		TotalCount: 41,
	}))

	got, err := s.GetPage(ctx, 10, 1)
	require.NoError(t, err)
	require.Len(t, got.Page.Items, 1)
	assert.Equal(t, "m9", got.Page.Items[0].ItemID)
	assert.Equal(t, 41, got.Page.TotalCount)
}

func TestPutPage_KeyedBySizeAndNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutPage(ctx, 10, 1, samplePage()))

	_, err := s.GetPage(ctx, 20, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetPage(ctx, 10, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurgeAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base }
	require.NoError(t, s.PutPage(ctx, 10, 1, samplePage()))
	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	require.NoError(t, s.PutPage(ctx, 10, 2, &feed.CatalogPage{
		Items: []domain.CatalogItem{{ItemID: "m3"}},
	}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pages)
	assert.Equal(t, 3, stats.Items)
	assert.True(t, stats.Oldest.Equal(base))
	assert.True(t, stats.Newest.Equal(base.Add(2*time.Hour)))

	n, err := s.Purge(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetPage(ctx, 10, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetPage(ctx, 10, 2)
	assert.NoError(t, err)
}

func TestPurge_SubSecondTimestamps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// A whole-second stamp must still sort before a fractional one.
	s.now = func() time.Time { return base }
	require.NoError(t, s.PutPage(ctx, 10, 1, samplePage()))
	s.now = func() time.Time { return base.Add(500 * time.Millisecond) }
	require.NoError(t, s.PutPage(ctx, 10, 2, samplePage()))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Oldest.Equal(base), stats.Oldest)
	assert.True(t, stats.Newest.Equal(base.Add(500*time.Millisecond)), stats.Newest)

	n, err := s.Purge(ctx, base.Add(250*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetPage(ctx, 10, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetPage(ctx, 10, 2)
	assert.NoError(t, err)
}

func TestStats_Empty(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Pages)
	assert.Zero(t, stats.Items)
	assert.True(t, stats.Oldest.IsZero())
}
