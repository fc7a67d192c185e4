package feed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelhouse/reelhouse-server/internal/category"
	"github.com/reelhouse/reelhouse-server/internal/domain"
	"github.com/reelhouse/reelhouse-server/internal/genre"
)

func TestInitialize_FirstPassThenRelaxed(t *testing.T) {
	// 5 items pass A, 3 pass B, 4 pass nothing.
	provider := &pagedProvider{items: concat(items("a", 5), items("b", 3), items("z", 4))}
	e := newTestEngine(t, tagCatalog("a", "b", "c", "d"), provider)
	ctx := context.Background()

	require.NoError(t, e.Initialize(ctx))

	rows := e.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "genre-a", rows[0].CategoryID)
	assert.Len(t, rows[0].Items, 5)
	assert.False(t, rows[0].HasMore)
	assert.Equal(t, StatePopulated, e.State())

	res, err := e.LoadMoreCategories(ctx)
	require.NoError(t, err)
	require.True(t, res.Added())
	assert.Equal(t, "genre-b", res.Row.CategoryID)
	assert.Len(t, res.Row.Items, 3)
	assert.False(t, res.Forced)
	assert.False(t, res.Backfilled)

	assert.Equal(t, []string{"genre-a", "genre-b"}, e.VisibleCategoryIDs())
	assertInvariants(t, e)
}

func TestInitialize_EmptySourceCanRetry(t *testing.T) {
	provider := &pagedProvider{}
	e := newTestEngine(t, tagCatalog("a", "b"), provider)
	ctx := context.Background()

	require.NoError(t, e.Initialize(ctx))
	assert.Empty(t, e.Rows())
	assert.Equal(t, StateInitializing, e.State())
	assert.Equal(t, 0, e.Tracker().Len())

	provider.set(items("a", 6))
	require.NoError(t, e.Initialize(ctx))

	rows := e.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "genre-a", rows[0].CategoryID)
	assert.Len(t, rows[0].Items, 6)
	assert.Equal(t, StatePopulated, e.State())
}

func TestLoadMoreCategories_RecoversFromEmptyFirstPage(t *testing.T) {
	provider := &pagedProvider{}
	e := newTestEngine(t, tagCatalog("a", "b"), provider)
	ctx := context.Background()

	require.NoError(t, e.Initialize(ctx))
	require.Empty(t, e.Rows())
	assert.True(t, e.Source().HasMorePages())

	provider.set(items("a", 6))
	res, err := e.LoadMoreCategories(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, provider.callCount())
	require.True(t, res.Added())
	assert.True(t, res.Backfilled)
	assert.False(t, res.Forced)
	assert.Equal(t, "genre-a", res.Row.CategoryID)
	assert.Len(t, res.Row.Items, 6)
	assert.Equal(t, StatePopulated, e.State())
	assertInvariants(t, e)
}

func TestInitialize_FetchFailureIsNotAnError(t *testing.T) {
	provider := &pagedProvider{err: errors.New("connection refused")}
	e := newTestEngine(t, tagCatalog("a"), provider)

	require.NoError(t, e.Initialize(context.Background()))
	assert.Empty(t, e.Rows())
	assert.Equal(t, StateInitializing, e.State())
}

func TestInitialize_CapAndHasMore(t *testing.T) {
	tags := []string{"a", "b", "c", "d", "e", "f", "g"}
	var all []domain.CatalogItem
	for _, tag := range tags {
		all = append(all, items(tag, 12)...)
	}
	e := newTestEngine(t, tagCatalog(tags...), &pagedProvider{items: all})

	require.NoError(t, e.Initialize(context.Background()))

	rows := e.Rows()
	require.Len(t, rows, 5)
	for i, row := range rows {
		assert.Equal(t, "genre-"+tags[i], row.CategoryID)
		assert.Len(t, row.Items, 10)
		assert.True(t, row.HasMore)
		// Items are assigned in arrival order.
		assert.Equal(t, tags[i]+"-0", row.Items[0].ItemID)
		assert.Equal(t, tags[i]+"-9", row.Items[9].ItemID)
	}
	assert.Equal(t, 50, e.Tracker().Len())
}

func TestInitialize_SecondCallIsNoop(t *testing.T) {
	provider := &pagedProvider{items: items("a", 8)}
	e := newTestEngine(t, tagCatalog("a"), provider)
	ctx := context.Background()

	require.NoError(t, e.Initialize(ctx))
	before := e.Rows()
	require.NoError(t, e.Initialize(ctx))

	assert.Equal(t, before, e.Rows())
	assert.Equal(t, 1, provider.callCount())
}

func TestLoadMore_RelaxedThresholdSkipsScarceCategory(t *testing.T) {
	provider := &pagedProvider{items: concat(items("a", 5), items("b", 2), items("c", 3))}
	e := newTestEngine(t, tagCatalog("a", "b", "c"), provider)
	ctx := context.Background()
	require.NoError(t, e.Initialize(ctx))

	res, err := e.LoadMoreCategories(ctx)
	require.NoError(t, err)
	require.True(t, res.Added())
	assert.Equal(t, "genre-c", res.Row.CategoryID)
	assert.False(t, res.Forced)
	// The provider reported a total equal to what is held, so no backfill.
	assert.Equal(t, 1, provider.callCount())
}

func TestLoadMore_FallsBackToForceAdd(t *testing.T) {
	provider := &pagedProvider{items: concat(items("a", 5), items("b", 2))}
	e := newTestEngine(t, tagCatalog("a", "b"), provider)
	ctx := context.Background()
	require.NoError(t, e.Initialize(ctx))

	res, err := e.LoadMoreCategories(ctx)
	require.NoError(t, err)
	require.True(t, res.Added())
	assert.True(t, res.Forced)
	assert.Equal(t, "genre-b", res.Row.CategoryID)
	assert.Len(t, res.Row.Items, 2)
	assert.False(t, res.Row.HasMore)
	assert.True(t, res.Row.Forced)

	// Nothing left: the engine goes quiet.
	res, err = e.LoadMoreCategories(ctx)
	require.NoError(t, err)
	assert.False(t, res.Added())
	assert.True(t, res.Exhausted)
	assert.Equal(t, StateExhausted, e.State())
	assert.Len(t, e.Rows(), 2)
	assertInvariants(t, e)
}

func TestLoadMore_ForceRevisitsScannedCategories(t *testing.T) {
	// b and c are both too scarce for the relaxed pass, which walks past
	// them to the end of the catalog.
	provider := &pagedProvider{items: concat(items("a", 5), items("b", 1), items("c", 2))}
	e := newTestEngine(t, tagCatalog("a", "b", "c"), provider)
	ctx := context.Background()
	require.NoError(t, e.Initialize(ctx))

	res, err := e.LoadMoreCategories(ctx)
	require.NoError(t, err)
	require.True(t, res.Added())
	assert.True(t, res.Forced)
	assert.Equal(t, "genre-b", res.Row.CategoryID)

	res, err = e.ForceAddCategory(ctx)
	require.NoError(t, err)
	require.True(t, res.Added())
	assert.Equal(t, "genre-c", res.Row.CategoryID)
	assert.Equal(t, []string{"genre-a", "genre-b", "genre-c"}, e.VisibleCategoryIDs())
	assertInvariants(t, e)
}

func TestForceAddCategory_AcceptsSingleItem(t *testing.T) {
	provider := &pagedProvider{items: concat(items("a", 4), items("b", 1))}
	e := newTestEngine(t, tagCatalog("a", "b"), provider)
	ctx := context.Background()
	require.NoError(t, e.Initialize(ctx))

	res, err := e.ForceAddCategory(ctx)
	require.NoError(t, err)
	require.True(t, res.Added())
	assert.Equal(t, "genre-b", res.Row.CategoryID)
	assert.Len(t, res.Row.Items, 1)

	res, err = e.ForceAddCategory(ctx)
	require.NoError(t, err)
	assert.False(t, res.Added())
	assert.True(t, res.Exhausted)
}

func TestLoadMore_BackfillsWhenSupplyIsLow(t *testing.T) {
	provider := &pagedProvider{items: concat(items("a", 4), items("b", 3))}
	opts := DefaultOptions()
	opts.InitialPageSize = 4
	e := NewEngine(tagCatalog("a", "b"), NewSource(provider, testLogger()), NewTracker(), opts, testLogger())
	ctx := context.Background()

	require.NoError(t, e.Initialize(ctx))
	require.Len(t, e.Rows(), 1)
	assert.Equal(t, 4, e.Source().Len())

	res, err := e.LoadMoreCategories(ctx)
	require.NoError(t, err)
	require.True(t, res.Added())
	assert.True(t, res.Backfilled)
	assert.False(t, res.Forced)
	assert.Equal(t, "genre-b", res.Row.CategoryID)
	assert.Len(t, res.Row.Items, 3)
	assert.Equal(t, 2, provider.callCount())
	assert.Equal(t, 2, e.Source().PagesFetched())
	assert.Equal(t, StatePopulated, e.State())
}

func TestLoadMore_FetchErrorMeansNoProgress(t *testing.T) {
	provider := &pagedProvider{items: concat(items("a", 4), items("b", 3))}
	opts := DefaultOptions()
	opts.InitialPageSize = 4
	e := NewEngine(tagCatalog("a", "b"), NewSource(provider, testLogger()), NewTracker(), opts, testLogger())
	ctx := context.Background()
	require.NoError(t, e.Initialize(ctx))

	provider.mu.Lock()
	provider.err = errors.New("503")
	provider.mu.Unlock()

	res, err := e.LoadMoreCategories(ctx)
	require.NoError(t, err)
	assert.False(t, res.Added())
	assert.False(t, res.Exhausted)
	assert.Equal(t, StatePopulated, e.State())
	assert.Equal(t, 4, e.Tracker().Len())

	provider.mu.Lock()
	provider.err = nil
	provider.mu.Unlock()

	res, err = e.LoadMoreCategories(ctx)
	require.NoError(t, err)
	require.True(t, res.Added())
	assert.Equal(t, "genre-b", res.Row.CategoryID)
}

func TestLoadMore_NoBackfillAboveCeiling(t *testing.T) {
	provider := &pagedProvider{items: concat(items("a", 4), items("z", 10), items("b", 3))}
	opts := DefaultOptions()
	opts.InitialPageSize = 14
	opts.BackfillCeiling = 10
	e := NewEngine(tagCatalog("a", "b"), NewSource(provider, testLogger()), NewTracker(), opts, testLogger())
	ctx := context.Background()
	require.NoError(t, e.Initialize(ctx))

	res, err := e.LoadMoreCategories(ctx)
	require.NoError(t, err)
	assert.False(t, res.Backfilled)
	assert.True(t, res.Exhausted)
	assert.Equal(t, 1, provider.callCount())
}

func TestLoadMore_ConcurrentCallIsBusy(t *testing.T) {
	inner := &pagedProvider{items: concat(items("a", 4), items("b", 3))}
	provider := newBlockingProvider(inner, 2)
	opts := DefaultOptions()
	opts.InitialPageSize = 4
	e := NewEngine(tagCatalog("a", "b"), NewSource(provider, testLogger()), NewTracker(), opts, testLogger())
	carousel := NewCarousel(e, DefaultGeometry())
	ctx := context.Background()
	require.NoError(t, e.Initialize(ctx))

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := e.LoadMoreCategories(ctx)
		done <- outcome{res, err}
	}()

	select {
	case <-provider.started:
	case <-time.After(2 * time.Second):
		t.Fatal("backfill fetch never started")
	}

	assert.True(t, e.Busy())
	_, err := e.LoadMoreCategories(ctx)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = e.ForceAddCategory(ctx)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = carousel.LoadMoreForRow(ctx, "genre-a")
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, e.Initialize(ctx), ErrBusy)

	assert.Len(t, e.Rows(), 1)
	assert.Equal(t, 4, e.Tracker().Len())

	close(provider.release)
	out := <-done
	require.NoError(t, out.err)
	require.True(t, out.res.Added())
	assert.Equal(t, "genre-b", out.res.Row.CategoryID)
	assert.False(t, e.Busy())
}

func TestClose_DiscardsLateFetch(t *testing.T) {
	inner := &pagedProvider{items: concat(items("a", 4), items("b", 3))}
	provider := newBlockingProvider(inner, 2)
	opts := DefaultOptions()
	opts.InitialPageSize = 4
	e := NewEngine(tagCatalog("a", "b"), NewSource(provider, testLogger()), NewTracker(), opts, testLogger())
	ctx := context.Background()
	require.NoError(t, e.Initialize(ctx))

	done := make(chan error, 1)
	go func() {
		_, err := e.LoadMoreCategories(ctx)
		done <- err
	}()
	<-provider.started

	e.Close()
	close(provider.release)

	require.ErrorIs(t, <-done, ErrClosed)
	assert.Equal(t, []string{"genre-a"}, e.VisibleCategoryIDs())
	assert.Equal(t, 4, e.Tracker().Len())
	assert.Equal(t, 4, e.Source().Len())
	assert.True(t, e.Closed())

	_, err := e.LoadMoreCategories(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestObserver_ReceivesRowEvents(t *testing.T) {
	provider := &pagedProvider{items: concat(items("a", 12), items("b", 3))}
	e := newTestEngine(t, tagCatalog("a", "b"), provider)
	obs := &recordingObserver{}
	e.SetObserver(obs)
	ctx := context.Background()

	require.NoError(t, e.Initialize(ctx))
	_, err := e.LoadMoreCategories(ctx)
	require.NoError(t, err)
	_, err = NewCarousel(e, DefaultGeometry()).LoadMoreForRow(ctx, "genre-a")
	require.NoError(t, err)

	assert.Equal(t, []string{"genre-a", "genre-b"}, obs.added)
	assert.Equal(t, []string{"genre-a"}, obs.extended)
}

func TestStats(t *testing.T) {
	provider := &pagedProvider{items: concat(items("a", 5), items("b", 3))}
	e := newTestEngine(t, tagCatalog("a", "b", "c"), provider)
	require.NoError(t, e.Initialize(context.Background()))

	s := e.Stats()
	assert.Equal(t, StatePopulated, s.State)
	assert.Equal(t, 1, s.Rows)
	assert.Equal(t, 5, s.Committed)
	assert.Equal(t, 8, s.Fetched)
	assert.Equal(t, 1, s.PagesFetched)
	assert.Equal(t, 3, s.CatalogSize)
	assert.False(t, s.Busy)
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateInitializing, "initializing"},
		{StatePopulated, "populated"},
		{StateExpanding, "expanding"},
		{StateBackfilling, "backfilling"},
		{StateExhausted, "exhausted"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

// catalogItems builds a deterministic mixed catalog for the default categories.
func catalogItems(n int) []domain.CatalogItem {
	tags := []domain.GenreTag{
		genre.Action, genre.Comedy, genre.Drama, genre.Horror, genre.Romance,
		genre.SciFi, genre.Thriller, genre.Animation, genre.Crime, genre.Mystery,
		genre.Fantasy, genre.Adventure, genre.Family, genre.Documentary,
	}
	out := make([]domain.CatalogItem, n)
	for i := range n {
		rating := 5 + float64(i%50)/10
		out[i] = domain.CatalogItem{
			ItemID: fmt.Sprintf("m%03d", i),
			Title:  fmt.Sprintf("Movie %d", i),
			Year:   1960 + (i*7)%65,
			Rating: &rating,
			Genres: domain.NewGenreSet(tags[i%len(tags)], tags[(i*3+1)%len(tags)]),
		}
	}
	return out
}

func TestEngine_DeterministicCategoryOrder(t *testing.T) {
	run := func() []string {
		provider := &pagedProvider{items: catalogItems(250)}
		e := newTestEngine(t, category.Default(), provider)
		ctx := context.Background()
		require.NoError(t, e.Initialize(ctx))
		for range 15 {
			_, err := e.LoadMoreCategories(ctx)
			require.NoError(t, err)
		}
		assertInvariants(t, e)
		return e.VisibleCategoryIDs()
	}

	first := run()
	second := run()
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestEngine_RandomSequencesKeepInvariants(t *testing.T) {
	for seed := range uint64(5) {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(seed, 99))
			provider := &pagedProvider{items: catalogItems(400)}
			opts := DefaultOptions()
			opts.InitialPageSize = 100
			e := NewEngine(category.Default(), NewSource(provider, testLogger()), NewTracker(), opts, testLogger())
			carousel := NewCarousel(e, DefaultGeometry())
			ctx := context.Background()
			require.NoError(t, e.Initialize(ctx))

			committed := e.Tracker().Len()
			for range 60 {
				if rng.IntN(3) == 0 {
					rows := e.VisibleCategoryIDs()
					_, err := carousel.LoadMoreForRow(ctx, rows[rng.IntN(len(rows))])
					require.NoError(t, err)
				} else {
					counts := unassignedCounts(e)
					res, err := e.LoadMoreCategories(ctx)
					require.NoError(t, err)
					if res.Added() && !res.Forced && !res.Backfilled {
						assert.GreaterOrEqual(t, counts[res.Row.CategoryID], opts.RelaxedMinItems)
					}
					if res.Added() && res.Forced {
						assert.GreaterOrEqual(t, len(res.Row.Items), opts.ForceMinItems)
					}
				}
				assertInvariants(t, e)
				now := e.Tracker().Len()
				require.GreaterOrEqual(t, now, committed)
				committed = now
			}
		})
	}
}

func unassignedCounts(e *Engine) map[string]int {
	all := e.Source().AllItems()
	defs := category.Default().Definitions()
	counts := make(map[string]int, len(defs))
	for _, def := range defs {
		counts[def.ID] = len(e.Tracker().Unassigned(all, def.Predicate))
	}
	return counts
}
