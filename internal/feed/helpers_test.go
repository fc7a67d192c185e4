package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reelhouse/reelhouse-server/internal/category"
	"github.com/reelhouse/reelhouse-server/internal/domain"
)

// pagedProvider serves a fixed item list in pages.
type pagedProvider struct {
	mu    sync.Mutex
	items []domain.CatalogItem
	err   error
	calls int
}

func (p *pagedProvider) FetchCatalogPage(_ context.Context, pageSize, pageNumber int) (*CatalogPage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	start := (pageNumber - 1) * pageSize
	if start >= len(p.items) {
		return &CatalogPage{TotalCount: len(p.items)}, nil
	}
	end := min(start+pageSize, len(p.items))
	items := make([]domain.CatalogItem, end-start)
	copy(items, p.items[start:end])
	return &CatalogPage{Items: items, TotalCount: len(p.items)}, nil
}

func (p *pagedProvider) set(items []domain.CatalogItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = items
}

func (p *pagedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// blockingProvider holds fetches for page `from` and later until release
// is closed. Earlier pages pass straight through.
type blockingProvider struct {
	inner   CatalogProvider
	from    int
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingProvider(inner CatalogProvider, from int) *blockingProvider {
	return &blockingProvider{
		inner:   inner,
		from:    from,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (p *blockingProvider) FetchCatalogPage(ctx context.Context, pageSize, pageNumber int) (*CatalogPage, error) {
	if pageNumber >= p.from {
		p.once.Do(func() { close(p.started) })
		<-p.release
	}
	return p.inner.FetchCatalogPage(ctx, pageSize, pageNumber)
}

// recordingObserver collects row notifications.
type recordingObserver struct {
	mu       sync.Mutex
	added    []string
	extended []string
}

func (o *recordingObserver) RowAdded(row domain.CategoryRow) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.added = append(o.added, row.CategoryID)
}

func (o *recordingObserver) RowExtended(row domain.CategoryRow, _ []domain.CatalogItem) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extended = append(o.extended, row.CategoryID)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tagDef(tag string) domain.CategoryDefinition {
	t := domain.GenreTag(tag)
	return domain.CategoryDefinition{
		ID:        "genre-" + tag,
		Title:     tag,
		Kind:      domain.CategoryKindGenre,
		Predicate: func(item domain.CatalogItem) bool { return item.HasGenre(t) },
	}
}

func tagCatalog(tags ...string) *category.Catalog {
	defs := make([]domain.CategoryDefinition, len(tags))
	for i, tag := range tags {
		defs[i] = tagDef(tag)
	}
	return category.FromDefinitions(defs)
}

// items builds n items tagged with tag, ids prefixed by tag.
func items(tag string, n int) []domain.CatalogItem {
	out := make([]domain.CatalogItem, n)
	for i := range n {
		out[i] = domain.CatalogItem{
			ItemID: fmt.Sprintf("%s-%d", tag, i),
			Title:  fmt.Sprintf("%s movie %d", tag, i),
			Year:   2000 + i,
			Genres: domain.NewGenreSet(domain.GenreTag(tag)),
		}
	}
	return out
}

func concat(groups ...[]domain.CatalogItem) []domain.CatalogItem {
	var out []domain.CatalogItem
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func newTestEngine(t *testing.T, catalog Catalog, provider CatalogProvider) *Engine {
	t.Helper()
	return NewEngine(catalog, NewSource(provider, testLogger()), NewTracker(), DefaultOptions(), testLogger())
}

// assertInvariants checks that no item and no category appears twice across
// rows, and that every row item is committed.
func assertInvariants(t *testing.T, e *Engine) {
	t.Helper()
	seenItems := map[string]string{}
	seenRows := map[string]bool{}
	for _, row := range e.Rows() {
		require.False(t, seenRows[row.CategoryID], "category %s visible twice", row.CategoryID)
		seenRows[row.CategoryID] = true
		for _, item := range row.Items {
			prev, dup := seenItems[item.ItemID]
			require.False(t, dup, "item %s in %s and %s", item.ItemID, prev, row.CategoryID)
			seenItems[item.ItemID] = row.CategoryID
			require.True(t, e.Tracker().IsCommitted(item.ItemID))
		}
	}
	require.Equal(t, len(seenItems), e.Tracker().Len())
}

func rowIDs(rows []domain.CategoryRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.CategoryID
	}
	return ids
}
