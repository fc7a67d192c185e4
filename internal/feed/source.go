package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/reelhouse/reelhouse-server/internal/domain"
)

// CatalogPage is one page returned by the catalog provider.
type CatalogPage struct {
	Items      []domain.CatalogItem
	TotalCount int
}

// CatalogProvider fetches catalog pages from the remote catalog.
// Identical arguments must return the same or a superset-compatible page.
type CatalogProvider interface {
	FetchCatalogPage(ctx context.Context, pageSize, pageNumber int) (*CatalogPage, error)
}

// Source accumulates every catalog item fetched during a session.
// Items are deduplicated by ItemID on arrival and never evicted.
type Source struct {
	provider CatalogProvider
	logger   *slog.Logger

	mu           sync.RWMutex
	items        []domain.CatalogItem
	index        map[string]int
	pagesFetched int
	totalCount   int // last total reported by the provider, -1 when unknown
	drained      bool
}

// NewSource creates a source backed by provider, optionally pre-seeded.
func NewSource(provider CatalogProvider, logger *slog.Logger, initial ...domain.CatalogItem) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Source{
		provider:   provider,
		logger:     logger,
		index:      make(map[string]int, len(initial)),
		totalCount: -1,
	}
	s.merge(initial)
	return s
}

// FetchPage requests a page and merges unseen items into the local set.
// It returns only the items that were new. Provider failures are wrapped in
// ErrSourceUnavailable.
func (s *Source) FetchPage(ctx context.Context, pageSize, pageNumber int) ([]domain.CatalogItem, error) {
	page, err := s.fetch(ctx, pageSize, pageNumber)
	if err != nil {
		return nil, err
	}
	return s.apply(page), nil
}

// FetchNext fetches the page after the ones already held locally.
func (s *Source) FetchNext(ctx context.Context, pageSize int) ([]domain.CatalogItem, error) {
	return s.FetchPage(ctx, pageSize, s.NextPageNumber(pageSize))
}

// fetch calls the provider without touching local state.
func (s *Source) fetch(ctx context.Context, pageSize, pageNumber int) (*CatalogPage, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("%w: no provider configured", ErrSourceUnavailable)
	}
	page, err := s.provider.FetchCatalogPage(ctx, pageSize, pageNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %w", ErrSourceUnavailable, pageNumber, err)
	}
	if page == nil {
		return nil, fmt.Errorf("%w: page %d: empty payload", ErrSourceUnavailable, pageNumber)
	}
	return page, nil
}

// apply merges a fetched page and updates the paging bookkeeping.
func (s *Source) apply(page *CatalogPage) []domain.CatalogItem {
	added := s.merge(page.Items)

	s.mu.Lock()
	s.pagesFetched++
	if page.TotalCount > 0 {
		s.totalCount = page.TotalCount
	}
	// An empty source is never drained, so a catalog that was empty at
	// first can still be fetched later.
	s.drained = len(added) == 0 && len(s.items) > 0
	s.mu.Unlock()

	s.logger.Debug("catalog page merged",
		"received", len(page.Items),
		"added", len(added),
		"total_local", s.Len(),
	)
	return added
}

func (s *Source) merge(items []domain.CatalogItem) []domain.CatalogItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []domain.CatalogItem
	for _, item := range items {
		if item.ItemID == "" {
			continue
		}
		if _, seen := s.index[item.ItemID]; seen {
			continue
		}
		s.index[item.ItemID] = len(s.items)
		s.items = append(s.items, item)
		added = append(added, item)
	}
	return added
}

// AllItems returns a snapshot in arrival order.
func (s *Source) AllItems() []domain.CatalogItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CatalogItem, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of distinct items held.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Lookup returns the item with the given id.
func (s *Source) Lookup(itemID string) (domain.CatalogItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[itemID]
	if !ok {
		return domain.CatalogItem{}, false
	}
	return s.items[i], true
}

// FindByTitle returns the first item whose title matches, ignoring case.
func (s *Source) FindByTitle(title string) (domain.CatalogItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.SameTitle(title) {
			return item, true
		}
	}
	return domain.CatalogItem{}, false
}

// NextPageNumber is floor(len/pageSize)+1, so already-seen pages are not
// requested again while the page size stays stable.
func (s *Source) NextPageNumber(pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	return s.Len()/pageSize + 1
}

// HasMorePages reports whether the provider may still return unseen items:
// false once the last page added nothing or the reported total is reached.
// A source holding no items always reports true.
func (s *Source) HasMorePages() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.drained {
		return false
	}
	return s.totalCount < 0 || len(s.items) < s.totalCount
}

// PagesFetched returns the number of successful fetches.
func (s *Source) PagesFetched() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagesFetched
}
