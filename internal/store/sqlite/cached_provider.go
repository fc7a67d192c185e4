package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/reelhouse/reelhouse-server/internal/feed"
)

// DefaultTTL is how long a cached page is served without asking upstream.
const DefaultTTL = 10 * time.Minute

// sharedFetchTimeout bounds an upstream fetch that several callers wait on.
// It is detached from any single caller's context.
const sharedFetchTimeout = 30 * time.Second

// CachedProvider decorates a feed.CatalogProvider with the page cache.
// Fresh pages are served locally, concurrent misses for the same page share
// one upstream call, and a stale copy is served when upstream fails.
type CachedProvider struct {
	upstream feed.CatalogProvider
	store    *Store
	ttl      time.Duration
	logger   *slog.Logger
	group    singleflight.Group
}

var _ feed.CatalogProvider = (*CachedProvider)(nil)

// NewCachedProvider wraps upstream. A non-positive ttl treats every cached
// page as stale, so upstream is always tried first.
func NewCachedProvider(upstream feed.CatalogProvider, store *Store, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProvider{
		upstream: upstream,
		store:    store,
		ttl:      ttl,
		logger:   logger,
	}
}

// FetchCatalogPage implements feed.CatalogProvider.
func (p *CachedProvider) FetchCatalogPage(ctx context.Context, pageSize, pageNumber int) (*feed.CatalogPage, error) {
	cached, err := p.store.GetPage(ctx, pageSize, pageNumber)
	switch {
	case err == nil:
		if p.ttl > 0 && cached.Age(p.store.now()) < p.ttl {
			p.logger.Debug("page cache hit", "page", pageNumber, "page_size", pageSize)
			return cached.Page, nil
		}
	case errors.Is(err, ErrNotFound):
		cached = nil
	default:
		p.logger.Warn("page cache read failed", "error", err, "page", pageNumber)
		cached = nil
	}

	// Coalesced waiters share one fetch, so a caller that gives up only
	// stops waiting; the fetch itself runs on a detached context.
	key := fmt.Sprintf("%d/%d", pageSize, pageNumber)
	ch := p.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		return p.fetchAndStore(fetchCtx, pageSize, pageNumber)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}

	v, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		if cached != nil {
			p.logger.Warn("upstream failed, serving stale page",
				"error", err,
				"page", pageNumber,
				"page_size", pageSize,
				"age", cached.Age(p.store.now()),
			)
			return cached.Page, nil
		}
		return nil, err
	}
	if shared {
		p.logger.Debug("page fetch coalesced", "page", pageNumber, "page_size", pageSize)
	}
	return v.(*feed.CatalogPage), nil
}

func (p *CachedProvider) fetchAndStore(ctx context.Context, pageSize, pageNumber int) (*feed.CatalogPage, error) {
	page, err := p.upstream.FetchCatalogPage(ctx, pageSize, pageNumber)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, errors.New("upstream returned no page")
	}
	if len(page.Items) > 0 {
		if err := p.store.PutPage(ctx, pageSize, pageNumber, page); err != nil {
			p.logger.Warn("page cache write failed", "error", err, "page", pageNumber)
		}
	}
	return page, nil
}
