package sqlite

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelhouse/reelhouse-server/internal/domain"
	"github.com/reelhouse/reelhouse-server/internal/feed"
)

type countingUpstream struct {
	calls   atomic.Int32
	mu      sync.Mutex
	page    *feed.CatalogPage
	err     error
	started chan struct{}
	release chan struct{}
}

func (u *countingUpstream) FetchCatalogPage(_ context.Context, _, _ int) (*feed.CatalogPage, error) {
	if u.calls.Add(1) == 1 && u.started != nil {
		close(u.started)
	}
	if u.release != nil {
		<-u.release
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.page, u.err
}

// cancellableUpstream blocks until release or until the request context ends.
type cancellableUpstream struct {
	calls   atomic.Int32
	page    *feed.CatalogPage
	started chan struct{}
	release chan struct{}
}

func (u *cancellableUpstream) FetchCatalogPage(ctx context.Context, _, _ int) (*feed.CatalogPage, error) {
	if u.calls.Add(1) == 1 {
		close(u.started)
	}
	select {
	case <-u.release:
		return u.page, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (u *countingUpstream) fail(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.err = err
}

func TestCachedProvider_SecondRequestServedFromCache(t *testing.T) {
	store := newTestStore(t)
	up := &countingUpstream{page: samplePage()}
	p := NewCachedProvider(up, store, time.Hour, nil)
	ctx := context.Background()

	first, err := p.FetchCatalogPage(ctx, 10, 1)
	require.NoError(t, err)
	second, err := p.FetchCatalogPage(ctx, 10, 1)
	require.NoError(t, err)

	assert.Equal(t, int32(1), up.calls.Load())
	assert.Equal(t, len(first.Items), len(second.Items))
	assert.Equal(t, first.TotalCount, second.TotalCount)
}

func TestCachedProvider_StaleRefetches(t *testing.T) {
	store := newTestStore(t)
	up := &countingUpstream{page: samplePage()}
	p := NewCachedProvider(up, store, time.Minute, nil)
	ctx := context.Background()
	base := time.Now()

	store.now = func() time.Time { return base }
	_, err := p.FetchCatalogPage(ctx, 10, 1)
	require.NoError(t, err)

	store.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = p.FetchCatalogPage(ctx, 10, 1)
	require.NoError(t, err)

	assert.Equal(t, int32(2), up.calls.Load())
}

func TestCachedProvider_ServesStaleOnUpstreamFailure(t *testing.T) {
	store := newTestStore(t)
	up := &countingUpstream{page: samplePage()}
	p := NewCachedProvider(up, store, time.Minute, nil)
	ctx := context.Background()
	base := time.Now()

	store.now = func() time.Time { return base }
	_, err := p.FetchCatalogPage(ctx, 10, 1)
	require.NoError(t, err)

	up.fail(errors.New("upstream down"))
	store.now = func() time.Time { return base.Add(time.Hour) }

	page, err := p.FetchCatalogPage(ctx, 10, 1)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int32(2), up.calls.Load())
}

func TestCachedProvider_FailureWithoutCopy(t *testing.T) {
	store := newTestStore(t)
	boom := errors.New("upstream down")
	p := NewCachedProvider(&countingUpstream{err: boom}, store, time.Hour, nil)

	_, err := p.FetchCatalogPage(context.Background(), 10, 1)
	assert.ErrorIs(t, err, boom)
}

func TestCachedProvider_EmptyPageNotStored(t *testing.T) {
	store := newTestStore(t)
	up := &countingUpstream{page: &feed.CatalogPage{Items: []domain.CatalogItem{}}}
	p := NewCachedProvider(up, store, time.Hour, nil)
	ctx := context.Background()

	_, err := p.FetchCatalogPage(ctx, 10, 5)
	require.NoError(t, err)
	_, err = p.FetchCatalogPage(ctx, 10, 5)
	require.NoError(t, err)

	assert.Equal(t, int32(2), up.calls.Load())
	_, err = store.GetPage(ctx, 10, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedProvider_CoalescesConcurrentMisses(t *testing.T) {
	store := newTestStore(t)
	up := &countingUpstream{
		page:    samplePage(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	p := NewCachedProvider(up, store, time.Hour, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*feed.CatalogPage, 2)
	wg.Go(func() {
		results[0], _ = p.FetchCatalogPage(ctx, 10, 1)
	})
	<-up.started
	wg.Go(func() {
		results[1], _ = p.FetchCatalogPage(ctx, 10, 1)
	})
	time.Sleep(100 * time.Millisecond)
	close(up.release)
	wg.Wait()

	assert.Equal(t, int32(1), up.calls.Load())
	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.Len(t, results[1].Items, 2)
}

func TestCachedProvider_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	store := newTestStore(t)
	up := &cancellableUpstream{
		page:    samplePage(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	p := NewCachedProvider(up, store, time.Hour, nil)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := p.FetchCatalogPage(firstCtx, 10, 1)
		firstErr <- err
	}()
	<-up.started

	var wg sync.WaitGroup
	var second *feed.CatalogPage
	var secondErr error
	wg.Go(func() {
		second, secondErr = p.FetchCatalogPage(context.Background(), 10, 1)
	})
	time.Sleep(100 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(up.release)
	wg.Wait()

	require.NoError(t, secondErr)
	require.NotNil(t, second)
	assert.Len(t, second.Items, 2)
	assert.Equal(t, int32(1), up.calls.Load())

	// The shared result was still cached.
	_, err := store.GetPage(context.Background(), 10, 1)
	assert.NoError(t, err)
}
