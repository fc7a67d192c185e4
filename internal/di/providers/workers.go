package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/reelhouse/reelhouse-server/internal/logger"
)

// CachePurgeJob periodically removes catalog pages past their retention.
type CachePurgeJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *CachePurgeJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideCachePurgeJob provides the periodic page cache purge. It is a no-op
// when the cache is disabled.
func ProvideCachePurgeJob(i do.Injector) (*CachePurgeJob, error) {
	cache := do.MustInvoke[*PageCacheHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	if cache.Store == nil {
		return &CachePurgeJob{cancel: cancel}, nil
	}

	purge := func() {
		count, err := cache.Purge(ctx, time.Now().Add(-pageRetention))
		if err != nil {
			log.Warn("Page cache purge failed", "error", err)
		} else if count > 0 {
			log.Info("Page cache purge completed", "deleted", count)
		}
	}

	go func() {
		ticker := time.NewTicker(cachePurgeInterval)
		defer ticker.Stop()

		// Initial purge on startup
		purge()

		for {
			select {
			case <-ticker.C:
				purge()
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Page cache purge job started", "retention", pageRetention)

	return &CachePurgeJob{cancel: cancel}, nil
}
