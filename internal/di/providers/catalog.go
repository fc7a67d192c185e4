package providers

import (
	"github.com/samber/do/v2"

	"github.com/reelhouse/reelhouse-server/internal/catalogapi"
	"github.com/reelhouse/reelhouse-server/internal/config"
	"github.com/reelhouse/reelhouse-server/internal/feed"
	"github.com/reelhouse/reelhouse-server/internal/logger"
	"github.com/reelhouse/reelhouse-server/internal/store/sqlite"
)

// CatalogClientHandle wraps the remote catalog client with shutdown capability.
type CatalogClientHandle struct {
	*catalogapi.Client
}

// Shutdown implements do.Shutdownable.
func (h *CatalogClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideCatalogClient provides the client for the remote catalog, identity,
// and recommendation endpoints.
func ProvideCatalogClient(i do.Injector) (*CatalogClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client, err := catalogapi.New(catalogapi.Options{
		BaseURL:           cfg.Catalog.BaseURL,
		Timeout:           cfg.Catalog.Timeout,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
		Burst:             cfg.Catalog.Burst,
	}, log.Component("catalogapi"))
	if err != nil {
		return nil, err
	}

	log.Info("Catalog client ready", "base_url", client.BaseURL())
	return &CatalogClientHandle{Client: client}, nil
}

// PageCacheHandle wraps the page cache. Store is nil when the cache is disabled.
type PageCacheHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *PageCacheHandle) Shutdown() error {
	if h.Store == nil {
		return nil
	}
	return h.Close()
}

// ProvidePageCache opens the SQLite page cache when it is enabled.
func ProvidePageCache(i do.Injector) (*PageCacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Cache.Enabled {
		log.Info("Page cache disabled")
		return &PageCacheHandle{}, nil
	}

	store, err := sqlite.Open(cfg.Cache.Path, log.Component("page_cache"))
	if err != nil {
		return nil, err
	}

	log.Info("Page cache opened", "path", cfg.Cache.Path, "ttl", cfg.Cache.TTL)
	return &PageCacheHandle{Store: store}, nil
}

// CatalogProviderHandle is the page source shared by every feed session:
// the catalog client, behind the page cache when it is enabled.
type CatalogProviderHandle struct {
	feed.CatalogProvider
}

// ProvideCatalogProvider provides the shared catalog page source.
func ProvideCatalogProvider(i do.Injector) (*CatalogProviderHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*CatalogClientHandle](i)
	cache := do.MustInvoke[*PageCacheHandle](i)

	if cache.Store == nil {
		return &CatalogProviderHandle{CatalogProvider: client.Client}, nil
	}
	cached := sqlite.NewCachedProvider(client.Client, cache.Store, cfg.Cache.TTL, log.Component("page_cache"))
	return &CatalogProviderHandle{CatalogProvider: cached}, nil
}
