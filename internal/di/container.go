// Package di provides dependency injection configuration for the Reelhouse server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/reelhouse/reelhouse-server/internal/category"
	"github.com/reelhouse/reelhouse-server/internal/config"
	"github.com/reelhouse/reelhouse-server/internal/di/providers"
	"github.com/reelhouse/reelhouse-server/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Catalog layer
	do.Provide(injector, providers.ProvideCatalogClient)
	do.Provide(injector, providers.ProvidePageCache)
	do.Provide(injector, providers.ProvideCatalogProvider)
	do.Provide(injector, providers.ProvideCategoryCatalog)

	// Feed layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideSessionManager)

	// Workers
	do.Provide(injector, providers.ProvideCachePurgeJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)

	if _, err := do.Invoke[*providers.CatalogClientHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.PageCacheHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.CatalogProviderHandle](injector)
	_ = do.MustInvoke[*category.Catalog](injector)

	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.SessionManagerHandle](injector)
	_ = do.MustInvoke[*providers.CachePurgeJob](injector)

	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
