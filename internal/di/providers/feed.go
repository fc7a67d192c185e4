package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/reelhouse/reelhouse-server/internal/category"
	"github.com/reelhouse/reelhouse-server/internal/config"
	"github.com/reelhouse/reelhouse-server/internal/feed"
	"github.com/reelhouse/reelhouse-server/internal/logger"
	"github.com/reelhouse/reelhouse-server/internal/session"
	"github.com/reelhouse/reelhouse-server/internal/sse"
)

// ProvideCategoryCatalog provides the category catalog shared by every session.
func ProvideCategoryCatalog(i do.Injector) (*category.Catalog, error) {
	log := do.MustInvoke[*logger.Logger](i)

	catalog := category.Default()
	log.Info("Category catalog built", "categories", catalog.Len())
	return catalog, nil
}

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Component("sse"))

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// SessionManagerHandle wraps the feed session registry.
type SessionManagerHandle struct {
	*session.Manager
}

// Shutdown implements do.Shutdownable.
func (h *SessionManagerHandle) Shutdown() error {
	return h.Manager.Shutdown()
}

// ProvideSessionManager provides the feed session registry and starts its
// idle sweeper.
func ProvideSessionManager(i do.Injector) (*SessionManagerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	catalog := do.MustInvoke[*category.Catalog](i)
	provider := do.MustInvoke[*CatalogProviderHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	manager := session.NewManager(catalog, provider.CatalogProvider, sseHandle.Manager,
		sessionConfig(cfg), log.Component("session"))
	manager.Start(context.Background())

	return &SessionManagerHandle{Manager: manager}, nil
}

func sessionConfig(cfg *config.Config) session.Config {
	f := cfg.Feed
	return session.Config{
		TTL:           cfg.Session.TTL,
		MaxPerOwner:   cfg.Session.MaxPerOwner,
		SweepInterval: cfg.Session.SweepInterval,
		Feed: feed.Options{
			InitialPageSize:   f.InitialPageSize,
			FirstPassMinItems: f.FirstPassMinItems,
			FirstPassMaxRows:  f.FirstPassMaxRows,
			RowSize:           f.RowSize,
			RelaxedMinItems:   f.RelaxedMinItems,
			MaxScanAttempts:   f.MaxScanAttempts,
			BackfillCeiling:   f.BackfillCeiling,
			ForceMinItems:     f.ForceMinItems,
			RowExtendSize:     f.RowExtendSize,
		},
		Geometry: feed.Geometry{
			ItemWidth:    f.ItemWidth,
			PageWidth:    f.PageWidth,
			LoadDistance: f.LoadDistance,
		},
		ScrollDistance: f.ScrollDistance,
		ScrollThrottle: f.ScrollThrottle,
	}
}
