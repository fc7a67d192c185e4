package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// pageRetention is how long cached catalog pages are kept as a fallback
	// for an unreachable catalog service.
	pageRetention = 24 * time.Hour

	// cachePurgeInterval is how often expired pages are purged.
	cachePurgeInterval = time.Hour
)
