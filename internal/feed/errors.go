package feed

import "errors"

// Sentinel errors for feed operations.
var (
	// ErrSourceUnavailable means a catalog page could not be fetched or parsed.
	// Callers treat it as "no new data this round".
	ErrSourceUnavailable = errors.New("feed: catalog source unavailable")
	// ErrBusy means another load is in flight; the call was dropped, not queued.
	ErrBusy = errors.New("feed: load already in flight")
	// ErrRowNotFound means the row id is not one of the visible rows.
	ErrRowNotFound = errors.New("feed: row not found")
	// ErrClosed means the engine was closed; late results are discarded.
	ErrClosed = errors.New("feed: engine closed")
)
