package catalogapi

import (
	"errors"

	"github.com/reelhouse/reelhouse-server/internal/domain"
)

// Sentinel errors for catalog API operations.
var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("catalogapi: not found")

	// ErrRateLimited is returned when the API rate limit is exceeded.
	ErrRateLimited = errors.New("catalogapi: rate limited")

	// ErrServer is returned when the API returns a 5xx error.
	ErrServer = errors.New("catalogapi: server error")

	// ErrBadRequest is returned when the API rejects the request.
	ErrBadRequest = errors.New("catalogapi: bad request")

	// ErrDecode is returned when a response body cannot be adapted.
	ErrDecode = errors.New("catalogapi: undecodable response")

	// ErrUnauthenticated aliases the domain error so callers can match either.
	ErrUnauthenticated = domain.ErrUnauthenticated
)
