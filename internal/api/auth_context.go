package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/reelhouse/reelhouse-server/internal/domain"
	domainerrors "github.com/reelhouse/reelhouse-server/internal/errors"
	"github.com/reelhouse/reelhouse-server/internal/session"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const (
	identityKey    ctxKey = "identity"
	identityErrKey ctxKey = "identity_error"
)

const bearerPrefix = "Bearer "

// identityMiddleware forwards the bearer token to the identity provider and
// stores the result in context. Requests without a token continue
// anonymously; handlers call RequireIdentity to reject them.
func identityMiddleware(provider session.IdentityProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if provider == nil || !strings.HasPrefix(authHeader, bearerPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimSpace(authHeader[len(bearerPrefix):])
			ident, err := provider.WhoAmI(r.Context(), token)
			ctx := r.Context()
			if err != nil {
				ctx = context.WithValue(ctx, identityErrKey, err)
			} else {
				ctx = context.WithValue(ctx, identityKey, ident)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentity returns the authenticated identity from context.
// A rejected or missing token is 401; an unreachable identity provider is 503.
func RequireIdentity(ctx context.Context) (*domain.Identity, error) {
	if ident, ok := ctx.Value(identityKey).(*domain.Identity); ok && ident != nil {
		return ident, nil
	}
	if err, ok := ctx.Value(identityErrKey).(error); ok {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return nil, domainerrors.Unauthorized("Invalid or expired token")
		}
		return nil, domainerrors.SourceUnavailable("identity provider unavailable").WithCause(err)
	}
	return nil, domainerrors.Unauthorized("Authentication required")
}
