package catalogapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reelhouse/reelhouse-server/internal/domain"
)

type rawIdentity struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	Role  string   `json:"role"`
}

// WhoAmI resolves the bearer token to an identity.
// An empty token or a 401/403 from the API yields ErrUnauthenticated.
func (c *Client) WhoAmI(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	body, err := c.doRequest(ctx, request{
		endpoint: endpointIdentity,
		path:     "/auth/me",
		token:    token,
	})
	if err != nil {
		return nil, err
	}

	var raw rawIdentity
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if raw.Email == "" {
		return nil, ErrUnauthenticated
	}

	roles := raw.Roles
	if len(roles) == 0 && raw.Role != "" {
		roles = []string{raw.Role}
	}
	return &domain.Identity{Email: raw.Email, Roles: roles}, nil
}
