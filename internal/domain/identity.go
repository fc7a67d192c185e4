package domain

import (
	"errors"
	"slices"
)

// RoleAdmin marks identities that land on the admin console instead of the feed.
const RoleAdmin = "admin"

// View names the top-level screen a viewer lands on.
type View string

const (
	// ViewFeed is the dashboard feed.
	ViewFeed View = "feed"
	// ViewAdmin is the admin console.
	ViewAdmin View = "admin"
)

// ErrUnauthenticated means the identity provider did not accept the credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the authenticated viewer as reported by the identity provider.
type Identity struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return slices.Contains(i.Roles, RoleAdmin)
}

// View returns the top-level view for this identity.
// The feed core itself does not depend on roles.
func (i *Identity) View() View {
	if i.IsAdmin() {
		return ViewAdmin
	}
	return ViewFeed
}
