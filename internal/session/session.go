// Package session keeps one feed engine per viewer session.
package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/reelhouse/reelhouse-server/internal/domain"
	"github.com/reelhouse/reelhouse-server/internal/feed"
)

// IdentityProvider resolves a bearer token to the viewer's identity.
// It returns domain.ErrUnauthenticated when the token is not accepted.
type IdentityProvider interface {
	WhoAmI(ctx context.Context, token string) (*domain.Identity, error)
}

// Reasons attached to feed.closed events.
const (
	ReasonClosed   = "closed"
	ReasonExpired  = "expired"
	ReasonEvicted  = "evicted"
	ReasonShutdown = "shutdown"
)

// Session is one viewer's live feed.
type Session struct {
	ID        string
	Owner     string
	Engine    *feed.Engine
	Carousel  *feed.Carousel
	Trigger   *feed.ScrollTrigger
	CreatedAt time.Time

	seq      uint64       // registration order
	lastSeen atomic.Int64 // unix nanos
}

// LastSeen returns the last time the session was used.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Touch records activity at now.
func (s *Session) Touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// Idle reports whether the session has been unused for longer than ttl.
func (s *Session) Idle(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.LastSeen()) > ttl
}
