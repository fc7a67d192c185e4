package session

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/reelhouse/reelhouse-server/internal/domain"
	domainerrors "github.com/reelhouse/reelhouse-server/internal/errors"
	"github.com/reelhouse/reelhouse-server/internal/feed"
	"github.com/reelhouse/reelhouse-server/internal/id"
	"github.com/reelhouse/reelhouse-server/internal/sse"
)

// Config controls session lifecycle and the settings of each new feed.
type Config struct {
	TTL           time.Duration
	MaxPerOwner   int
	SweepInterval time.Duration

	Feed           feed.Options
	Geometry       feed.Geometry
	ScrollDistance float64
	ScrollThrottle time.Duration
}

// DefaultConfig returns the standard lifecycle settings.
func DefaultConfig() Config {
	return Config{
		TTL:           30 * time.Minute,
		MaxPerOwner:   4,
		SweepInterval: time.Minute,
		Feed:          feed.DefaultOptions(),
		Geometry:      feed.DefaultGeometry(),
	}
}

// Manager is the registry of live feed sessions.
type Manager struct {
	catalog  feed.Catalog
	provider feed.CatalogProvider
	events   sse.Emitter
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	seq      uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a manager. events may be nil, in which case row changes
// are not published.
func NewManager(catalog feed.Catalog, provider feed.CatalogProvider, events sse.Emitter, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPerOwner <= 0 {
		cfg.MaxPerOwner = DefaultConfig().MaxPerOwner
	}
	return &Manager{
		catalog:  catalog,
		provider: provider,
		events:   events,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a feed session for ident and runs its first pass. When the
// owner already holds MaxPerOwner sessions the oldest ones are closed.
func (m *Manager) Create(ctx context.Context, ident *domain.Identity) (*Session, error) {
	if ident == nil || ident.Email == "" {
		return nil, domainerrors.Unauthorized("identity required")
	}

	sessionID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	log := m.logger.With("session_id", sessionID)
	source := feed.NewSource(m.provider, log)
	engine := feed.NewEngine(m.catalog, source, feed.NewTracker(), m.cfg.Feed, log)
	if m.events != nil {
		engine.SetObserver(sse.NewSessionObserver(m.events, sessionID))
	}

	now := m.now()
	sess := &Session{
		ID:        sessionID,
		Owner:     ident.Email,
		Engine:    engine,
		Carousel:  feed.NewCarousel(engine, m.cfg.Geometry),
		Trigger:   feed.NewScrollTrigger(engine, m.cfg.ScrollDistance, m.cfg.ScrollThrottle),
		CreatedAt: now,
	}
	sess.Touch(now)

	evicted := m.register(sess)
	for _, old := range evicted {
		m.finish(old, ReasonEvicted)
	}

	if err := engine.Initialize(ctx); err != nil {
		m.remove(sess.ID)
		m.finish(sess, ReasonClosed)
		return nil, fmt.Errorf("initialize feed: %w", err)
	}

	log.Info("feed session created",
		"owner", sess.Owner,
		"rows", len(engine.Rows()),
		"state", engine.State().String(),
	)
	return sess, nil
}

// register adds sess and returns the owner's sessions that must be evicted.
func (m *Manager) register(sess *Session) []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	var owned []*Session
	for _, s := range m.sessions {
		if s.Owner == sess.Owner {
			owned = append(owned, s)
		}
	}
	slices.SortFunc(owned, bySeq)

	var evicted []*Session
	for len(owned) >= m.cfg.MaxPerOwner {
		evicted = append(evicted, owned[0])
		delete(m.sessions, owned[0].ID)
		owned = owned[1:]
	}
	m.seq++
	sess.seq = m.seq
	m.sessions[sess.ID] = sess
	return evicted
}

func (m *Manager) remove(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	return sess, ok
}

// finish closes the engine, which discards any fetch still in flight, and
// announces the end of the session.
func (m *Manager) finish(sess *Session, reason string) {
	sess.Engine.Close()
	if m.events != nil {
		m.events.Emit(sse.NewClosedEvent(sess.ID, reason))
	}
	m.logger.Info("feed session closed",
		"session_id", sess.ID,
		"owner", sess.Owner,
		"reason", reason,
	)
}

// Get returns the session if it exists and belongs to owner, and marks it used.
func (m *Manager) Get(sessionID, owner string) (*Session, error) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	m.mu.Unlock()

	if !ok {
		return nil, domainerrors.NotFoundf("feed session %s not found", sessionID)
	}
	if sess.Owner != owner {
		return nil, domainerrors.Forbidden("feed session belongs to another viewer")
	}
	sess.Touch(m.now())
	return sess, nil
}

// Close ends a session owned by owner.
func (m *Manager) Close(sessionID, owner string) error {
	if _, err := m.Get(sessionID, owner); err != nil {
		return err
	}
	sess, ok := m.remove(sessionID)
	if !ok {
		return domainerrors.NotFoundf("feed session %s not found", sessionID)
	}
	m.finish(sess, ReasonClosed)
	return nil
}

// Sweep closes sessions idle longer than the TTL and returns how many it closed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	var expired []*Session
	for sid, s := range m.sessions {
		if s.Idle(now, m.cfg.TTL) {
			expired = append(expired, s)
			delete(m.sessions, sid)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.finish(s, ReasonExpired)
	}
	return len(expired)
}

// Start runs the idle sweep on a ticker until ctx is canceled or Shutdown is called.
func (m *Manager) Start(ctx context.Context) {
	interval := m.cfg.SweepInterval
	if interval <= 0 {
		interval = DefaultConfig().SweepInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := m.Sweep(m.now()); n > 0 {
					m.logger.Info("idle feed sessions swept", "closed", n)
				}
			case <-ctx.Done():
				return
			}
		}
	})
	m.logger.Info("feed session sweeper started", "interval", interval, "ttl", m.cfg.TTL)
}

// Shutdown stops the sweeper and closes every session.
// It implements do.Shutdownable.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	cancel := m.cancel
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()

	for _, s := range all {
		m.finish(s, ReasonShutdown)
	}
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Owned returns the ids of owner's sessions, oldest first.
func (m *Manager) Owned(owner string) []string {
	m.mu.Lock()
	var owned []*Session
	for _, s := range m.sessions {
		if s.Owner == owner {
			owned = append(owned, s)
		}
	}
	m.mu.Unlock()

	slices.SortFunc(owned, bySeq)
	ids := make([]string, len(owned))
	for i, s := range owned {
		ids[i] = s.ID
	}
	return ids
}

func bySeq(a, b *Session) int {
	return cmp.Compare(a.seq, b.seq)
}
