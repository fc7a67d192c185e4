package feed

import (
	"slices"
	"sync"

	"github.com/reelhouse/reelhouse-server/internal/domain"
)

// Tracker records which items are committed to a visible row.
// The committed set only grows; there is no way to give an item back.
type Tracker struct {
	mu        sync.RWMutex
	committed map[string]struct{}
}

// NewTracker creates a tracker, optionally pre-seeded with committed ids.
func NewTracker(committed ...string) *Tracker {
	t := &Tracker{committed: make(map[string]struct{}, len(committed))}
	for _, id := range committed {
		t.committed[id] = struct{}{}
	}
	return t
}

// Unassigned filters items to those matching predicate that are not yet
// committed, preserving input order.
func (t *Tracker) Unassigned(items []domain.CatalogItem, predicate domain.Predicate) []domain.CatalogItem {
	if predicate == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []domain.CatalogItem
	for _, item := range items {
		if _, used := t.committed[item.ItemID]; used {
			continue
		}
		if predicate(item) {
			out = append(out, item)
		}
	}
	return out
}

// Commit marks items as assigned and returns how many were newly added.
// Re-committing an id is a no-op.
func (t *Tracker) Commit(items []domain.CatalogItem) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	added := 0
	for _, item := range items {
		if _, used := t.committed[item.ItemID]; used {
			continue
		}
		t.committed[item.ItemID] = struct{}{}
		added++
	}
	return added
}

// IsCommitted reports whether itemID is assigned to some row.
func (t *Tracker) IsCommitted(itemID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.committed[itemID]
	return ok
}

// Len returns the number of committed ids.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.committed)
}

// Snapshot returns the committed ids sorted.
func (t *Tracker) Snapshot() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.committed))
	for id := range t.committed {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
