package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reelhouse/reelhouse-server/internal/domain"
)

func TestTracker_UnassignedPreservesOrder(t *testing.T) {
	all := concat(items("a", 3), items("b", 2), items("a", 5)[3:])
	tr := NewTracker("a-1")
	pred := func(item domain.CatalogItem) bool { return item.HasGenre("a") }

	got := tr.Unassigned(all, pred)

	ids := make([]string, len(got))
	for i, item := range got {
		ids[i] = item.ItemID
	}
	assert.Equal(t, []string{"a-0", "a-2", "a-3", "a-4"}, ids)
	assert.Nil(t, tr.Unassigned(all, nil))
}

func TestTracker_CommitIsIdempotent(t *testing.T) {
	tr := NewTracker()
	batch := items("a", 3)

	assert.Equal(t, 3, tr.Commit(batch))
	assert.Equal(t, 0, tr.Commit(batch))
	assert.Equal(t, 1, tr.Commit(items("a", 4)))
	assert.Equal(t, 4, tr.Len())
	assert.True(t, tr.IsCommitted("a-3"))
	assert.False(t, tr.IsCommitted("b-0"))
}

func TestTracker_Snapshot(t *testing.T) {
	tr := NewTracker("c", "a", "b")
	assert.Equal(t, []string{"a", "b", "c"}, tr.Snapshot())
}
