package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/reelhouse/reelhouse-server/internal/domain"
)

// Direction is a horizontal scroll direction.
type Direction string

const (
	DirectionPrev Direction = "prev"
	DirectionNext Direction = "next"
)

// ParseDirection validates a direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionPrev, DirectionNext:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("feed: invalid direction %q", s)
	}
}

// Geometry holds the logical sizes used for horizontal scrolling.
type Geometry struct {
	ItemWidth    int
	PageWidth    int
	LoadDistance int // load more when the cursor is this close to the end
}

// DefaultGeometry returns the standard row geometry.
func DefaultGeometry() Geometry {
	return Geometry{ItemWidth: 220, PageWidth: 1100, LoadDistance: 500}
}

func (g Geometry) withDefaults() Geometry {
	d := DefaultGeometry()
	if g.ItemWidth <= 0 {
		g.ItemWidth = d.ItemWidth
	}
	if g.PageWidth <= 0 {
		g.PageWidth = d.PageWidth
	}
	if g.LoadDistance <= 0 {
		g.LoadDistance = d.LoadDistance
	}
	return g
}

// ScrollEnd is the furthest cursor position for a row of n items.
func (g Geometry) ScrollEnd(n int) int {
	return max(0, n*g.ItemWidth-g.PageWidth)
}

// ScrollResult reports the outcome of a horizontal scroll.
type ScrollResult struct {
	RowID     string `json:"row_id"`
	Cursor    int    `json:"cursor"`
	ScrollEnd int    `json:"scroll_end"`
	Loaded    bool   `json:"loaded"`
	Added     int    `json:"added"`
	HasMore   bool   `json:"has_more"`
}

// Extension describes the items appended to a row.
type Extension struct {
	Row   domain.CategoryRow
	Added []domain.CatalogItem
}

// Carousel drives horizontal scrolling and extension of visible rows.
type Carousel struct {
	engine *Engine
	geom   Geometry

	mu      sync.Mutex
	cursors map[string]int
}

// NewCarousel creates a carousel controller over engine's rows.
func NewCarousel(engine *Engine, geom Geometry) *Carousel {
	return &Carousel{
		engine:  engine,
		geom:    geom.withDefaults(),
		cursors: make(map[string]int),
	}
}

// Geometry returns the effective geometry.
func (c *Carousel) Geometry() Geometry {
	return c.geom
}

// Cursor returns the display cursor for rowID.
func (c *Carousel) Cursor(rowID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursors[rowID]
}

// ScrollBy moves the row cursor one page in dir, clamped to the row bounds.
// Scrolling next to within LoadDistance of the end extends the row.
func (c *Carousel) ScrollBy(ctx context.Context, rowID string, dir Direction) (ScrollResult, error) {
	row, ok := c.engine.Row(rowID)
	if !ok {
		return ScrollResult{}, fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
	}

	end := c.geom.ScrollEnd(len(row.Items))
	c.mu.Lock()
	cursor := c.cursors[rowID]
	switch dir {
	case DirectionPrev:
		cursor -= c.geom.PageWidth
	case DirectionNext:
		cursor += c.geom.PageWidth
	default:
		c.mu.Unlock()
		return ScrollResult{}, fmt.Errorf("feed: invalid direction %q", dir)
	}
	cursor = min(max(cursor, 0), end)
	c.cursors[rowID] = cursor
	c.mu.Unlock()

	res := ScrollResult{
		RowID:     rowID,
		Cursor:    cursor,
		ScrollEnd: end,
		HasMore:   row.HasMore,
	}
	if dir != DirectionNext || end-cursor > c.geom.LoadDistance {
		return res, nil
	}

	ext, err := c.LoadMoreForRow(ctx, rowID)
	switch {
	case errors.Is(err, ErrBusy):
		return res, nil
	case err != nil:
		return res, err
	}
	res.Loaded = len(ext.Added) > 0
	res.Added = len(ext.Added)
	res.HasMore = ext.Row.HasMore
	res.ScrollEnd = c.geom.ScrollEnd(len(ext.Row.Items))
	return res, nil
}

// LoadMoreForRow appends up to RowExtendSize unassigned items matching the
// row's category. It is a no-op when the row has no more items. Only items
// already held by the source are considered; no page is fetched.
func (c *Carousel) LoadMoreForRow(ctx context.Context, rowID string) (Extension, error) {
	e := c.engine
	if _, err := e.begin(); err != nil {
		return Extension{}, err
	}
	defer e.end()
	if err := ctx.Err(); err != nil {
		return Extension{}, err
	}

	e.mu.Lock()
	row := e.rowLocked(rowID)
	if row == nil {
		e.mu.Unlock()
		return Extension{}, fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
	}
	if !row.HasMore {
		snapshot := row.Clone()
		e.mu.Unlock()
		return Extension{Row: snapshot}, nil
	}
	def, ok := e.catalog.Lookup(rowID)
	if !ok {
		e.mu.Unlock()
		return Extension{}, fmt.Errorf("%w: %s has no definition", ErrRowNotFound, rowID)
	}

	var candidates []domain.CatalogItem
	for _, item := range e.tracker.Unassigned(e.source.AllItems(), def.Predicate) {
		if !row.Contains(item.ItemID) {
			candidates = append(candidates, item)
		}
	}
	take := candidates[:min(len(candidates), e.opts.RowExtendSize)]
	e.tracker.Commit(take)

	added := make([]domain.CatalogItem, len(take))
	copy(added, take)
	row.Items = append(row.Items, added...)
	row.Page++
	row.HasMore = len(candidates) > len(take)
	snapshot := row.Clone()
	observer := e.observer
	e.mu.Unlock()

	e.logger.Debug("row extended",
		"category_id", rowID,
		"added", len(added),
		"has_more", snapshot.HasMore,
	)
	if observer != nil && len(added) > 0 {
		observer.RowExtended(snapshot, added)
	}
	return Extension{Row: snapshot, Added: added}, nil
}
