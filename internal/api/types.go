package api

import (
	"time"

	"github.com/reelhouse/reelhouse-server/internal/domain"
	"github.com/reelhouse/reelhouse-server/internal/feed"
	"github.com/reelhouse/reelhouse-server/internal/session"
)

// Item is a catalog item as rendered in a row.
type Item struct {
	ItemID string   `json:"item_id" doc:"Catalog item ID"`
	Title  string   `json:"title" doc:"Display title"`
	Year   int      `json:"year,omitempty" doc:"Release year, omitted when unknown"`
	Rating *float64 `json:"rating,omitempty" doc:"Rating, omitted when unknown"`
	Genres []string `json:"genres" doc:"Normalized genre tags"`
}

// Row is one revealed category.
type Row struct {
	CategoryID string `json:"category_id" doc:"Category ID"`
	Title      string `json:"title" doc:"Category title"`
	Items      []Item `json:"items" doc:"Items in display order"`
	Page       int    `json:"page" doc:"Horizontal extensions performed"`
	HasMore    bool   `json:"has_more" doc:"More items may be appended"`
	Forced     bool   `json:"forced" doc:"Added by the last-resort pass"`
}

// FeedStats summarizes the engine behind a session.
type FeedStats struct {
	Rows         int  `json:"rows"`
	Committed    int  `json:"committed" doc:"Items assigned to a row"`
	Fetched      int  `json:"fetched" doc:"Distinct items held"`
	PagesFetched int  `json:"pages_fetched"`
	Cursor       int  `json:"cursor" doc:"Next catalog index considered"`
	CatalogSize  int  `json:"catalog_size"`
	HasMorePages bool `json:"has_more_pages"`
}

// Snapshot is the full state of a feed session.
// Discovering is always true: the feed keeps looking for rows while the
// viewer scrolls, even after the catalog reports exhaustion.
type Snapshot struct {
	SessionID   string    `json:"session_id"`
	State       string    `json:"state" enum:"initializing,populated,expanding,backfilling"`
	Busy        bool      `json:"busy" doc:"A load is in flight"`
	Discovering bool      `json:"discovering"`
	Rows        []Row     `json:"rows"`
	Stats       FeedStats `json:"stats"`
	CreatedAt   time.Time `json:"created_at"`
}

// LoadResult reports a vertical expansion.
type LoadResult struct {
	Loaded     bool   `json:"loaded" doc:"A row was added"`
	Busy       bool   `json:"busy" doc:"Another load was in flight; nothing changed"`
	Row        *Row   `json:"row,omitempty"`
	Backfilled bool   `json:"backfilled"`
	Forced     bool   `json:"forced"`
	State      string `json:"state"`
}

// RowExtension reports a horizontal extension.
type RowExtension struct {
	Loaded bool   `json:"loaded" doc:"Items were appended"`
	Busy   bool   `json:"busy"`
	Row    Row    `json:"row"`
	Added  []Item `json:"added"`
}

func toItem(item domain.CatalogItem) Item {
	return Item{
		ItemID: item.ItemID,
		Title:  item.Title,
		Year:   item.Year,
		Rating: item.Rating,
		Genres: item.GenreList(),
	}
}

func toItems(items []domain.CatalogItem) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = toItem(item)
	}
	return out
}

func toRow(row domain.CategoryRow) Row {
	return Row{
		CategoryID: row.CategoryID,
		Title:      row.Title,
		Items:      toItems(row.Items),
		Page:       row.Page,
		HasMore:    row.HasMore,
		Forced:     row.Forced,
	}
}

func toRows(rows []domain.CategoryRow) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = toRow(r)
	}
	return out
}

func snapshotOf(sess *session.Session) Snapshot {
	e := sess.Engine
	st := e.Stats()
	return Snapshot{
		SessionID:   sess.ID,
		State:       viewerState(st.State, st.Rows),
		Busy:        st.Busy,
		Discovering: true,
		Rows:        toRows(e.Rows()),
		Stats: FeedStats{
			Rows:         st.Rows,
			Committed:    st.Committed,
			Fetched:      st.Fetched,
			PagesFetched: st.PagesFetched,
			Cursor:       st.Cursor,
			CatalogSize:  st.CatalogSize,
			HasMorePages: e.Source().HasMorePages(),
		},
		CreatedAt: sess.CreatedAt,
	}
}

// viewerState hides exhaustion: the feed reads as resting while the viewer
// keeps scrolling.
func viewerState(state feed.State, rows int) string {
	if state != feed.StateExhausted {
		return state.String()
	}
	if rows == 0 {
		return feed.StateInitializing.String()
	}
	return feed.StatePopulated.String()
}

func loadResultOf(res feed.Result, e *feed.Engine) LoadResult {
	st := e.Stats()
	out := LoadResult{
		Loaded:     res.Added(),
		Backfilled: res.Backfilled,
		Forced:     res.Forced,
		State:      viewerState(st.State, st.Rows),
	}
	if res.Row != nil {
		row := toRow(*res.Row)
		out.Row = &row
	}
	return out
}
