// Package feed implements the dashboard feed: it partitions a growing set of
// catalog items into titled category rows, with each item assigned to at most
// one row, and expands rows vertically and horizontally on demand.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/reelhouse/reelhouse-server/internal/domain"
)

// Catalog is the ordered category list the engine walks by index.
type Catalog interface {
	Len() int
	At(i int) domain.CategoryDefinition
	Lookup(id string) (domain.CategoryDefinition, bool)
}

// Options tunes the engine thresholds.
type Options struct {
	InitialPageSize   int // page size for every catalog fetch
	FirstPassMinItems int // unassigned items required during Initialize
	FirstPassMaxRows  int // rows kept by Initialize
	RowSize           int // items taken when a row is created
	RelaxedMinItems   int // unassigned items required by LoadMoreCategories
	MaxScanAttempts   int // candidates evaluated per LoadMoreCategories
	BackfillCeiling   int // fetch more raw data only below this many items
	ForceMinItems     int // unassigned items required by ForceAddCategory
	RowExtendSize     int // items appended per LoadMoreForRow
}

// DefaultOptions returns the production thresholds.
func DefaultOptions() Options {
	return Options{
		InitialPageSize:   200,
		FirstPassMinItems: 4,
		FirstPassMaxRows:  5,
		RowSize:           10,
		RelaxedMinItems:   3,
		MaxScanAttempts:   50,
		BackfillCeiling:   300,
		ForceMinItems:     1,
		RowExtendSize:     5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.InitialPageSize <= 0 {
		o.InitialPageSize = d.InitialPageSize
	}
	if o.FirstPassMinItems <= 0 {
		o.FirstPassMinItems = d.FirstPassMinItems
	}
	if o.FirstPassMaxRows <= 0 {
		o.FirstPassMaxRows = d.FirstPassMaxRows
	}
	if o.RowSize <= 0 {
		o.RowSize = d.RowSize
	}
	if o.RelaxedMinItems <= 0 {
		o.RelaxedMinItems = d.RelaxedMinItems
	}
	if o.MaxScanAttempts <= 0 {
		o.MaxScanAttempts = d.MaxScanAttempts
	}
	if o.BackfillCeiling <= 0 {
		o.BackfillCeiling = d.BackfillCeiling
	}
	if o.ForceMinItems <= 0 {
		o.ForceMinItems = d.ForceMinItems
	}
	if o.RowExtendSize <= 0 {
		o.RowExtendSize = d.RowExtendSize
	}
	return o
}

// State is the engine lifecycle state.
type State int

const (
	// StateInitializing means no row has been produced yet.
	StateInitializing State = iota
	// StatePopulated is the resting state once rows exist.
	StatePopulated
	// StateExpanding is transient while a new category is being chosen.
	StateExpanding
	// StateBackfilling is transient while more raw data is fetched.
	StateBackfilling
	// StateExhausted means the walk passed the end of the catalog with
	// nothing left to assign. It is never surfaced to viewers.
	StateExhausted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StatePopulated:
		return "populated"
	case StateExpanding:
		return "expanding"
	case StateBackfilling:
		return "backfilling"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Result describes what a vertical expansion produced.
type Result struct {
	Row        *domain.CategoryRow // nil when no row was added
	Backfilled bool                // a catalog page was fetched during the call
	Forced     bool                // the row came from the last-resort pass
	Exhausted  bool                // no category can take any more items
}

// Added reports whether a row was appended.
func (r Result) Added() bool {
	return r.Row != nil
}

// Observer is notified after rows change. Callbacks run outside the engine lock.
type Observer interface {
	RowAdded(row domain.CategoryRow)
	RowExtended(row domain.CategoryRow, added []domain.CatalogItem)
}

// Stats is a point-in-time summary of the engine.
type Stats struct {
	State        State
	Rows         int
	Committed    int
	Fetched      int
	PagesFetched int
	Cursor       int
	CatalogSize  int
	Busy         bool
}

// Engine decides which category to reveal next and how many items it gets.
//
// Entry points (Initialize, LoadMoreCategories, ForceAddCategory and the
// carousel's LoadMoreForRow) are gated by a single in-flight flag: a call that
// arrives while another is running returns ErrBusy. Commits only happen while
// holding mu, so the tracker has a single writer.
type Engine struct {
	opts    Options
	catalog Catalog
	source  *Source
	tracker *Tracker
	logger  *slog.Logger

	mu         sync.Mutex
	rows       []*domain.CategoryRow
	visible    map[string]bool
	state      State
	cursor     int
	loading    bool
	closed     bool
	generation uint64
	observer   Observer
}

// NewEngine wires an engine over the given catalog, source and tracker.
func NewEngine(catalog Catalog, source *Source, tracker *Tracker, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if tracker == nil {
		tracker = NewTracker()
	}
	return &Engine{
		opts:    opts.withDefaults(),
		catalog: catalog,
		source:  source,
		tracker: tracker,
		logger:  logger,
		visible: make(map[string]bool),
		state:   StateInitializing,
	}
}

// SetObserver registers the row change observer.
func (e *Engine) SetObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = o
}

// Source returns the engine's item source.
func (e *Engine) Source() *Source {
	return e.source
}

// Tracker returns the engine's assignment tracker.
func (e *Engine) Tracker() *Tracker {
	return e.tracker
}

// Options returns the effective thresholds.
func (e *Engine) Options() Options {
	return e.opts
}

// begin takes the in-flight flag and returns the current generation.
func (e *Engine) begin() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, ErrClosed
	}
	if e.loading {
		return 0, ErrBusy
	}
	e.loading = true
	return e.generation, nil
}

func (e *Engine) end() {
	e.mu.Lock()
	e.loading = false
	if e.state == StateExpanding || e.state == StateBackfilling {
		e.state = e.restingState()
	}
	e.mu.Unlock()
}

// restingState must be called with mu held.
func (e *Engine) restingState() State {
	if len(e.rows) == 0 {
		return StateInitializing
	}
	return StatePopulated
}

// stale must be called with mu held.
func (e *Engine) stale(gen uint64) bool {
	return e.closed || gen != e.generation
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// fetchPage fetches the next page and applies it unless the engine went stale
// while the request was outstanding.
func (e *Engine) fetchPage(ctx context.Context, gen uint64) ([]domain.CatalogItem, error) {
	pageSize := e.opts.InitialPageSize
	pageNumber := e.source.NextPageNumber(pageSize)

	page, err := e.source.fetch(ctx, pageSize, pageNumber)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stale(gen) {
		return nil, ErrClosed
	}
	if err != nil {
		e.logger.Warn("catalog fetch failed",
			"error", err,
			"page", pageNumber,
			"page_size", pageSize,
		)
		return nil, err
	}
	return e.source.apply(page), nil
}

// Initialize fetches the first page and runs the first assignment pass:
// categories are walked in catalog order and kept when they have at least
// FirstPassMinItems unassigned items, up to FirstPassMaxRows rows.
//
// An engine that already has rows ignores the call. An empty source leaves
// the engine in StateInitializing so Initialize can be retried.
func (e *Engine) Initialize(ctx context.Context) error {
	gen, err := e.begin()
	if err != nil {
		return err
	}
	defer e.end()

	e.mu.Lock()
	populated := len(e.rows) > 0
	e.mu.Unlock()
	if populated {
		return nil
	}

	if _, err := e.fetchPage(ctx, gen); errors.Is(err, ErrClosed) {
		return err
	}

	e.mu.Lock()
	if e.stale(gen) {
		e.mu.Unlock()
		return ErrClosed
	}
	all := e.source.AllItems()
	var added []*domain.CategoryRow
	for i := 0; i < e.catalog.Len() && len(added) < e.opts.FirstPassMaxRows; i++ {
		def := e.catalog.At(i)
		if e.visible[def.ID] {
			continue
		}
		unassigned := e.tracker.Unassigned(all, def.Predicate)
		if len(unassigned) < e.opts.FirstPassMinItems {
			continue
		}
		added = append(added, e.appendRow(def, unassigned, false))
		e.cursor = i + 1
	}
	e.state = e.restingState()
	observer := e.observer
	snapshots := cloneRows(added)
	e.mu.Unlock()

	e.logger.Info("feed initialized",
		"rows", len(snapshots),
		"items", len(all),
	)
	notifyAdded(observer, snapshots)
	return nil
}

// LoadMoreCategories reveals one more category using the relaxed threshold.
//
// Candidates start at index len(visible rows) and are walked in catalog order
// for at most MaxScanAttempts non-visible categories. When none qualifies the
// engine backfills while fewer than BackfillCeiling items are held, and
// falls back to ForceAddCategory otherwise or when the provider has nothing
// new. A failed fetch means no progress this round and is not an error.
func (e *Engine) LoadMoreCategories(ctx context.Context) (Result, error) {
	gen, err := e.begin()
	if err != nil {
		return Result{}, err
	}
	defer e.end()

	var res Result
	for {
		e.setState(StateExpanding)

		e.mu.Lock()
		row := e.scan(e.opts.RelaxedMinItems, e.opts.MaxScanAttempts, false)
		e.mu.Unlock()
		if row != nil {
			res.Row = row
			e.publishAdded(row)
			return res, nil
		}

		if e.source.Len() >= e.opts.BackfillCeiling || !e.source.HasMorePages() {
			break
		}

		e.setState(StateBackfilling)
		e.logger.Debug("backfilling catalog", "held", e.source.Len())
		added, err := e.fetchPage(ctx, gen)
		if errors.Is(err, ErrClosed) {
			return Result{}, err
		}
		if err != nil {
			return res, nil
		}
		res.Backfilled = true
		if len(added) == 0 {
			break
		}
	}

	forced := e.force(gen)
	forced.Backfilled = res.Backfilled
	return forced, nil
}

// ForceAddCategory reveals the first non-visible category at or after index
// len(visible rows) with at least ForceMinItems unassigned items, regardless
// of how few. Categories a failed relaxed scan passed over are still eligible.
// When nothing qualifies the engine goes quiet: no row, no error.
func (e *Engine) ForceAddCategory(ctx context.Context) (Result, error) {
	gen, err := e.begin()
	if err != nil {
		return Result{}, err
	}
	defer e.end()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return e.force(gen), nil
}

func (e *Engine) force(gen uint64) Result {
	e.mu.Lock()
	if e.stale(gen) {
		e.mu.Unlock()
		return Result{}
	}
	row := e.scan(e.opts.ForceMinItems, 0, true)
	if row == nil {
		e.state = StateExhausted
		e.mu.Unlock()
		e.logger.Debug("no category left to reveal")
		return Result{Exhausted: true}
	}
	e.mu.Unlock()

	e.publishAdded(row)
	return Result{Row: row, Forced: true}
}

// scan walks the catalog from len(rows) and appends the first non-visible
// category with at least minItems unassigned items. maxAttempts <= 0 means
// walk to the end. Must be called with mu held. Returns a snapshot.
func (e *Engine) scan(minItems, maxAttempts int, forced bool) *domain.CategoryRow {
	all := e.source.AllItems()
	attempts := 0
	idx := len(e.rows)
	for ; idx < e.catalog.Len(); idx++ {
		if maxAttempts > 0 && attempts >= maxAttempts {
			break
		}
		def := e.catalog.At(idx)
		if e.visible[def.ID] {
			continue
		}
		attempts++
		unassigned := e.tracker.Unassigned(all, def.Predicate)
		if len(unassigned) < minItems {
			continue
		}
		row := e.appendRow(def, unassigned, forced)
		e.cursor = idx + 1
		snapshot := row.Clone()
		return &snapshot
	}
	e.cursor = idx
	return nil
}

// appendRow commits up to RowSize items to a new row. Must be called with mu held.
func (e *Engine) appendRow(def domain.CategoryDefinition, unassigned []domain.CatalogItem, forced bool) *domain.CategoryRow {
	take := unassigned[:min(len(unassigned), e.opts.RowSize)]
	e.tracker.Commit(take)

	items := make([]domain.CatalogItem, len(take))
	copy(items, take)
	row := &domain.CategoryRow{
		CategoryID: def.ID,
		Title:      def.Title,
		Items:      items,
		HasMore:    !forced && len(unassigned) > len(take),
		Forced:     forced,
	}
	e.rows = append(e.rows, row)
	e.visible[def.ID] = true
	if e.state == StateInitializing || e.state == StateExhausted {
		e.state = StatePopulated
	}

	e.logger.Debug("category revealed",
		"category_id", def.ID,
		"items", len(items),
		"has_more", row.HasMore,
		"forced", forced,
	)
	return row
}

func (e *Engine) publishAdded(row *domain.CategoryRow) {
	e.mu.Lock()
	observer := e.observer
	e.mu.Unlock()
	if observer != nil && row != nil {
		observer.RowAdded(row.Clone())
	}
}

// Close stops the engine. Fetches still in flight are discarded when they land.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.generation++
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Busy reports whether an entry point is in flight.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Rows returns deep copies of the visible rows in display order.
func (e *Engine) Rows() []domain.CategoryRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.CategoryRow, len(e.rows))
	for i, r := range e.rows {
		out[i] = r.Clone()
	}
	return out
}

// Row returns a copy of the row for categoryID.
func (e *Engine) Row(categoryID string) (domain.CategoryRow, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	row := e.rowLocked(categoryID)
	if row == nil {
		return domain.CategoryRow{}, false
	}
	return row.Clone(), true
}

func (e *Engine) rowLocked(categoryID string) *domain.CategoryRow {
	for _, r := range e.rows {
		if r.CategoryID == categoryID {
			return r
		}
	}
	return nil
}

// VisibleCategoryIDs returns the ids of visible rows in display order.
func (e *Engine) VisibleCategoryIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, len(e.rows))
	for i, r := range e.rows {
		ids[i] = r.CategoryID
	}
	return ids
}

// Stats returns a summary of the engine.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		State:        e.state,
		Rows:         len(e.rows),
		Committed:    e.tracker.Len(),
		Fetched:      e.source.Len(),
		PagesFetched: e.source.PagesFetched(),
		Cursor:       e.cursor,
		CatalogSize:  e.catalog.Len(),
		Busy:         e.loading,
	}
}

func cloneRows(rows []*domain.CategoryRow) []domain.CategoryRow {
	out := make([]domain.CategoryRow, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

func notifyAdded(o Observer, rows []domain.CategoryRow) {
	if o == nil {
		return
	}
	for _, r := range rows {
		o.RowAdded(r)
	}
}
