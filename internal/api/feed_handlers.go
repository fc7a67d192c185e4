package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/reelhouse/reelhouse-server/internal/errors"
	"github.com/reelhouse/reelhouse-server/internal/feed"
	"github.com/reelhouse/reelhouse-server/internal/session"
)

func (s *Server) registerFeedRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createFeedSession",
		Method:        http.MethodPost,
		Path:          "/api/v1/feed/sessions",
		Summary:       "Create feed session",
		Description:   "Starts a feed for the current viewer and reveals the initial rows",
		Tags:          []string{"Feed"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateFeedSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFeedSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/feed/sessions/{id}",
		Summary:     "Get feed session",
		Description: "Returns the rows revealed so far and the engine state",
		Tags:        []string{"Feed"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetFeedSession)

	huma.Register(s.api, huma.Operation{
		OperationID:   "closeFeedSession",
		Method:        http.MethodDelete,
		Path:          "/api/v1/feed/sessions/{id}",
		Summary:       "Close feed session",
		Description:   "Ends the feed session and discards any load in flight",
		Tags:          []string{"Feed"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCloseFeedSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "scrollFeed",
		Method:      http.MethodPost,
		Path:        "/api/v1/feed/sessions/{id}/scroll",
		Summary:     "Report vertical scroll",
		Description: "Reveals another category when the viewport is near the bottom",
		Tags:        []string{"Feed"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleScrollFeed)

	huma.Register(s.api, huma.Operation{
		OperationID: "loadMoreCategories",
		Method:      http.MethodPost,
		Path:        "/api/v1/feed/sessions/{id}/categories",
		Summary:     "Load more categories",
		Description: "Reveals the next category, fetching catalog pages when needed",
		Tags:        []string{"Feed"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLoadMoreCategories)

	huma.Register(s.api, huma.Operation{
		OperationID: "scrollRow",
		Method:      http.MethodPost,
		Path:        "/api/v1/feed/sessions/{id}/rows/{rowID}/scroll",
		Summary:     "Scroll row",
		Description: "Moves a row one page and extends it near the end",
		Tags:        []string{"Feed"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleScrollRow)

	huma.Register(s.api, huma.Operation{
		OperationID: "loadMoreForRow",
		Method:      http.MethodPost,
		Path:        "/api/v1/feed/sessions/{id}/rows/{rowID}/more",
		Summary:     "Extend row",
		Description: "Appends unassigned items matching the row's category",
		Tags:        []string{"Feed"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLoadMoreForRow)
}

// === DTOs ===

// SessionInput identifies a feed session.
type SessionInput struct {
	ID string `path:"id" doc:"Feed session ID"`
}

// SnapshotOutput wraps a session snapshot for Huma.
type SnapshotOutput struct {
	Body Snapshot
}

// ScrollFeedRequest is a vertical scroll position.
type ScrollFeedRequest struct {
	ViewportBottom float64 `json:"viewport_bottom" validate:"gte=0" doc:"Scroll offset of the viewport bottom"`
	ContentHeight  float64 `json:"content_height" validate:"gte=0" doc:"Total content height"`
}

// ScrollFeedInput wraps the vertical scroll request for Huma.
type ScrollFeedInput struct {
	ID   string `path:"id" doc:"Feed session ID"`
	Body ScrollFeedRequest
}

// ScrollFeedResponse reports whether the scroll triggered a load.
type ScrollFeedResponse struct {
	Triggered bool       `json:"triggered" doc:"The position was close enough to the bottom and not throttled"`
	Result    LoadResult `json:"result"`
}

// ScrollFeedOutput wraps the vertical scroll response for Huma.
type ScrollFeedOutput struct {
	Body ScrollFeedResponse
}

// LoadCategoriesInput selects a regular or forced expansion.
type LoadCategoriesInput struct {
	ID    string `path:"id" doc:"Feed session ID"`
	Force bool   `query:"force" doc:"Skip the regular pass and relax the minimum row size"`
}

// LoadResultOutput wraps a vertical expansion for Huma.
type LoadResultOutput struct {
	Body LoadResult
}

// ScrollRowRequest is a horizontal scroll step.
type ScrollRowRequest struct {
	Direction string `json:"direction" validate:"required,oneof=prev next" doc:"prev or next"`
}

// ScrollRowInput wraps the horizontal scroll request for Huma.
type ScrollRowInput struct {
	ID    string `path:"id" doc:"Feed session ID"`
	RowID string `path:"rowID" doc:"Category ID of the row"`
	Body  ScrollRowRequest
}

// ScrollRowOutput wraps the horizontal scroll result for Huma.
type ScrollRowOutput struct {
	Body feed.ScrollResult
}

// RowInput identifies a row within a feed session.
type RowInput struct {
	ID    string `path:"id" doc:"Feed session ID"`
	RowID string `path:"rowID" doc:"Category ID of the row"`
}

// RowExtensionOutput wraps a horizontal extension for Huma.
type RowExtensionOutput struct {
	Body RowExtension
}

// === Handlers ===

// ownedSession resolves the caller's identity and the session they own.
func (s *Server) ownedSession(ctx context.Context, id string) (*session.Session, error) {
	ident, err := RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return s.services.Sessions.Get(id, ident.Email)
}

func (s *Server) handleCreateFeedSession(ctx context.Context, _ *struct{}) (*SnapshotOutput, error) {
	ident, err := RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	sess, err := s.services.Sessions.Create(ctx, ident)
	if err != nil {
		return nil, mapFeedError(err)
	}

	return &SnapshotOutput{Body: snapshotOf(sess)}, nil
}

func (s *Server) handleGetFeedSession(ctx context.Context, input *SessionInput) (*SnapshotOutput, error) {
	sess, err := s.ownedSession(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &SnapshotOutput{Body: snapshotOf(sess)}, nil
}

func (s *Server) handleCloseFeedSession(ctx context.Context, input *SessionInput) (*struct{}, error) {
	ident, err := RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Sessions.Close(input.ID, ident.Email); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleScrollFeed(ctx context.Context, input *ScrollFeedInput) (*ScrollFeedOutput, error) {
	sess, err := s.ownedSession(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	res, triggered, err := sess.Trigger.OnScroll(ctx, input.Body.ViewportBottom, input.Body.ContentHeight)
	if err != nil {
		return nil, mapFeedError(err)
	}

	result := loadResultOf(res, sess.Engine)
	if !triggered {
		result.Busy = sess.Engine.Busy()
	}
	return &ScrollFeedOutput{
		Body: ScrollFeedResponse{Triggered: triggered, Result: result},
	}, nil
}

func (s *Server) handleLoadMoreCategories(ctx context.Context, input *LoadCategoriesInput) (*LoadResultOutput, error) {
	sess, err := s.ownedSession(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	load := sess.Engine.LoadMoreCategories
	if input.Force {
		load = sess.Engine.ForceAddCategory
	}

	res, err := load(ctx)
	if errors.Is(err, feed.ErrBusy) {
		st := sess.Engine.Stats()
		return &LoadResultOutput{
			Body: LoadResult{Busy: true, State: viewerState(st.State, st.Rows)},
		}, nil
	}
	if err != nil {
		return nil, mapFeedError(err)
	}
	return &LoadResultOutput{Body: loadResultOf(res, sess.Engine)}, nil
}

func (s *Server) handleScrollRow(ctx context.Context, input *ScrollRowInput) (*ScrollRowOutput, error) {
	sess, err := s.ownedSession(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	dir, err := feed.ParseDirection(input.Body.Direction)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	res, err := sess.Carousel.ScrollBy(ctx, input.RowID, dir)
	if err != nil {
		return nil, mapFeedError(err)
	}
	return &ScrollRowOutput{Body: res}, nil
}

func (s *Server) handleLoadMoreForRow(ctx context.Context, input *RowInput) (*RowExtensionOutput, error) {
	sess, err := s.ownedSession(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	ext, err := sess.Carousel.LoadMoreForRow(ctx, input.RowID)
	if errors.Is(err, feed.ErrBusy) {
		// The row is reported as it stands so the client can keep rendering.
		row, ok := sess.Engine.Row(input.RowID)
		if !ok {
			return nil, mapFeedError(feed.ErrRowNotFound)
		}
		return &RowExtensionOutput{
			Body: RowExtension{Busy: true, Row: toRow(row), Added: []Item{}},
		}, nil
	}
	if err != nil {
		return nil, mapFeedError(err)
	}

	return &RowExtensionOutput{
		Body: RowExtension{
			Loaded: len(ext.Added) > 0,
			Row:    toRow(ext.Row),
			Added:  toItems(ext.Added),
		},
	}, nil
}
