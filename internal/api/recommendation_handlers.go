package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RecommendationProvider returns titles similar to a given title.
type RecommendationProvider interface {
	FetchRecommendations(ctx context.Context, title string) ([]string, error)
}

func (s *Server) registerRecommendationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getRecommendations",
		Method:      http.MethodGet,
		Path:        "/api/v1/recommendations",
		Summary:     "Get recommendations",
		Description: "Returns titles similar to the given title, matched against items the session already holds",
		Tags:        []string{"Recommendations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetRecommendations)
}

// RecommendationsInput contains parameters for recommendations.
type RecommendationsInput struct {
	Title     string `query:"title" required:"true" minLength:"1" doc:"Title to find similar items for"`
	SessionID string `query:"session_id" doc:"Feed session whose items are matched against the titles"`
}

// RecommendationsResponse lists similar titles and the ones the session can show.
type RecommendationsResponse struct {
	Title   string   `json:"title" doc:"Requested title"`
	Titles  []string `json:"titles" doc:"Similar titles, empty when the service is unavailable"`
	Matched []Item   `json:"matched" doc:"Items from the session whose title is in titles"`
}

// RecommendationsOutput wraps the recommendations response for Huma.
type RecommendationsOutput struct {
	Body RecommendationsResponse
}

func (s *Server) handleGetRecommendations(ctx context.Context, input *RecommendationsInput) (*RecommendationsOutput, error) {
	ident, err := RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	resp := RecommendationsResponse{
		Title:   input.Title,
		Titles:  []string{},
		Matched: []Item{},
	}

	if s.services.Recommendations != nil {
		titles, err := s.services.Recommendations.FetchRecommendations(ctx, input.Title)
		if err != nil {
			s.logger.Warn("recommendations unavailable",
				"title", input.Title,
				"error", err,
			)
		} else if titles != nil {
			resp.Titles = titles
		}
	}

	if input.SessionID == "" || len(resp.Titles) == 0 {
		return &RecommendationsOutput{Body: resp}, nil
	}

	sess, err := s.services.Sessions.Get(input.SessionID, ident.Email)
	if err != nil {
		return nil, err
	}
	source := sess.Engine.Source()
	for _, title := range resp.Titles {
		if item, ok := source.FindByTitle(title); ok {
			resp.Matched = append(resp.Matched, toItem(item))
		}
	}

	return &RecommendationsOutput{Body: resp}, nil
}
