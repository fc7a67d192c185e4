package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerIdentityRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentIdentity",
		Method:      http.MethodGet,
		Path:        "/api/v1/me",
		Summary:     "Get current identity",
		Description: "Returns the authenticated viewer and the view they land on",
		Tags:        []string{"Identity"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentIdentity)
}

// IdentityResponse contains the authenticated viewer.
type IdentityResponse struct {
	Email string   `json:"email" doc:"Viewer email"`
	Roles []string `json:"roles" doc:"Roles granted by the identity provider"`
	View  string   `json:"view" enum:"feed,admin" doc:"Top-level view for this viewer"`
}

// IdentityOutput wraps the identity response for Huma.
type IdentityOutput struct {
	Body IdentityResponse
}

func (s *Server) handleGetCurrentIdentity(ctx context.Context, _ *struct{}) (*IdentityOutput, error) {
	ident, err := RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	roles := ident.Roles
	if roles == nil {
		roles = []string{}
	}
	return &IdentityOutput{
		Body: IdentityResponse{
			Email: ident.Email,
			Roles: roles,
			View:  string(ident.View()),
		},
	}, nil
}
