package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/reelhouse/reelhouse-server/internal/errors"
	"github.com/reelhouse/reelhouse-server/internal/http/response"
)

// handleEvents streams row events for a feed session. It sits outside huma
// because the response is an open text/event-stream.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	ident, err := RequireIdentity(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if _, err := s.services.Sessions.Get(sessionID, ident.Email); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if s.services.Stream == nil {
		response.Error(w, http.StatusServiceUnavailable, domainerrors.CodeSourceUnavailable, "event stream not configured", s.logger)
		return
	}

	s.services.Stream.Stream(w, r, sessionID)
}
