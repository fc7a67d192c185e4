// Package api provides the HTTP API for Reelhouse feed sessions.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/reelhouse/reelhouse-server/internal/config"
	"github.com/reelhouse/reelhouse-server/internal/ratelimit"
	"github.com/reelhouse/reelhouse-server/internal/session"
	"github.com/reelhouse/reelhouse-server/internal/sse"
	"github.com/reelhouse/reelhouse-server/internal/store/sqlite"
	"github.com/reelhouse/reelhouse-server/internal/validation"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Services holds everything the handlers call into.
type Services struct {
	Sessions        *session.Manager
	Identity        session.IdentityProvider
	Recommendations RecommendationProvider
	Events          *sse.Manager
	Stream          *sse.Handler
	Cache           *sqlite.Store // nil when the page cache is disabled
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services  *Services
	router    *chi.Mux
	api       huma.API
	validator *validation.Validator
	limiter   *ratelimit.KeyedRateLimiter
	logger    *slog.Logger
}

// NewServer creates the HTTP server with middleware and all routes configured.
func NewServer(services *Services, cfg config.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		services:  services,
		router:    chi.NewRouter(),
		validator: validation.New(),
		logger:    logger,
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = ratelimit.New(cfg.RateLimitRPS, max(cfg.RateLimitBurst, 1))
	}

	s.setupMiddleware(cfg)

	humaConfig := huma.DefaultConfig("Reelhouse API", Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:   "http",
			Scheme: "bearer",
		},
	}
	humaConfig.Transformers = []huma.Transformer{EnvelopeTransformer}
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerIdentityRoutes()
	s.registerFeedRoutes()
	s.registerRecommendationRoutes()
	s.router.Get("/api/v1/feed/sessions/{id}/events", s.handleEvents)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Shutdown releases the inbound rate limiter.
func (s *Server) Shutdown() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return nil
}

func (s *Server) setupMiddleware(cfg config.ServerConfig) {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
	s.router.Use(identityMiddleware(s.services.Identity))
}
