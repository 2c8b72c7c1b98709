// Package api provides the HTTP API of the diagram service.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mindmapapp/mindmap/internal/config"
	"github.com/mindmapapp/mindmap/internal/sse"
	"github.com/mindmapapp/mindmap/internal/store"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      store.Store
	services   *Services
	sseManager *sse.Manager
	router     chi.Router
	api        huma.API
	logger     *slog.Logger

	cookieName      string
	secureCookies   bool
	authRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st store.Store, services *Services, sseManager *sse.Manager, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		store:           st,
		services:        services,
		sseManager:      sseManager,
		router:          chi.NewRouter(),
		logger:          logger,
		cookieName:      cfg.Auth.CookieName,
		secureCookies:   cfg.App.Environment == "production",
		authRateLimiter: NewRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst),
	}

	s.setupMiddleware(cfg.CORS)
	s.api = newHumaAPI(s.router)
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.authRateLimiter.Stop()
}

func newHumaAPI(router chi.Router) huma.API {
	humaConfig := huma.DefaultConfig("Mindmap API", Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()
	return api
}

// setupMiddleware configures the middleware stack. chi requires every Use
// call to precede route registration.
func (s *Server) setupMiddleware(corsCfg config.CORSConfig) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsCfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: corsCfg.AllowCredentials,
		MaxAge:           corsCfg.MaxAge,
	}))
	s.router.Use(RateLimitMiddleware(s.authRateLimiter, authPrefix, s.logger))
	s.router.Use(authMiddleware(s.services.Auth, s.cookieName))
}

// setupRoutes registers all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerUserRoutes()
	s.registerDiagramRoutes()

	// The event stream writes directly to the connection, so it bypasses huma.
	events := sse.NewHandler(s.sseManager, userFromContext, s.logger)
	s.router.With(s.requireAuth).Get(apiPrefix+"/mindmaps/events", events.ServeHTTP)
}
