package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"textscan/internal/config"
	"textscan/internal/database"
	"textscan/internal/middleware"
	"textscan/internal/profile"
	"textscan/internal/record"
)

// Deps holds what the router needs. Everything is built and closed by the caller.
type Deps struct {
	Config   *config.Config
	DB       *database.DB
	Verifier middleware.TokenVerifier
	Logger   *zap.Logger
}

// NewRouter builds the HTTP handler for the service.
//
// Public: GET /health, GET /api/v1/status.
// Authenticated: POST /texts, GET and POST /users/me.
// Leader only: GET /texts, PATCH /texts/{id}/status, DELETE /texts.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config

	texts := NewTextsHandler(
		record.NewManager(record.NewDatastore(deps.DB.DB, deps.DB.Dialect)),
		logger.Named("texts"),
	)
	profiles := NewProfilesHandler(
		profile.NewManager(profile.NewDatastore(deps.DB.DB, deps.DB.Dialect)),
		logger.Named("profiles"),
	)

	authLogger := logger.Named("auth")
	authenticated := middleware.RequireAuth(deps.Verifier, middleware.Options{
		AllowedEmails: cfg.Access.LeaderEmails,
	}, authLogger)
	leader := middleware.RequireAuth(deps.Verifier, middleware.Options{
		RequireLeader: true,
		AllowedEmails: cfg.Access.LeaderEmails,
	}, authLogger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger.Named("http")))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health and status endpoints (no auth required)
	r.Get("/health", healthHandler(deps.DB, logger))
	r.Get("/api/v1/status", statusHandler(cfg))

	r.Route("/texts", func(r chi.Router) {
		r.With(authenticated).Post("/", texts.Create)
		r.With(leader).Get("/", texts.List)
		r.With(leader).Delete("/", texts.DeleteAll)
		r.With(leader).Patch("/{id}/status", texts.SetStatus)
	})

	r.Route("/users/me", func(r chi.Router) {
		r.Use(authenticated)
		r.Get("/", profiles.Get)
		r.Post("/", profiles.Register)
	})

	return r
}
