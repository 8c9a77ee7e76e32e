package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/filmorate/backend/internal/middleware"
)

// MsgRouteNotFound and MsgMethodNotAllowed are returned for requests no route serves.
const (
	MsgRouteNotFound    = "Ресурс не найден"
	MsgMethodNotAllowed = "Метод не поддерживается"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Films       FilmService
	Users       UserService
	Logger      *slog.Logger
	RateLimiter middleware.RateLimiter
	CORSOrigins []string
	// TrustProxyHeaders enables chi's RealIP, letting X-Forwarded-For and
	// X-Real-IP set the client address used for rate limiting.
	TrustProxyHeaders bool
	// Metrics serves GET /metrics when non-nil.
	Metrics http.Handler
}

// NewRouter builds the HTTP handler for the service.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	health := HealthHandler{}
	films := FilmHandler{Films: deps.Films}
	users := UserHandler{Users: deps.Users}

	r := chi.NewRouter()
	if deps.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(r.Context(), w, http.StatusNotFound, errorResponse{Message: MsgRouteNotFound})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(r.Context(), w, http.StatusMethodNotAllowed, errorResponse{Message: MsgMethodNotAllowed})
	})

	r.Get("/healthz", health.Handle)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.RateLimiter))

		r.Route("/films", func(r chi.Router) {
			r.Get("/", films.List)
			r.Post("/", films.Create)
			r.Put("/", films.Update)
			r.Get("/popular", films.Popular)
			r.Get("/{id}", films.Get)
			r.Delete("/{id}", films.Delete)
			r.Put("/{id}/like/{userId}", films.Like)
			r.Delete("/{id}/like/{userId}", films.Unlike)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", users.List)
			r.Post("/", users.Create)
			r.Put("/", users.Update)
			r.Get("/{id}", users.Get)
			r.Delete("/{id}", users.Delete)
			r.Get("/{id}/friends", users.Friends)
			r.Get("/{id}/friends/common/{otherId}", users.CommonFriends)
			r.Put("/{id}/friends/{friendId}", users.AddFriend)
			r.Delete("/{id}/friends/{friendId}", users.RemoveFriend)
		})
	})

	return r
}
