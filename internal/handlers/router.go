package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/your-org/todostack/internal/metrics"
	"github.com/your-org/todostack/internal/middleware"
)

// RouterConfig collects everything the HTTP surface depends on.
// Metrics and RateLimiter are optional.
type RouterConfig struct {
	List    *ListHandler
	Auth    *AuthHandler
	Users   *UserHandler
	Health  *HealthHandler
	Session *middleware.Sessions

	Metrics     *metrics.Metrics
	MetricsPath string
	RateLimiter *middleware.RateLimiter

	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// NewRouter wires handlers and middleware into a chi router
func NewRouter(cfg RouterConfig) http.Handler {
	notFound := responder{logger: cfg.Logger}
	notFoundHandler := func(w http.ResponseWriter, r *http.Request) {
		notFound.respondError(w, r, http.StatusNotFound, "Not found")
	}

	r := chi.NewRouter()
	r.Use(middleware.LoggingMiddleware(cfg.Logger))
	r.Use(middleware.RecoveryMiddleware(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	if cfg.Metrics != nil {
		r.Use(middleware.MetricsMiddleware(cfg.Metrics))
	}
	r.Use(chimw.StripSlashes)
	r.NotFound(notFoundHandler)
	r.MethodNotAllowed(notFoundHandler)

	r.Get("/health", cfg.Health.Health)
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, cfg.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.TimeoutMiddleware(cfg.RequestTimeout))
		if cfg.RateLimiter != nil {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimiter, cfg.Logger))
		}
		r.Use(cfg.Session.Load)
		r.Use(middleware.CSRF(cfg.Logger))
		r.NotFound(notFoundHandler)
		r.MethodNotAllowed(notFoundHandler)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", cfg.Auth.Login)
			r.Post("/logout", cfg.Auth.Logout)
			r.Post("/setup", cfg.Auth.Setup)
			r.Get("/status", cfg.Auth.Status)
			r.With(cfg.Session.RequireAuth).Get("/me", cfg.Auth.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(cfg.Session.RequireAuth)
			r.Use(middleware.RequireWriter)

			r.Get("/list", cfg.List.GetList)
			r.Put("/settings", cfg.List.UpdateSettings)

			r.Post("/sections", cfg.List.CreateSection)
			r.Get("/sections/{id}", cfg.List.GetSection)
			r.Put("/sections/{id}", cfg.List.UpdateSection)
			r.Delete("/sections/{id}", cfg.List.DeleteSection)
			r.Put("/sections/{id}/reorder", cfg.List.ReorderSection)
			r.Post("/sections/{id}/items", cfg.List.CreateItem)

			r.Get("/items/{id}", cfg.List.GetItem)
			r.Put("/items/{id}", cfg.List.UpdateItem)
			r.Delete("/items/{id}", cfg.List.DeleteItem)
			r.Put("/items/{id}/toggle", cfg.List.ToggleItem)
			r.Put("/items/{id}/move", cfg.List.MoveItem)

			r.Post("/items/{id}/children", cfg.List.AddChild)
			r.Put("/items/{id}/children/{childID}", cfg.List.UpdateChild)
			r.Delete("/items/{id}/children/{childID}", cfg.List.DeleteChild)
			r.Put("/items/{id}/children/{childID}/toggle", cfg.List.ToggleChild)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(cfg.Session.RequireAuth)
			r.Use(middleware.RequireAdmin)

			r.Get("/", cfg.Users.ListUsers)
			r.Post("/", cfg.Users.CreateUser)
			r.Get("/{id}", cfg.Users.GetUser)
			r.Put("/{id}", cfg.Users.UpdateUser)
			r.Delete("/{id}", cfg.Users.DeleteUser)
			r.Post("/{id}/password", cfg.Users.ChangePassword)
		})
	})

	return r
}
