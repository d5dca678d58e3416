// Package router sets up all HTTP routes and middleware chains for the
// shopdesk API. Routes are grouped into a public auth surface and the
// bearer-token-protected resource endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"shopdesk/internal/handlers"
	"shopdesk/internal/middleware"
	"shopdesk/internal/token"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(tokens *token.Manager, auth *handlers.Auth, categories *handlers.Categories, products *handlers.Products, upload *handlers.Upload) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         86400,
	}).Handler)

	// Health check, no auth.
	r.Get("/health", healthHandler)

	// Credential endpoints are rate limited per IP to slow down guessing.
	authLimiter := middleware.NewRateLimiter(rate.Limit(2), 10)

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", auth.Register)
			r.Post("/login", auth.Login)
			r.Post("/2fa/verify", auth.TwoFAVerify)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(tokens))
			r.Get("/me", auth.Me)
			r.Post("/logout", auth.Logout)
			r.Post("/2fa/setup", auth.TwoFASetup)
			r.Post("/2fa/enable", auth.TwoFAEnable)
		})
	})

	// Resource endpoints require a full access token.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens))

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", categories.Create)
			r.Get("/", categories.List)
			r.Get("/{id}", categories.Get)
			r.Patch("/{id}", categories.Update)
			r.Delete("/{id}", categories.Delete)
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", products.Create)
			r.Get("/", products.List)
			r.Get("/{id}", products.Get)
			r.Patch("/{id}", products.Update)
			r.Delete("/{id}", products.Delete)
		})

		r.Post("/upload/image", upload.Image)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
