package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/advisory-service/internal/api/http/handlers"
	"github.com/spec-kit/advisory-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	Auth   *handlers.AuthHandler
	Users  *handlers.UsersHandler
	Guard  *auth.Guard
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/verify", cfg.Auth.Verify)
	authGroup.Post("/login", cfg.Auth.Login)

	users := app.Group("/users", cfg.Guard.Handle, auth.RequireRole())
	users.Get("/me", cfg.Users.Me)
}
