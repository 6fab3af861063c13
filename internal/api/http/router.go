package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	Issues *handlers.IssuesHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	health := app.Group("/health")
	health.Get("/live", cfg.Health.Live)
	health.Get("/ready", cfg.Health.Ready)
	health.Get("/metrics", cfg.Health.Metrics)

	issues := app.Group("/api/issues")
	issues.Get("/:project", cfg.Issues.List)
	issues.Post("/:project", cfg.Issues.Create)
	issues.Put("/:project", cfg.Issues.Update)
	issues.Delete("/:project", cfg.Issues.Delete)
}
