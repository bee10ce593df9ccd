package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/pothole-dashboard/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketsHandler
	Route   *handlers.RouteHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Get("/tickets", cfg.Tickets.ListTickets)
	app.Patch("/tickets/:id/status", cfg.Tickets.UpdateStatus)

	app.Get("/route", cfg.Route.GetRoute)
	app.Put("/route/mode", cfg.Route.SetOrderMode)
}
