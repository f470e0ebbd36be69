package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/triagehq/request-triage/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Tickets     *handlers.TicketsHandler
	Analytics   *handlers.AnalyticsHandler
	Identity    *handlers.IdentityHandler
	Admin       *handlers.AdminHandler
	CORSOrigins string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api", cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, x-admin-key",
		AllowMethods: "GET, POST, PATCH, OPTIONS",
	}))

	api.Post("/tickets", cfg.Tickets.SubmitTicket)
	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)
	api.Patch("/tickets/:id", cfg.Tickets.UpdateTicket)
	api.Get("/tickets/:id/comments", cfg.Tickets.ListComments)
	api.Get("/tickets/:id/activity", cfg.Tickets.ListActivity)

	api.Get("/analytics", cfg.Analytics.GetAnalytics)
	api.Get("/me", cfg.Identity.Me)

	admin := api.Group("/admin")
	admin.Get("/users", cfg.Admin.SearchUsers)
	admin.Patch("/users/role", cfg.Admin.SetUserRole)
}
