package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dlfdkwl/discord-tiket/internal/api/http/handlers"
	"github.com/dlfdkwl/discord-tiket/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Settings       *handlers.SettingsHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/staff/token", cfg.Auth.IssueToken)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	tenants := api.Group("/tenants/:tenantID")
	tenants.Get("/settings", cfg.Settings.Get)
	tenants.Put("/settings", cfg.Settings.Put)
	tenants.Put("/settings/embeds/:kind", cfg.Settings.PutEmbed)
	tenants.Get("/panel", cfg.Settings.Panel)
	tenants.Get("/stats", cfg.Tickets.Stats)
	tenants.Get("/tickets", cfg.Tickets.List)
	tenants.Post("/tickets", cfg.Tickets.Create)

	tickets := api.Group("/tickets/:channelID")
	tickets.Get("", cfg.Tickets.Get)
	tickets.Post("/participants", cfg.Tickets.AddParticipant)
	tickets.Put("/priority", cfg.Tickets.SetPriority)
	tickets.Post("/close", cfg.Tickets.Close)
	tickets.Get("/history", cfg.Tickets.History)
}
