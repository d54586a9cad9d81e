package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deskcore/helpdesk-service/internal/api/http/handlers"
	"github.com/deskcore/helpdesk-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketsHandler
	Teams   *handlers.TeamsHandler
	Tags    *handlers.TagsHandler
	Metrics *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))

	tickets := app.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/notes", cfg.Tickets.AddNote)
	tickets.Get("/:id/interactions", cfg.Tickets.ListInteractions)
	tickets.Post("/:id/tags", cfg.Tickets.AttachTag)
	tickets.Delete("/:id/tags/:tagId", cfg.Tickets.DetachTag)
	tickets.Post("/:id/assign", cfg.Tickets.AssignTeam)
	tickets.Post("/:id/route", cfg.Tickets.RouteTicket)

	teams := app.Group("/teams")
	teams.Post("", cfg.Teams.CreateTeam)
	teams.Get("", cfg.Teams.ListTeams)
	teams.Get("/loads", cfg.Teams.TeamLoads)
	teams.Get("/:id", cfg.Teams.GetTeam)
	teams.Patch("/:id", cfg.Teams.UpdateTeam)
	teams.Put("/:id/specialties", cfg.Teams.SetSpecialties)

	tags := app.Group("/tags")
	tags.Post("", cfg.Tags.CreateTag)
	tags.Get("", cfg.Tags.ListTags)
}
