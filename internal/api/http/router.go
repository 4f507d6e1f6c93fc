package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tracklane/ticket-tracker/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketsHandler
	Users   *handlers.UsersHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	tickets := app.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:ticketID", cfg.Tickets.GetTicket)
	tickets.Patch("/:ticketID", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:ticketID", cfg.Tickets.DeleteTicket)
	tickets.Get("/:ticketID/history", cfg.Tickets.ListHistory)

	users := app.Group("/users")
	users.Get("/", cfg.Users.ListUsers)
	users.Post("/", cfg.Users.CreateUser)
	users.Get("/:userID", cfg.Users.GetUser)
	users.Patch("/:userID", cfg.Users.UpdateUser)
	users.Delete("/:userID", cfg.Users.DeleteUser)
	users.Get("/:userID/tickets", cfg.Users.ListTickets)
	users.Post("/:userID/addTicket/:ticketID", cfg.Users.AddTicket)
}
