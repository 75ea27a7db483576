package routes

import (
	"github.com/gofiber/fiber/v2"

	"incident-map/interfaces/api/handlers"
)

func SetupUserRoutes(router fiber.Router, h *handlers.Handlers, protected fiber.Handler) {
	users := router.Group("/users", protected)

	users.Get("/me", h.User.GetMe)
	users.Put("/location", h.User.UpdateLocation)
	users.Get("/contacts", h.User.ListContacts)
	users.Post("/contacts/:id", h.User.AddContact)
	users.Delete("/contacts/:id", h.User.RemoveContact)
}
