package routes

import (
	"github.com/gofiber/fiber/v2"

	"incident-map/interfaces/api/handlers"
)

func SetupHealthRoutes(app *fiber.App, healthHandler *handlers.HealthHandler) {
	if healthHandler == nil {
		healthHandler = handlers.NewHealthHandler(nil, nil, nil, nil)
	}

	app.Get("/health", healthHandler.Health)
	app.Get("/health/detailed", healthHandler.DetailedHealth)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Incident Map API",
			"version": "1.0.0",
			"docs":    "/api/v1",
			"health":  "/health",
		})
	})
}
