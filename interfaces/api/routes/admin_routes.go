package routes

import (
	"github.com/gofiber/fiber/v2"

	"incident-map/interfaces/api/handlers"
)

func SetupAdminRoutes(router fiber.Router, h *handlers.Handlers, adminOnly fiber.Handler) {
	admin := router.Group("/admin", adminOnly)

	admin.Get("/logs", h.Log.GetLogs)
	admin.Get("/logs/files", h.Log.ListLogFiles)
	admin.Post("/recluster", h.Report.Recluster)
}
