package routes

import (
	"github.com/gofiber/fiber/v2"

	"incident-map/infrastructure/websocket"
	"incident-map/interfaces/api/handlers"
	"incident-map/interfaces/api/middleware"
	"incident-map/pkg/config"
)

func SetupRoutes(app *fiber.App, h *handlers.Handlers, hub *websocket.WebSocketManager, cfg *config.Config) {
	SetupHealthRoutes(app, h.Health)

	api := app.Group("/api/v1", middleware.RateLimiter(&cfg.RateLimit))
	protected := middleware.Protected(cfg.JWT.Secret)

	SetupReportRoutes(api, h, protected)
	SetupReportImageRoutes(api, h, protected)
	SetupUserRoutes(api, h, protected)
	SetupAdminRoutes(api, h, middleware.AdminToken(cfg.Admin.Token))

	SetupWebSocketRoutes(app, hub, cfg.JWT.Secret)
}
