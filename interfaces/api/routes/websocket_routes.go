package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	websocketManager "incident-map/infrastructure/websocket"
	"incident-map/interfaces/api/middleware"
	websocketHandler "incident-map/interfaces/api/websocket"
)

func SetupWebSocketRoutes(app *fiber.App, hub *websocketManager.WebSocketManager, jwtSecret string) {
	wsHandler := websocketHandler.NewWebSocketHandler(hub)

	// browsers cannot set headers on a websocket handshake, so the token may come as ?token=
	app.Use("/ws", middleware.OptionalWithQueryToken(jwtSecret), wsHandler.WebSocketUpgrade)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))
}
