package websocket

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	websocketManager "incident-map/infrastructure/websocket"
	"incident-map/pkg/logger"
	"incident-map/pkg/utils"
)

type WebSocketHandler struct {
	manager *websocketManager.WebSocketManager
}

func NewWebSocketHandler(manager *websocketManager.WebSocketManager) *WebSocketHandler {
	return &WebSocketHandler{manager: manager}
}

// WebSocketUpgrade admits authenticated upgrade requests only: alerts are
// addressed to users, so anonymous sockets could never receive one.
func (h *WebSocketHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if _, ok := utils.CurrentUser(c); !ok {
		return utils.UnauthorizedResponse(c, "Missing or invalid token")
	}
	return c.Next()
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	user, ok := c.Locals("user").(*utils.UserContext)
	if !ok || user == nil {
		c.Close()
		return
	}

	h.manager.RegisterClient(c, user.ID)
	defer h.manager.UnregisterClient(c)

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			logger.Debug(logger.CategoryWebSocket, "read_closed", "WebSocket read ended", map[string]interface{}{
				"user_id": user.ID.String(),
				"error":   err.Error(),
			})
			return
		}
		h.manager.HandleMessage(c, message)
	}
}
