package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ChronusArtCenter/cosycoding/internal/ws"
)

// WebSocketHandler exposes the session synchronization attach point.
type WebSocketHandler struct {
	wsHandler *ws.Handler
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(wsHandler *ws.Handler) *WebSocketHandler {
	return &WebSocketHandler{wsHandler: wsHandler}
}

// Attach handles WS /ws - upgrades the connection and hands it to the
// session synchronization core. Clients join projects with their first
// message; no authorization is performed here.
func (h *WebSocketHandler) Attach(c *gin.Context) {
	if err := h.wsHandler.HandleConnection(c.Writer, c.Request); err != nil {
		// Upgrade failures have already written a response.
		return
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *WebSocketHandler) RegisterRoutes(root gin.IRouter) {
	root.GET("/ws", h.Attach)
}
