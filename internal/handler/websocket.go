package handler

import (
	"net/http"

	"github.com/cleberrangel/pert-estimator-api/internal/middleware"
	"github.com/cleberrangel/pert-estimator-api/internal/websocket"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler handles WebSocket-related HTTP requests
type WebSocketHandler struct {
	hub *websocket.Hub
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *websocket.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
	}
}

// HandleConnection upgrades the connection for the session validated by websocket.SessionMiddleware
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	h.hub.ServeWS(c, c.GetString(websocket.ContextSessionID), middleware.GetVisitorID(c))
}

// GetConnectionStats returns WebSocket connection statistics
func (h *WebSocketHandler) GetConnectionStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": map[string]interface{}{
			"total_connections":  h.hub.GetConnectionCount(),
			"connected_sessions": len(h.hub.GetConnectedSessions()),
		},
	})
}
