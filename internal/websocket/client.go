package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cleberrangel/pert-estimator-api/internal/logger"
	"github.com/cleberrangel/pert-estimator-api/internal/metrics"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ServeWS upgrades the request and binds the connection to a session.
// The caller has already checked that the session belongs to the visitor.
func (h *Hub) ServeWS(c *gin.Context, sessionID, visitorID string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("session_id", sessionID).
			Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		conn:        conn,
		Send:        make(chan []byte, 256),
		SessionID:   sessionID,
		VisitorID:   visitorID,
		ClientIP:    c.ClientIP(),
		Hub:         h,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	logger.AuditWebSocket(client.context(), logger.AuditActionWSConnect, sessionID, client.ClientIP, nil)

	select {
	case client.Hub.register <- client:
	case <-client.Hub.done:
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines
	go client.writePump()
	go client.readPump()
}

// context builds the logging context for work done on behalf of this client
func (c *Client) context() context.Context {
	ctx := logger.WithSessionID(context.Background(), c.SessionID)
	return logger.WithVisitorID(ctx, c.VisitorID)
}

// readPump pumps messages from the websocket connection to the hub
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump() {
	defer func() {
		logger.AuditWebSocket(c.context(), logger.AuditActionWSDisconnect, c.SessionID, c.ClientIP, map[string]interface{}{
			"duration_seconds": time.Since(c.ConnectedAt).Seconds(),
		})
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.LastPing = time.Now()
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error().
					Err(err).
					Str("session_id", c.SessionID).
					Msg("WebSocket connection closed unexpectedly")
			}
			break
		}

		metrics.Get().IncrementWSMessageIn()
		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame: the browser parses each message on its own
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Hub.logger.Error().
			Err(err).
			Str("session_id", c.SessionID).
			Msg("Failed to unmarshal client message")
		c.sendError("mensagem inválida")
		return
	}

	switch msg.Type {
	case MessageTypePing:
		c.SendMessage(OutMessage{
			Type:      MessageTypePong,
			Timestamp: time.Now(),
		})

	case MessageTypeEvent:
		var ev model.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil || ev.Action == "" {
			c.sendError("evento inválido")
			return
		}
		if c.Hub.handler == nil {
			c.sendError("eventos não suportados")
			return
		}
		// O estado resultante chega pelo hook de renderização (SendState)
		if err := c.Hub.handler(c.context(), c.SessionID, c.VisitorID, ev); err != nil {
			c.sendError(err.Error())
		}

	default:
		c.Hub.logger.Debug().
			Str("session_id", c.SessionID).
			Str("message_type", msg.Type).
			Msg("Unknown message type received from client")
	}
}

func (c *Client) sendError(text string) {
	c.SendMessage(OutMessage{
		Type:      MessageTypeError,
		Data:      map[string]string{"error": text},
		Timestamp: time.Now(),
	})
}

// SendMessage sends a message to this specific client
func (c *Client) SendMessage(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		c.Hub.logger.Error().
			Err(err).
			Str("session_id", c.SessionID).
			Msg("Failed to marshal message for client")
		return
	}

	if !c.trySend(data) {
		c.Hub.logger.Warn().
			Str("session_id", c.SessionID).
			Msg("Client send channel is full or closed, dropping message")
	}
}

// trySend queues data without blocking. It reports false when the buffer is
// full or the hub has already closed the channel.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// GetConnectionInfo returns information about this client connection
func (c *Client) GetConnectionInfo() map[string]interface{} {
	return map[string]interface{}{
		"session_id":   c.SessionID,
		"visitor_id":   c.VisitorID,
		"connected_at": c.ConnectedAt,
		"last_ping":    c.LastPing,
	}
}
