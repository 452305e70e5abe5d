package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cleberrangel/pert-estimator-api/internal/logger"
	"github.com/cleberrangel/pert-estimator-api/internal/metrics"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// EventHandler applies a UI event received over a websocket to a session
type EventHandler func(ctx context.Context, sessionID, visitorID string, ev model.Event) error

// Hub maintains the set of active clients grouped by session
type Hub struct {
	// Registered clients by session ID
	clients map[string]map[*Client]bool

	// Messages for every connected client
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Applies incoming events
	handler EventHandler

	// Closed when Run returns
	done chan struct{}

	// Mutex for thread-safe operations
	mutex sync.RWMutex

	logger *zerolog.Logger
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	Send chan []byte

	// Session the client is bound to
	SessionID string
	VisitorID string
	ClientIP  string

	// Hub reference
	Hub *Hub

	// Connection metadata
	ConnectedAt time.Time
	LastPing    time.Time

	// sendMu guards Send against a close racing with replies from readPump
	sendMu sync.Mutex
	closed bool
}

// Message represents a generic WebSocket message
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// OutMessage is a message sent to the browser
type OutMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	MessageTypeEvent      = "event"
	MessageTypePing       = "ping"
	MessageTypePong       = "pong"
	MessageTypeConnection = "connection"
	MessageTypeState      = "state"
	MessageTypeError      = "error"
	MessageTypeShutdown   = "shutdown"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer (a 255 character name in cyrillic plus envelope)
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || sameHost(origin, r.Host)
	},
}

// NewHub creates a new WebSocket hub
func NewHub(handler EventHandler) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		handler:    handler,
		done:       make(chan struct{}),
		logger:     logger.Global(),
	}
}

// Run starts the hub's main loop until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return
		}
	}
}

// registerClient registers a new client
func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.clients[client.SessionID] == nil {
		h.clients[client.SessionID] = make(map[*Client]bool)
	}
	h.clients[client.SessionID][client] = true

	metrics.Get().IncrementWSConnection()

	h.logger.Info().
		Str("session_id", client.SessionID).
		Str("visitor_id", client.VisitorID).
		Int("session_connections", len(h.clients[client.SessionID])).
		Msg("WebSocket client registered")

	client.SendMessage(OutMessage{
		Type:      MessageTypeConnection,
		Data:      map[string]string{"status": "connected", "session_id": client.SessionID},
		Timestamp: time.Now(),
	})
}

// unregisterClient unregisters a client
func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if clients, ok := h.clients[client.SessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			client.closeSend()

			metrics.Get().DecrementWSConnection()

			if len(clients) == 0 {
				delete(h.clients, client.SessionID)
			}

			h.logger.Info().
				Str("session_id", client.SessionID).
				Int("remaining_connections", len(clients)).
				Msg("WebSocket client unregistered")
		}
	}
}

// broadcastMessage sends a message to all connected clients
func (h *Hub) broadcastMessage(message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for sessionID, clients := range h.clients {
		for client := range clients {
			if !client.trySend(message) {
				h.logger.Warn().
					Str("session_id", sessionID).
					Msg("Failed to send message to client, closing connection")
				h.dropLocked(sessionID, clients, client)
			}
		}
	}
}

// Broadcast queues a message for every connected client
func (h *Hub) Broadcast(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal broadcast message")
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// SendToSession sends a message to all connections of a session
func (h *Hub) SendToSession(sessionID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("session_id", sessionID).
			Msg("Failed to marshal message for session")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients, exists := h.clients[sessionID]
	if !exists {
		h.logger.Debug().
			Str("session_id", sessionID).
			Msg("No WebSocket connections found for session")
		return
	}

	for client := range clients {
		if client.trySend(data) {
			metrics.Get().IncrementWSMessageOut()
		} else {
			h.logger.Warn().
				Str("session_id", sessionID).
				Msg("Failed to send message to session client, closing connection")
			h.dropLocked(sessionID, clients, client)
		}
	}
}

// SendState pushes a rendered state to every connection of the session
func (h *Hub) SendState(sessionID string, state interface{}) {
	h.SendToSession(sessionID, OutMessage{
		Type:      MessageTypeState,
		Data:      state,
		Timestamp: time.Now(),
	})
}

// dropLocked removes a slow client. Caller holds the write lock.
func (h *Hub) dropLocked(sessionID string, clients map[*Client]bool, client *Client) {
	client.closeSend()
	delete(clients, client)
	metrics.Get().DecrementWSConnection()
	if len(clients) == 0 {
		delete(h.clients, sessionID)
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for sessionID, clients := range h.clients {
		for client := range clients {
			h.dropLocked(sessionID, clients, client)
		}
	}
}

// GetConnectedSessions returns the session IDs with at least one connection
func (h *Hub) GetConnectedSessions() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	sessions := make([]string, 0, len(h.clients))
	for sessionID := range h.clients {
		sessions = append(sessions, sessionID)
	}
	return sessions
}

// GetConnectionCount returns the total number of active connections
func (h *Hub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}

// GetSessionConnectionCount returns the number of connections for a session
func (h *Hub) GetSessionConnectionCount(sessionID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if clients, exists := h.clients[sessionID]; exists {
		return len(clients)
	}
	return 0
}

// RegisterClient is a public method to register a client (for testing)
func (h *Hub) RegisterClient(client *Client) {
	h.registerClient(client)
}

// UnregisterClient is a public method to unregister a client (for testing)
func (h *Hub) UnregisterClient(client *Client) {
	h.unregisterClient(client)
}
