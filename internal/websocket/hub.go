package websocket

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	defaultWriteWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer
	defaultPongWait = 60 * time.Second
	// Maximum message size allowed from peer
	defaultMaxMessageSize = 512
	// Per-client outbound buffer
	sendBufferSize = 256
)

// HubConfig contains configuration for the WebSocket hub
type HubConfig struct {
	BroadcastResults     bool
	BroadcastFallbacks   bool
	BroadcastSystem      bool
	BroadcastConnections bool

	// Basic auth is required when Username is set
	Username string
	Password string

	MaxConnections  int
	ReadBufferSize  int
	WriteBufferSize int
	PingInterval    time.Duration
	PongTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxMessageSize  int64
	AllowedOrigins  []string
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients, owned by Run
	clients map[*Client]bool

	// Outbound events
	broadcast chan envelope

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	config   *HubConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu    sync.RWMutex
	stats HubStats
}

// envelope carries an event and an optional client to skip
type envelope struct {
	event   Event
	exclude *Client
}

// HubStats tracks WebSocket hub statistics
type HubStats struct {
	TotalConnections   int64     `json:"total_connections"`
	ActiveConnections  int64     `json:"active_connections"`
	TotalMessages      int64     `json:"total_messages"`
	TotalBroadcasts    int64     `json:"total_broadcasts"`
	DroppedEvents      int64     `json:"dropped_events"`
	LastConnectionTime time.Time `json:"last_connection_time"`
	LastDisconnectTime time.Time `json:"last_disconnect_time"`
	LastBroadcastTime  time.Time `json:"last_broadcast_time"`
}

// NewHub creates a new WebSocket hub
func NewHub(config *HubConfig, logger *zap.Logger) *Hub {
	if config == nil {
		config = &HubConfig{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		config:     config,
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Run handles client registration, unregistration and broadcasting until
// ctx is done. Remaining clients are disconnected on return.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Starting WebSocket hub", zap.String("component", "websocket"))
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.dropClient(client)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket hub stopped", zap.String("component", "websocket"))
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case env := <-h.broadcast:
			h.broadcastEvent(env)
		}
	}
}

// registerClient registers a new client
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ActiveConnections++
	h.stats.LastConnectionTime = time.Now()
	active := h.stats.ActiveConnections
	h.mu.Unlock()

	h.logger.Info("Client connected",
		zap.String("component", "websocket"),
		zap.String("client_id", client.ID),
		zap.String("client_ip", client.IP),
		zap.Int64("active_connections", active),
	)

	// Tell the other clients
	h.broadcastEvent(envelope{
		event: Event{
			Type:      EventTypeConnection,
			Timestamp: time.Now(),
			Data: ConnectionEvent{
				Action:    "connected",
				ClientID:  client.ID,
				ClientIP:  client.IP,
				UserAgent: client.UserAgent,
				Message:   fmt.Sprintf("Client %s connected", client.ID),
			},
		},
		exclude: client,
	})
}

// unregisterClient unregisters a client
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		h.dropClient(client)
		h.stats.LastDisconnectTime = time.Now()
	}
	active := h.stats.ActiveConnections
	h.mu.Unlock()

	if !ok {
		return
	}

	h.logger.Info("Client disconnected",
		zap.String("component", "websocket"),
		zap.String("client_id", client.ID),
		zap.String("client_ip", client.IP),
		zap.Int64("active_connections", active),
	)

	h.broadcastEvent(envelope{
		event: Event{
			Type:      EventTypeConnection,
			Timestamp: time.Now(),
			Data: ConnectionEvent{
				Action:    "disconnected",
				ClientID:  client.ID,
				ClientIP:  client.IP,
				UserAgent: client.UserAgent,
				Message:   fmt.Sprintf("Client %s disconnected", client.ID),
			},
		},
	})
}

// dropClient removes a client and closes its send channel; h.mu must be held
func (h *Hub) dropClient(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.stats.ActiveConnections--
}

// broadcastEvent delivers an event to every registered client that wants it
func (h *Hub) broadcastEvent(env envelope) {
	if !h.shouldBroadcastEvent(env.event.Type) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.TotalBroadcasts++
	h.stats.LastBroadcastTime = time.Now()

	for client := range h.clients {
		if client == env.exclude || !shouldSendToClient(client, env.event) {
			continue
		}
		select {
		case client.Send <- env.event:
			h.stats.TotalMessages++
		default:
			// Client's send channel is full, close it
			h.logger.Warn("Client send channel full, closing connection",
				zap.String("component", "websocket"),
				zap.String("client_id", client.ID),
			)
			h.dropClient(client)
		}
	}
}

// shouldSendToClient determines if an event should be sent to a specific client based on their subscription
func shouldSendToClient(client *Client, event Event) bool {
	sub := client.Subscription()
	if sub == nil {
		return true
	}

	if len(sub.Events) > 0 && !slices.Contains(sub.Events, event.Type) {
		return false
	}

	if sub.Filter != nil {
		return applyEventFilter(sub.Filter, event)
	}

	return true
}

// applyEventFilter matches humanization events against mode and method filters
func applyEventFilter(filter *EventFilter, event Event) bool {
	var mode, method string
	switch data := event.Data.(type) {
	case HumanizeCompletedEvent:
		mode, method = data.Mode, data.MethodUsed
	case RewriteFallbackEvent:
		mode, method = data.Mode, data.MethodUsed
	default:
		return true
	}

	if len(filter.Modes) > 0 && !slices.Contains(filter.Modes, mode) {
		return false
	}
	if len(filter.Methods) > 0 && !slices.Contains(filter.Methods, method) {
		return false
	}
	return true
}

// BroadcastEvent queues an event for all connected clients (only if enabled in config)
func (h *Hub) BroadcastEvent(event Event) {
	if !h.shouldBroadcastEvent(event.Type) {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case h.broadcast <- envelope{event: event}:
	default:
		h.mu.Lock()
		h.stats.DroppedEvents++
		h.mu.Unlock()
		h.logger.Warn("Broadcast channel full, dropping event",
			zap.String("component", "websocket"),
			zap.String("event_type", string(event.Type)),
		)
	}
}

// shouldBroadcastEvent checks if an event type should be broadcast based on configuration
func (h *Hub) shouldBroadcastEvent(eventType EventType) bool {
	switch eventType {
	case EventTypeHumanizeCompleted:
		return h.config.BroadcastResults
	case EventTypeRewriteFallback:
		return h.config.BroadcastFallbacks
	case EventTypeSystemStatus:
		return h.config.BroadcastSystem
	case EventTypeConnection:
		return h.config.BroadcastConnections
	default:
		return false
	}
}

// HandleWebSocket handles WebSocket connections
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.config.Username != "" {
		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="humanizer"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(user), []byte(h.config.Username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(h.config.Password)) != 1 {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
	}

	if h.config.MaxConnections > 0 && h.ClientCount() >= h.config.MaxConnections {
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	select {
	case <-h.done:
		http.Error(w, "Hub stopped", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection",
			zap.String("component", "websocket"),
			zap.Error(err),
		)
		return
	}

	client := &Client{
		ID:          "client_" + uuid.NewString(),
		Conn:        conn,
		Send:        make(chan Event, sendBufferSize),
		ConnectedAt: time.Now(),
		IP:          getClientIP(r),
		UserAgent:   r.UserAgent(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start goroutines for handling the client
	go h.handleClientWrite(client)
	go h.handleClientRead(client)
}

// handleClientWrite handles writing messages to the client
func (h *Hub) handleClientWrite(client *Client) {
	writeWait := orDefault(h.config.WriteTimeout, defaultWriteWait)
	ticker := time.NewTicker(h.pingPeriod())
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn.WriteJSON(event); err != nil {
				h.logger.Debug("Failed to write WebSocket message",
					zap.String("component", "websocket"),
					zap.String("client_id", client.ID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientRead handles reading messages from the client
func (h *Hub) handleClientRead(client *Client) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
		client.Conn.Close()
	}()

	pongWait := orDefault(h.config.PongTimeout, defaultPongWait)
	maxSize := h.config.MaxMessageSize
	if maxSize <= 0 {
		maxSize = defaultMaxMessageSize
	}

	client.Conn.SetReadLimit(maxSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("WebSocket error",
					zap.String("component", "websocket"),
					zap.String("client_id", client.ID),
					zap.Error(err),
				)
			}
			return
		}

		h.handleClientMessage(client, msg)
	}
}

// handleClientMessage handles messages received from clients
func (h *Hub) handleClientMessage(client *Client, msg ClientMessage) {
	switch msg.Type {
	case "subscribe":
		var subscription SubscriptionRequest
		if err := json.Unmarshal(msg.Data, &subscription); err != nil {
			h.logger.Debug("Invalid subscription",
				zap.String("component", "websocket"),
				zap.String("client_id", client.ID),
				zap.Error(err),
			)
			return
		}
		client.setSubscription(&subscription)
		h.logger.Info("Client subscription updated",
			zap.String("component", "websocket"),
			zap.String("client_id", client.ID),
			zap.Any("subscription", subscription),
		)
	case "unsubscribe":
		client.setSubscription(nil)
	case "ping":
		h.reply(client, Event{
			Type:      EventTypePong,
			Timestamp: time.Now(),
			Data:      map[string]string{"message": "pong"},
		})
	}
}

// reply sends an event to one client, skipping it if the client is gone
func (h *Hub) reply(client *Client, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[client] {
		return
	}
	select {
	case client.Send <- event:
	default:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := h.stats
	stats.ActiveConnections = int64(len(h.clients))
	return stats
}

func (h *Hub) pingPeriod() time.Duration {
	if h.config.PingInterval > 0 {
		return h.config.PingInterval
	}
	// Must be less than the pong wait
	return (orDefault(h.config.PongTimeout, defaultPongWait) * 9) / 10
}

// checkOrigin allows same-host requests and configured origins
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.config.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	return r.RemoteAddr
}
