package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeHumanizeCompleted is sent for every finished humanization
	EventTypeHumanizeCompleted EventType = "humanize_completed"
	// EventTypeRewriteFallback is sent when the external rewriter failed and pattern output was used
	EventTypeRewriteFallback EventType = "rewrite_fallback"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// HumanizeCompletedEvent summarises a finished request. Full texts are not
// broadcast, only a preview.
type HumanizeCompletedEvent struct {
	RequestID         string  `json:"request_id"`
	Mode              string  `json:"mode"`
	MethodUsed        string  `json:"method_used"`
	DetectionEstimate float64 `json:"ai_detection_estimate"`
	ProcessingTimeMs  float64 `json:"processing_time_ms"`
	ChangesCount      int     `json:"changes_count"`
	WordCountDelta    int     `json:"word_count_change"`
	Preview           string  `json:"preview"`
	HistoryID         string  `json:"history_id,omitempty"`
}

// RewriteFallbackEvent reports a failed external rewrite
type RewriteFallbackEvent struct {
	RequestID  string `json:"request_id"`
	Mode       string `json:"mode"`
	MethodUsed string `json:"method_used"`
	Rewriter   string `json:"rewriter"`
	Error      string `json:"error"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string           `json:"status"`
	Uptime           string           `json:"uptime"`
	TotalRequests    int64            `json:"total_requests"`
	ByMethod         map[string]int64 `json:"by_method"`
	RewriteFailures  int64            `json:"rewrite_failures"`
	CacheHits        int64            `json:"cache_hits"`
	Rewriter         string           `json:"rewriter"`
	ConnectedClients int              `json:"connected_clients"`
	Message          string           `json:"message,omitempty"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SubscriptionRequest represents a client subscription request
type SubscriptionRequest struct {
	Events []EventType  `json:"events"`
	Filter *EventFilter `json:"filter,omitempty"`
}

// EventFilter narrows humanization events by mode or method
type EventFilter struct {
	Modes   []string `json:"modes,omitempty"`
	Methods []string `json:"methods,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan Event
	ConnectedAt time.Time
	IP          string
	UserAgent   string

	mu           sync.RWMutex
	subscription *SubscriptionRequest
}

// Subscription returns the client's current subscription, nil meaning all events
func (c *Client) Subscription() *SubscriptionRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscription
}

func (c *Client) setSubscription(sub *SubscriptionRequest) {
	c.mu.Lock()
	c.subscription = sub
	c.mu.Unlock()
}
