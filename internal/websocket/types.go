package websocket

import (
	"time"
)

// EventType identifies the kind of dashboard event.
type EventType string

const (
	EventTypeDetection    EventType = "detection"
	EventTypeRequestLog   EventType = "request_log"
	EventTypeSystemStatus EventType = "system_status"
	EventTypeConnection   EventType = "connection"
)

// Event is the envelope pushed to dashboard clients.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// DetectionEvent summarizes one completed detection request. It
// carries category counts only; matched text never leaves the engine.
type DetectionEvent struct {
	RequestID          string         `json:"request_id"`
	Endpoint           string         `json:"endpoint"`
	TotalEntities      int            `json:"total_entities"`
	SpeciallySensitive int            `json:"specially_sensitive"`
	Categories         map[string]int `json:"categories"`
	Degraded           []string       `json:"degraded,omitempty"`
	DurationMs         float64        `json:"duration_ms"`
}

// RequestLogEvent mirrors the access log for the live request feed.
type RequestLogEvent struct {
	RequestID  string  `json:"request_id"`
	Method     string  `json:"method"`
	Path       string  `json:"path"`
	StatusCode int     `json:"status_code"`
	ClientIP   string  `json:"client_ip"`
	DurationMs float64 `json:"duration_ms"`
}

// SystemStatusEvent reports periodic service health.
type SystemStatusEvent struct {
	Status        string   `json:"status"`
	Sources       []string `json:"sources"`
	ActiveClients int64    `json:"active_clients"`
	UptimeSeconds float64  `json:"uptime_seconds"`
}

// ConnectionEvent announces dashboard client churn.
type ConnectionEvent struct {
	Action   string `json:"action"` // connected or disconnected
	ClientID string `json:"client_id"`
	ClientIP string `json:"client_ip"`
}

// ClientMessage is an inbound message from a dashboard client.
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// SubscriptionRequest narrows which event types a client receives.
type SubscriptionRequest struct {
	Events []EventType `json:"events"`
}
