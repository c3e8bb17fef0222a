package gateway

import (
	"errors"
	"time"
)

var (
	// ErrUnknownClient means an operation referenced a connection that is
	// no longer registered. Treated as a benign race with disconnect.
	ErrUnknownClient = errors.New("unknown client")

	// ErrSlowClient means a client's outbound buffer was saturated. The
	// client is dropped rather than backpressuring the broadcast.
	ErrSlowClient = errors.New("client send buffer full")
)

// Outbound event names emitted by the gateway itself.
const (
	EventConnectionEstablished = "connection.established"
	EventUserConnected         = "user.connected"
	EventUserDisconnected      = "user.disconnected"
	EventNotification          = "notification"
	EventPing                  = "connection.ping"
)

// Message is the outbound wire envelope. Immutable once constructed; one
// instance fans out to many connections.
type Message struct {
	Event     string `json:"event"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
	TenantID  string `json:"tenantId,omitempty"`
}

func NewMessage(event, tenantID string, data any) *Message {
	return &Message{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TenantID:  tenantID,
	}
}

// Target specifies who a broadcast goes to. Exactly one of Rooms / UserIDs /
// Roles (with TenantID) / plain TenantID selects the resolution strategy;
// ExcludeConnectionIDs is always applied at emit time.
type Target struct {
	Rooms                []string
	UserIDs              []string
	Roles                []string
	TenantID             string
	ExcludeConnectionIDs []string
}

// Client-initiated operation names.
const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpJoinRoom    = "join_room"
	OpLeaveRoom   = "leave_room"
)

// OpRequest is a client-initiated request over the socket. Token is only
// honored on the first frame of an unauthenticated handshake.
type OpRequest struct {
	Op     string   `json:"op"`
	Token  string   `json:"token,omitempty"`
	Events []string `json:"events,omitempty"`
	Room   string   `json:"room,omitempty"`
	Type   string   `json:"type,omitempty"`
}

type OpResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

func okResponse(data any) OpResponse {
	return OpResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func failResponse(msg string) OpResponse {
	return OpResponse{
		Success:   false,
		Error:     msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
