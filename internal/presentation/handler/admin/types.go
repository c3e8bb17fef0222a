package admin

import "github.com/kcstrada/mes-realtime-gateway/internal/gateway"

// broadcastRequest represents a server-side broadcast submission
type broadcastRequest struct {
	Rooms    []string       `json:"rooms,omitempty"`                       // Explicit room names (highest precedence)
	UserIDs  []string       `json:"userIds,omitempty"`                     // Target user IDs
	Roles    []string       `json:"roles,omitempty"`                       // Target roles (requires tenantId)
	TenantID string         `json:"tenantId,omitempty"`                    // Target tenant
	Exclude  []string       `json:"exclude,omitempty"`                     // Connection IDs to skip at emit time
	Event    string         `json:"event" example:"order.state_changed"`   // Outbound event name
	Data     map[string]any `json:"data"`                                  // Event payload
}

// broadcastResponse reports the outcome of a broadcast
type broadcastResponse struct {
	Delivered int      `json:"delivered" example:"12"` // Connections the message was queued for
	Rooms     []string `json:"rooms"`                  // Rooms the target resolved to
}

// notifyRequest represents a structured notification submission
type notifyRequest struct {
	UserID   string         `json:"userId,omitempty" example:"worker-17"`  // Target user (notify/user)
	Role     string         `json:"role,omitempty" example:"supervisor"`   // Target role (notify/role)
	TenantID string         `json:"tenantId,omitempty" example:"plant-a"`  // Target tenant
	Type     string         `json:"type" example:"task.overdue"`           // Notification type
	Severity string         `json:"severity" example:"warning"`            // info, warning or critical
	Payload  map[string]any `json:"payload"`                               // Notification payload
}

// clientsResponse lists active connections
type clientsResponse struct {
	Count   int                  `json:"count" example:"3"` // Number of connections returned
	Clients []gateway.ClientInfo `json:"clients"`           // Connection details
}
