package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kcstrada/mes-realtime-gateway/internal/auth"
	"github.com/kcstrada/mes-realtime-gateway/internal/domain"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/logging"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/metrics"
)

// Config tunes the per-connection pumps and buffers.
type Config struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

func (c *Config) applyDefaults() {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = 60 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = c.PongTimeout * 9 / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 8192
	}
}

// Manager owns the connection lifecycle: authenticate, register, auto-join
// the standard rooms, serve client operations, and purge everything on
// disconnect. It is the only component that mutates registry membership.
type Manager struct {
	registry *Registry
	verifier *auth.Verifier
	router   *Router
	logger   logging.Logger
	metrics  *metrics.Metrics
	audit    domain.GatewayAuditRepository // nil disables auditing
	cfg      Config

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewManager(
	registry *Registry,
	verifier *auth.Verifier,
	logger logging.Logger,
	m *metrics.Metrics,
	audit domain.GatewayAuditRepository,
	cfg Config,
) *Manager {
	cfg.applyDefaults()

	return &Manager{
		registry: registry,
		verifier: verifier,
		logger:   logger,
		metrics:  m,
		audit:    audit,
		cfg:      cfg,
		clients:  make(map[string]*Client),
	}
}

// Config returns the pump tuning for the transport handler.
func (m *Manager) Config() Config {
	return m.cfg
}

// Connect authenticates the token and, on success, registers the
// connection and joins its standard rooms. On failure no state exists and
// the caller must close the transport.
func (m *Manager) Connect(conn *websocket.Conn, token string) (*Client, error) {
	ident, err := m.verifier.Verify(token)
	if err != nil {
		m.metrics.AuthFailuresTotal.Inc()
		return nil, err
	}

	c := newClient(conn, uuid.NewString(), ident, m.cfg.SendBuffer)

	m.mu.Lock()
	m.clients[c.ID] = c
	m.registry.Join(c.ID, TenantRoom(c.TenantID))
	m.registry.Join(c.ID, UserRoom(c.UserID))
	for _, role := range c.Roles {
		m.registry.Join(c.ID, RoleRoom(c.TenantID, role))
	}
	m.mu.Unlock()

	m.metrics.ConnectionsTotal.Inc()
	m.metrics.ConnectionsActive.Inc()

	m.logger.Info(logging.WebSocket, logging.Lifecycle, "client connected", map[logging.ExtraKey]any{
		logging.ConnectionID: c.ID,
		logging.UserID:       c.UserID,
		logging.TenantID:     c.TenantID,
	})

	c.trySend(NewMessage(EventConnectionEstablished, c.TenantID, map[string]any{
		"connectionId": c.ID,
		"rooms":        m.registry.Rooms(c.ID),
	}))

	m.emitPresence(c, EventUserConnected)
	m.recordAudit(c, domain.AuditConnected)

	return c, nil
}

// Disconnect purges the connection from the registry and the client table.
// Idempotent; every transport exit path funnels here, and the registry is
// clean before the call returns.
func (m *Manager) Disconnect(c *Client) {
	m.mu.Lock()
	_, registered := m.clients[c.ID]
	if registered {
		delete(m.clients, c.ID)
		m.registry.LeaveAll(c.ID)
	}
	m.mu.Unlock()

	c.shutdown()

	if !registered {
		return
	}

	m.metrics.ConnectionsActive.Dec()

	m.logger.Info(logging.WebSocket, logging.Lifecycle, "client disconnected", map[logging.ExtraKey]any{
		logging.ConnectionID: c.ID,
		logging.UserID:       c.UserID,
		logging.TenantID:     c.TenantID,
	})

	m.emitPresence(c, EventUserDisconnected)
	m.recordAudit(c, domain.AuditDisconnected)
}

// Shutdown disconnects every client; used on server stop.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.RUnlock()

	for _, c := range clients {
		m.Disconnect(c)
	}
}

// HandleOp serves one client-initiated request. Errors are returned as a
// structured failure response on that request only; the session survives.
func (m *Manager) HandleOp(c *Client, req OpRequest) OpResponse {
	switch req.Op {
	case OpSubscribe:
		if len(req.Events) == 0 {
			return failResponse("events is required")
		}
		rooms := make([]string, 0, len(req.Events))
		for _, ev := range req.Events {
			rooms = append(rooms, EventRoom(c.TenantID, ev))
		}
		if err := m.joinRooms(c.ID, rooms); err != nil {
			return failResponse(err.Error())
		}
		return okResponse(map[string]any{"events": req.Events})

	case OpUnsubscribe:
		if len(req.Events) == 0 {
			return failResponse("events is required")
		}
		for _, ev := range req.Events {
			m.leaveRoom(c.ID, EventRoom(c.TenantID, ev))
		}
		return okResponse(map[string]any{"events": req.Events})

	case OpJoinRoom:
		if req.Room == "" {
			return failResponse("room is required")
		}
		if !ValidRoomType(req.Type) {
			return failResponse("unknown room type: " + req.Type)
		}
		room := TypedRoom(req.Type, c.TenantID, req.Room)
		if err := m.joinRooms(c.ID, []string{room}); err != nil {
			return failResponse(err.Error())
		}
		return okResponse(map[string]any{"room": room})

	case OpLeaveRoom:
		if req.Room == "" {
			return failResponse("room is required")
		}
		if !ValidRoomType(req.Type) {
			return failResponse("unknown room type: " + req.Type)
		}
		room := TypedRoom(req.Type, c.TenantID, req.Room)
		m.leaveRoom(c.ID, room)
		return okResponse(map[string]any{"room": room})

	default:
		return failResponse("unknown op: " + req.Op)
	}
}

// joinRooms checks registration and joins under one lock so a join can
// never race a disconnect into a dangling membership.
func (m *Manager) joinRooms(connID string, rooms []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[connID]; !ok {
		return ErrUnknownClient
	}
	for _, room := range rooms {
		m.registry.Join(connID, room)
	}
	return nil
}

func (m *Manager) leaveRoom(connID, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.registry.Leave(connID, room)
}

// Send queues msg on one connection's write pump. A saturated buffer drops
// the connection instead of stalling the caller.
func (m *Manager) Send(connID string, msg *Message) error {
	m.mu.RLock()
	c, ok := m.clients[connID]
	m.mu.RUnlock()

	if !ok {
		return ErrUnknownClient
	}

	if !c.trySend(msg) {
		m.metrics.DroppedSendsTotal.Inc()
		go m.Disconnect(c)
		return ErrSlowClient
	}

	m.metrics.DeliveriesTotal.Inc()
	return nil
}

// Ping sends a connection-test message to one client.
func (m *Manager) Ping(connID string) error {
	return m.Send(connID, NewMessage(EventPing, "", map[string]any{"connectionId": connID}))
}

// ClientInfo is the admin-facing view of one connection.
type ClientInfo struct {
	ConnectionID string    `json:"connectionId"`
	UserID       string    `json:"userId"`
	TenantID     string    `json:"tenantId"`
	Roles        []string  `json:"roles"`
	Rooms        []string  `json:"rooms"`
	ConnectedAt  time.Time `json:"connectedAt"`
}

func (m *Manager) Clients() []ClientInfo {
	return m.clientsWhere(func(*Client) bool { return true })
}

func (m *Manager) ClientsByTenant(tenantID string) []ClientInfo {
	return m.clientsWhere(func(c *Client) bool { return c.TenantID == tenantID })
}

func (m *Manager) clientsWhere(keep func(*Client) bool) []ClientInfo {
	m.mu.RLock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		if keep(c) {
			clients = append(clients, c)
		}
	}
	m.mu.RUnlock()

	out := make([]ClientInfo, 0, len(clients))
	for _, c := range clients {
		out = append(out, ClientInfo{
			ConnectionID: c.ID,
			UserID:       c.UserID,
			TenantID:     c.TenantID,
			Roles:        c.Roles,
			Rooms:        m.registry.Rooms(c.ID),
			ConnectedAt:  c.ConnectedAt,
		})
	}
	return out
}

func (m *Manager) emitPresence(c *Client, event string) {
	if m.router == nil {
		return
	}

	// Best-effort: a failed presence delivery never blocks the lifecycle.
	m.router.Broadcast(
		Target{TenantID: c.TenantID, ExcludeConnectionIDs: []string{c.ID}},
		NewMessage(event, c.TenantID, map[string]any{
			"userId":       c.UserID,
			"connectionId": c.ID,
		}),
	)
	m.metrics.PresenceEventsTotal.Inc()
}

func (m *Manager) recordAudit(c *Client, eventType domain.AuditEventType) {
	if m.audit == nil {
		return
	}

	entry := domain.GatewayAuditLog{
		TenantID:     c.TenantID,
		UserID:       c.UserID,
		ConnectionID: c.ID,
		EventType:    eventType,
		Timestamp:    time.Now().UTC(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := m.audit.Record(ctx, entry); err != nil {
			m.logger.Warn(logging.Mongo, logging.Lifecycle, "audit record failed", map[logging.ExtraKey]any{
				logging.ConnectionID: c.ID,
				logging.ErrorMessage: err.Error(),
			})
		}
	}()
}

func (m *Manager) attachRouter(r *Router) {
	m.router = r
}
