package gateway

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kcstrada/mes-realtime-gateway/internal/auth"
)

// Client is one live transport session. Identity fields are bound once at
// authentication and never change; a role change requires a reconnect.
type Client struct {
	ID          string   `json:"id"`
	UserID      string   `json:"userId"`
	TenantID    string   `json:"tenantId"`
	Roles       []string `json:"roles"`
	ConnectedAt time.Time

	conn      *websocket.Conn
	send      chan any // buffered to avoid dead-locks on slow clients
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, id string, ident auth.Identity, sendBuffer int) *Client {
	return &Client{
		ID:          id,
		UserID:      ident.UserID,
		TenantID:    ident.TenantID,
		Roles:       ident.Roles,
		ConnectedAt: time.Now().UTC(),
		conn:        conn,
		send:        make(chan any, sendBuffer),
		done:        make(chan struct{}),
	}
}

// trySend queues v for the write pump without blocking. Returns false when
// the client is closed or its buffer is saturated.
func (c *Client) trySend(v any) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- v:
		return true
	default:
		return false
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// ReadPump consumes client operations until the transport closes, then runs
// the manager's disconnect path before exiting. Cleanup is mandatory, not
// best-effort: the deferred Disconnect runs on every exit cause.
func (c *Client) ReadPump(m *Manager) {
	defer m.Disconnect(c)

	c.conn.SetReadLimit(m.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(m.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(m.cfg.PongTimeout))
	})

	for {
		var req OpRequest
		if err := c.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("ws read error (client %s): %v", c.ID, err)
			}
			return
		}

		resp := m.HandleOp(c, req)
		if !c.trySend(resp) {
			return
		}
	}
}

// WritePump is the single writer for the connection, which preserves
// per-connection message ordering.
func (c *Client) WritePump(writeTimeout, pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case <-c.done:
			return
		case v := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(v); err != nil {
				log.Printf("ws write error (client %s): %v", c.ID, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
