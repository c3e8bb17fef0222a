package socket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kcstrada/mes-realtime-gateway/internal/auth"
	"github.com/kcstrada/mes-realtime-gateway/internal/gateway"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/logging"
)

type Handler struct {
	manager       *gateway.Manager
	logger        logging.Logger
	upgrader      websocket.Upgrader
	handshakeWait time.Duration
}

func NewHandler(manager *gateway.Manager, logger logging.Logger, allowedOrigins []string, handshakeWait time.Duration) *Handler {
	if handshakeWait <= 0 {
		handshakeWait = 5 * time.Second
	}

	return &Handler{
		manager:       manager,
		logger:        logger,
		handshakeWait: handshakeWait,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// ServeWS godoc
// @Summary      WebSocket entry point
// @Description  Upgrades the connection and authenticates via Authorization header, token query parameter, or a first-frame handshake message
// @Tags         gateway
// @Param        token query string false "Bearer token (alternative to Authorization header)"
// @Success      101 {object} map[string]interface{} "Switching Protocols - WebSocket connection established"
// @Failure      401 {object} map[string]interface{} "Unauthorized - authentication failed"
// @Router       /ws [get]
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(logging.WebSocket, logging.Handshake, "upgrade failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	// No credential in the request itself: wait for one in-band handshake
	// frame before any session state exists.
	if token == "" {
		token = h.readHandshakeToken(conn)
	}

	client, err := h.manager.Connect(conn, token)
	if err != nil {
		h.logger.Warn(logging.WebSocket, logging.Handshake, "authentication rejected", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		h.refuse(conn, "authentication failed")
		return
	}

	cfg := h.manager.Config()
	go client.WritePump(cfg.WriteTimeout, cfg.PingInterval)
	go client.ReadPump(h.manager)
}

// readHandshakeToken reads a single frame and returns its token field. The
// deadline bounds how long an unauthenticated socket may sit idle.
func (h *Handler) readHandshakeToken(conn *websocket.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(h.handshakeWait))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	var req gateway.OpRequest
	if err := conn.ReadJSON(&req); err != nil {
		return ""
	}
	return req.Token
}

func (h *Handler) refuse(conn *websocket.Conn, reason string) {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = conn.WriteJSON(map[string]any{
		"success": false,
		"error":   reason,
	})
	_ = conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
	)
	_ = conn.Close()
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
