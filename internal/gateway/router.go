package gateway

import (
	"errors"

	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/logging"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/metrics"
)

// Router resolves a logical broadcast target to concrete rooms and emits
// to their members. It reads registry state but never mutates it.
type Router struct {
	registry *Registry
	conns    *Manager
	logger   logging.Logger
	metrics  *metrics.Metrics
}

func NewRouter(registry *Registry, conns *Manager, logger logging.Logger, m *metrics.Metrics) *Router {
	r := &Router{
		registry: registry,
		conns:    conns,
		logger:   logger,
		metrics:  m,
	}

	// The manager emits presence notifications through the router.
	conns.attachRouter(r)

	return r
}

// Resolve maps a target to room names. Precedence: explicit rooms, then
// user IDs, then roles scoped to a tenant, then the whole tenant. An empty
// result is a legitimate no-op, not an error.
func (r *Router) Resolve(t Target) []string {
	switch {
	case len(t.Rooms) > 0:
		return append([]string(nil), t.Rooms...)

	case len(t.UserIDs) > 0:
		rooms := make([]string, 0, len(t.UserIDs))
		for _, id := range t.UserIDs {
			rooms = append(rooms, UserRoom(id))
		}
		return rooms

	case len(t.Roles) > 0 && t.TenantID != "":
		rooms := make([]string, 0, len(t.Roles))
		for _, role := range t.Roles {
			rooms = append(rooms, RoleRoom(t.TenantID, role))
		}
		return rooms

	case t.TenantID != "":
		return []string{TenantRoom(t.TenantID)}
	}

	return nil
}

// Broadcast emits msg to every member of the resolved rooms, minus the
// excluded connections, and returns the delivery count. Each room's member
// set is an independent snapshot; two concurrent broadcasts may observe
// slightly different membership, which is accepted best-effort behavior.
// A connection reachable through several resolved rooms gets one copy.
func (r *Router) Broadcast(t Target, msg *Message) int {
	rooms := r.Resolve(t)
	if len(rooms) == 0 {
		return 0
	}

	r.metrics.BroadcastsTotal.WithLabelValues(msg.Event).Inc()

	exclude := make(map[string]struct{}, len(t.ExcludeConnectionIDs))
	for _, id := range t.ExcludeConnectionIDs {
		exclude[id] = struct{}{}
	}

	seen := make(map[string]struct{})
	delivered := 0

	for _, room := range rooms {
		for _, connID := range r.registry.Members(room) {
			if _, dup := seen[connID]; dup {
				continue
			}
			seen[connID] = struct{}{}

			if _, skip := exclude[connID]; skip {
				continue
			}

			switch err := r.conns.Send(connID, msg); {
			case err == nil:
				delivered++
			case errors.Is(err, ErrUnknownClient):
				// Benign race with a concurrent disconnect.
			case errors.Is(err, ErrSlowClient):
				r.logger.Warn(logging.WebSocket, logging.Broadcast, "dropping slow client", map[logging.ExtraKey]any{
					logging.ConnectionID: connID,
					logging.RoomName:     room,
					logging.EventName:    msg.Event,
				})
			}
		}
	}

	return delivered
}
