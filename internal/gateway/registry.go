package gateway

import "sync"

// Registry is the bidirectional room membership index: room name to member
// connection IDs, and connection ID to joined room names. Both maps are
// mutated together under one lock so they can never disagree. The registry
// only ever sees connection IDs, never client objects.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{} // room -> connection IDs
	conns map[string]map[string]struct{} // connection ID -> rooms
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]struct{}),
		conns: make(map[string]map[string]struct{}),
	}
}

// Join adds the membership pair. Idempotent.
func (r *Registry) Join(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[room] = members
	}
	members[connID] = struct{}{}

	joined, ok := r.conns[connID]
	if !ok {
		joined = make(map[string]struct{})
		r.conns[connID] = joined
	}
	joined[room] = struct{}{}
}

// Leave removes the membership pair. Idempotent; unknown rooms and
// non-members are no-ops.
func (r *Registry) Leave(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(connID, room)
}

func (r *Registry) leaveLocked(connID, room string) {
	if members, ok := r.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}

	if joined, ok := r.conns[connID]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.conns, connID)
		}
	}
}

// LeaveAll removes the connection from every room it belongs to. Atomic:
// a join racing with disconnect either completes before this call or
// fails at the manager layer, never leaving a dangling membership.
func (r *Registry) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.conns[connID] {
		r.leaveLocked(connID, room)
	}
}

// Members returns a point-in-time snapshot of a room's member connection
// IDs. Membership may change immediately after the call returns.
func (r *Registry) Members(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	out := make([]string, 0, len(members))
	for connID := range members {
		out = append(out, connID)
	}
	return out
}

// Rooms returns a snapshot of the rooms a connection belongs to.
func (r *Registry) Rooms(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	joined := r.conns[connID]
	out := make([]string, 0, len(joined))
	for room := range joined {
		out = append(out, room)
	}
	return out
}

// RoomNames lists every room that currently has at least one member.
func (r *Registry) RoomNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.rooms))
	for room := range r.rooms {
		out = append(out, room)
	}
	return out
}

// MemberCount reports a room's current size without copying the member set.
func (r *Registry) MemberCount(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms[room])
}
