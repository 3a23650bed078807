/*
Package registry tracks live connections and their session membership, and
fans outbound frames into session rooms.

Each connection is registered once at upgrade time and bound to at most
one session id and role when a create or join transition succeeds. The
binding is what privileged transitions trust: a client-supplied session id
is only used to look a session up on join, never to address one on later
actions. Delivery is non-blocking per connection; a slow consumer drops
frames instead of stalling the room.
*/
package registry

import (
	"sync"
)

// Role distinguishes voting members from observers.
type Role int8

const (
	RoleParticipant Role = iota
	RoleSpectator
)

type binding struct {
	conn      Connector
	sessionID string
	role      Role
}

// Hub is the connection registry and room broadcaster.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*binding             // conn id -> binding
	rooms map[string]map[string]Connector // session id -> conn id -> conn
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*binding),
		rooms: make(map[string]map[string]Connector),
	}
}

// Register attaches a freshly upgraded connection, not yet in any session.
func (h *Hub) Register(conn Connector) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn.ID()] = &binding{conn: conn}
}

// Bind places a registered connection into a session room with a role.
// A connection is in at most one room; rebinding moves it.
func (h *Hub) Bind(connID, sessionID string, role Role) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.conns[connID]
	if !ok {
		return
	}
	if b.sessionID != "" && b.sessionID != sessionID {
		h.leaveRoom(b.sessionID, connID)
	}
	b.sessionID = sessionID
	b.role = role
	room := h.rooms[sessionID]
	if room == nil {
		room = make(map[string]Connector)
		h.rooms[sessionID] = room
	}
	room[connID] = b.conn
}

// Lookup resolves the session a connection is bound to. Privileged
// transitions use this instead of trusting client-supplied session ids.
func (h *Hub) Lookup(connID string) (sessionID string, role Role, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	b, ok := h.conns[connID]
	if !ok || b.sessionID == "" {
		return "", 0, false
	}
	return b.sessionID, b.role, true
}

// Unregister detaches a connection entirely, purging its room on the way
// out, and closes it. Returns the session it was bound to, if any.
func (h *Hub) Unregister(connID string) (sessionID string, wasBound bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.conns[connID]
	if !ok {
		return "", false
	}
	delete(h.conns, connID)
	if b.sessionID != "" {
		h.leaveRoom(b.sessionID, connID)
	}
	b.conn.Close()
	return b.sessionID, b.sessionID != ""
}

func (h *Hub) leaveRoom(sessionID, connID string) {
	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(h.rooms, sessionID)
	}
}

// BroadcastRoom delivers a frame to every connection in a session room.
// Returns how many connections accepted it.
func (h *Hub) BroadcastRoom(sessionID string, frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, conn := range h.rooms[sessionID] {
		if conn.Send(frame) {
			delivered++
		}
	}
	return delivered
}

// SendTo delivers a frame to a single connection.
func (h *Hub) SendTo(connID string, frame []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	b, ok := h.conns[connID]
	if !ok {
		return false
	}
	return b.conn.Send(frame)
}

// RoomSize reports the number of connections bound to a session.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// Shutdown closes every connection. Used on process stop.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, b := range h.conns {
		b.conn.Close()
		delete(h.conns, id)
	}
	h.rooms = make(map[string]map[string]Connector)
}
