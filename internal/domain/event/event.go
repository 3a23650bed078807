// Package event defines the outbound events flowing from the gateway to
// connected clients through the pubsub bus.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Client-facing event names.
const (
	GameCreated       = "game-created"
	GameJoined        = "game-joined"
	GameState         = "game-state"
	ParticipantJoined = "participant-joined"
	EmojiReceived     = "emoji-received"
	Error             = "error"
)

// Scope selects how an event is delivered.
type Scope string

const (
	// ScopeRoom fans the event out to every connection in a session room.
	ScopeRoom Scope = "room"
	// ScopeConn targets exactly one connection.
	ScopeConn Scope = "conn"
)

// Event is one outbound message. Target is a session id for room events
// and a connection id for targeted ones. Payload is marshaled once, at
// publish time, while the gateway still holds the transition lock.
type Event struct {
	ID         string
	Name       string
	Scope      Scope
	Target     string
	OccurredAt int64
	Payload    any
}

// Room builds a session-wide broadcast.
func Room(sessionID, name string, payload any) *Event {
	return newEvent(name, ScopeRoom, sessionID, payload)
}

// Direct builds an event addressed to a single connection.
func Direct(connID, name string, payload any) *Event {
	return newEvent(name, ScopeConn, connID, payload)
}

func newEvent(name string, scope Scope, target string, payload any) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Name:       name,
		Scope:      scope,
		Target:     target,
		OccurredAt: time.Now().UnixMilli(),
		Payload:    payload,
	}
}
