// Package service implements the broadcast gateway: the single serialized
// path every action takes. A transition resolves the acting connection,
// runs the state machine, persists fire-and-forget and publishes the
// resulting snapshot to the bus. One mutex linearizes all transitions
// across all sessions; nothing inside it blocks on I/O.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v3"
	"github.com/voterlab/poker-session-service/internal/adapter/pubsub"
	"github.com/voterlab/poker-session-service/internal/domain/event"
	"github.com/voterlab/poker-session-service/internal/domain/model"
	"github.com/voterlab/poker-session-service/internal/domain/poker"
	"github.com/voterlab/poker-session-service/internal/domain/registry"
	"github.com/voterlab/poker-session-service/internal/scheduler"
	"github.com/voterlab/poker-session-service/internal/storage"
)

type Gateway struct {
	mu sync.Mutex

	store      *storage.Store
	machine    *poker.Machine
	hub        *registry.Hub
	dispatcher pubsub.EventDispatcher
	reaper     *scheduler.Keyed
	logger     *slog.Logger

	grace        time.Duration
	newSessionID func() string
}

func NewGateway(
	store *storage.Store,
	machine *poker.Machine,
	hub *registry.Hub,
	dispatcher pubsub.EventDispatcher,
	reaper *scheduler.Keyed,
	logger *slog.Logger,
	grace time.Duration,
	opts ...Option,
) *Gateway {
	g := &Gateway{
		store:        store,
		machine:      machine,
		hub:          hub,
		dispatcher:   dispatcher,
		reaper:       reaper,
		logger:       logger,
		grace:        grace,
		newSessionID: shortuuid.New,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CreateGame builds a new session with the acting connection as sole
// participant and facilitator, then acknowledges the creator privately.
func (g *Gateway) CreateGame(ctx context.Context, connID, gameName, facilitatorName string, seeds []poker.IssueSeed, cardPreset string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sess, err := g.machine.Create(connID, gameName, facilitatorName, seeds, cardPreset)
	if err != nil {
		g.reject(ctx, connID, "create-game", err)
		return
	}
	for {
		sess.ID = g.newSessionID()
		if g.store.Create(sess) == nil {
			break
		}
	}
	g.hub.Bind(connID, sess.ID, registry.RoleParticipant)
	g.store.Persist()

	g.publish(ctx, event.Direct(connID, event.GameCreated, &event.GameCreatedPayload{GameID: sess.ID, Game: sess}))
	g.publish(ctx, event.Direct(connID, event.GameState, sess))
	g.logger.Info("game created", "game_id", sess.ID, "name", sess.Name)
}

// JoinGame adds the acting connection to an existing session and cancels
// any pending deletion timer for it.
func (g *Gateway) JoinGame(ctx context.Context, connID, gameID, playerName string, asSpectator bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !asSpectator && !poker.ValidPlayerName(playerName) {
		// Name validation runs before the store lookup: a blank or
		// oversized name is rejected as such even for unknown game ids.
		g.reject(ctx, connID, "join-game", model.ErrNameRequired)
		return
	}
	sess, err := g.store.Lookup(gameID)
	if err != nil {
		g.logger.Info("join failed: game not found", "game_id", gameID)
		g.reject(ctx, connID, "join-game", err)
		return
	}
	if err := g.machine.Join(sess, connID, playerName, asSpectator); err != nil {
		g.reject(ctx, connID, "join-game", err)
		return
	}

	g.reaper.Cancel(sess.ID)
	role := registry.RoleParticipant
	if asSpectator {
		role = registry.RoleSpectator
	}
	g.hub.Bind(connID, sess.ID, role)
	g.store.Persist()

	g.publish(ctx, event.Direct(connID, event.GameJoined, &event.GameJoinedPayload{Game: sess}))
	g.publish(ctx, event.Direct(connID, event.GameState, sess))
	g.publish(ctx, event.Room(sess.ID, event.ParticipantJoined, sess))
	g.logger.Info("player joined", "game_id", sess.ID, "player", playerName, "spectator", asSpectator)
}

// Vote upserts the acting participant's vote. Rejections are silent.
func (g *Gateway) Vote(ctx context.Context, connID, value string) {
	g.mutate(ctx, connID, "vote", func(s *model.Session) error {
		return g.machine.Vote(s, connID, value)
	})
}

// RevealVotes makes votes visible and locks voting for the active issue.
func (g *Gateway) RevealVotes(ctx context.Context, connID string) {
	g.mutate(ctx, connID, "reveal-votes", func(s *model.Session) error {
		return g.machine.Reveal(s, connID)
	})
}

func (g *Gateway) NextIssue(ctx context.Context, connID string) {
	g.mutate(ctx, connID, "next-issue", func(s *model.Session) error {
		return g.machine.NextIssue(s, connID)
	})
}

func (g *Gateway) PreviousIssue(ctx context.Context, connID string) {
	g.mutate(ctx, connID, "previous-issue", func(s *model.Session) error {
		return g.machine.PreviousIssue(s, connID)
	})
}

func (g *Gateway) GoToIssue(ctx context.Context, connID string, index int) {
	g.mutate(ctx, connID, "go-to-issue", func(s *model.Session) error {
		return g.machine.GoToIssue(s, connID, index)
	})
}

func (g *Gateway) ResetVotes(ctx context.Context, connID string) {
	g.mutate(ctx, connID, "reset-votes", func(s *model.Session) error {
		return g.machine.ResetVotes(s, connID)
	})
}

func (g *Gateway) StartVoteTimer(ctx context.Context, connID string, seconds int) {
	g.mutate(ctx, connID, "start-vote-timer", func(s *model.Session) error {
		return g.machine.StartVoteTimer(s, connID, seconds)
	})
}

func (g *Gateway) SetAutoReveal(ctx context.Context, connID string, enabled bool) {
	g.mutate(ctx, connID, "set-auto-reveal", func(s *model.Session) error {
		return g.machine.SetAutoReveal(s, connID, enabled)
	})
}

func (g *Gateway) AddIssue(ctx context.Context, connID, title, description string) {
	g.mutate(ctx, connID, "add-issue", func(s *model.Session) error {
		return g.machine.AddIssue(s, connID, title, description)
	})
}

func (g *Gateway) EditIssue(ctx context.Context, connID, issueID string, title, description *string) {
	g.mutate(ctx, connID, "edit-issue", func(s *model.Session) error {
		return g.machine.EditIssue(s, connID, issueID, title, description)
	})
}

func (g *Gateway) DeleteIssue(ctx context.Context, connID, issueID string) {
	g.mutate(ctx, connID, "delete-issue", func(s *model.Session) error {
		return g.machine.DeleteIssue(s, connID, issueID)
	})
}

// SendEmoji delivers a private reaction to one connection. It bypasses the
// room, mutates nothing and is never persisted.
func (g *Gateway) SendEmoji(ctx context.Context, connID, targetConnID, emoji string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sess, ok := g.resolve(connID)
	if !ok {
		return
	}
	fromName, safe, err := g.machine.Reaction(sess, connID, targetConnID, emoji)
	if err != nil {
		g.logger.Debug("reaction dropped", "game_id", sess.ID, "reason", err)
		return
	}
	g.publish(ctx, event.Direct(targetConnID, event.EmojiReceived, &event.EmojiPayload{Emoji: safe, FromName: fromName}))
	g.logger.Info("emoji sent", "game_id", sess.ID, "from", fromName, "emoji", safe)
}

// Disconnect removes a connection from its session, transfers the
// facilitator role when needed and, on zero occupancy, arms the deferred
// deletion timer instead of broadcasting.
func (g *Gateway) Disconnect(ctx context.Context, connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sessionID, wasBound := g.hub.Unregister(connID)
	if !wasBound {
		return
	}
	sess, ok := g.store.Get(sessionID)
	if !ok {
		return
	}
	if !g.machine.Disconnect(sess, connID) {
		return
	}

	if sess.Occupancy() == 0 {
		id := sess.ID
		g.reaper.Schedule(id, g.grace, func() {
			g.expire(id)
		})
	} else {
		g.store.Persist()
		g.publish(ctx, event.Room(sess.ID, event.GameState, sess))
	}
	g.logger.Info("client disconnected", "conn_id", connID, "game_id", sessionID)
}

// expire re-enters the serialized path when a deletion timer fires. The
// occupancy re-check guards against a join that landed between the timer
// firing and the lock being taken.
func (g *Gateway) expire(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sess, ok := g.store.Get(sessionID)
	if !ok || sess.Occupancy() > 0 {
		return
	}
	g.store.Delete(sessionID)
	g.store.Persist()
	g.logger.Info("idle session reaped", "game_id", sessionID)
}

// mutate is the shared transition path for every in-session action: the
// target session comes from the connection's own binding, never from a
// client-supplied id. On success the room receives a fresh snapshot.
func (g *Gateway) mutate(ctx context.Context, connID, action string, fn func(*model.Session) error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sess, ok := g.resolve(connID)
	if !ok {
		return
	}
	if err := fn(sess); err != nil {
		g.reject(ctx, connID, action, err)
		return
	}
	g.store.Persist()
	g.publish(ctx, event.Room(sess.ID, event.GameState, sess))
	g.logger.Info(action, "game_id", sess.ID)
}

func (g *Gateway) resolve(connID string) (*model.Session, bool) {
	sessionID, _, ok := g.hub.Lookup(connID)
	if !ok {
		return nil, false
	}
	return g.store.Get(sessionID)
}

// reject applies the two-tier error policy: validation failures go back to
// the acting connection as an error event, everything else is a silent
// no-op worth at most a debug line.
func (g *Gateway) reject(ctx context.Context, connID, action string, err error) {
	if ve, ok := model.AsValidation(err); ok {
		g.publish(ctx, event.Direct(connID, event.Error, ve))
		return
	}
	g.logger.Debug("action rejected", "action", action, "conn_id", connID, "reason", err)
}

// publish never fails a transition: a bus error is logged and dropped.
func (g *Gateway) publish(ctx context.Context, ev *event.Event) {
	if err := g.dispatcher.Publish(ctx, ev); err != nil {
		g.logger.Error("publish failed", "event", ev.Name, "error", err)
	}
}
