// Package ws is the realtime transport: one long-lived websocket per
// client. The read pump decodes action envelopes and hands them to the
// gateway; the write pump drains the connection's frame channel. Ordering
// per connection is preserved end to end, delivery is at most once.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/voterlab/poker-session-service/config"
	"github.com/voterlab/poker-session-service/internal/domain/poker"
	"github.com/voterlab/poker-session-service/internal/domain/registry"
	wsmarshaller "github.com/voterlab/poker-session-service/internal/handler/marshaller/ws"
	"github.com/voterlab/poker-session-service/internal/service"
)

type WSHandler struct {
	logger   *slog.Logger
	gateway  *service.Gateway
	hub      *registry.Hub
	upgrader websocket.Upgrader

	sendBuffer     int
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64
}

func NewWSHandler(logger *slog.Logger, gateway *service.Gateway, hub *registry.Hub, cfg *config.Config) *WSHandler {
	pongWait := time.Duration(cfg.WS.PongWaitSeconds) * time.Second
	return &WSHandler{
		logger:  logger,
		gateway: gateway,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // same-origin pages plus shared game links
		},
		sendBuffer:     cfg.WS.SendBuffer,
		writeWait:      time.Duration(cfg.WS.WriteWaitSeconds) * time.Second,
		pongWait:       pongWait,
		pingPeriod:     pongWait * 9 / 10,
		maxMessageSize: cfg.WS.MaxMessageBytes,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}

	conn := registry.NewConnector(h.sendBuffer)
	h.hub.Register(conn)
	h.logger.Info("client connected", "conn_id", conn.ID())

	go h.writePump(ws, conn)
	h.readPump(ws, conn)

	// Disconnect runs the full leave transition: membership removal,
	// facilitator transfer, reaper scheduling, connection close.
	h.gateway.Disconnect(context.Background(), conn.ID())
}

func (h *WSHandler) readPump(ws *websocket.Conn, conn registry.Connector) {
	defer ws.Close()

	ws.SetReadLimit(h.maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(h.pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("ws read failed", "conn_id", conn.ID(), "error", err)
			}
			return
		}
		in, err := wsmarshaller.DecodeInbound(data)
		if err != nil {
			h.logger.Debug("malformed inbound message", "conn_id", conn.ID(), "error", err)
			continue
		}
		h.dispatch(context.Background(), conn.ID(), in)
	}
}

// dispatch decodes the action payload and invokes the matching gateway
// transition. Unknown actions are dropped.
func (h *WSHandler) dispatch(ctx context.Context, connID string, in *wsmarshaller.Inbound) {
	switch in.Action {
	case wsmarshaller.ActionCreateGame:
		p, err := wsmarshaller.DecodePayload[wsmarshaller.CreateGamePayload](in.Payload)
		if err != nil {
			break
		}
		seeds := make([]poker.IssueSeed, 0, len(p.Issues))
		for _, issue := range p.Issues {
			seeds = append(seeds, poker.IssueSeed{
				Title:       string(issue.Title),
				Description: string(issue.Description),
			})
		}
		h.gateway.CreateGame(ctx, connID, p.GameName, p.FacilitatorName, seeds, p.CardPreset)

	case wsmarshaller.ActionJoinGame:
		p, err := wsmarshaller.DecodePayload[wsmarshaller.JoinGamePayload](in.Payload)
		if err != nil {
			break
		}
		h.gateway.JoinGame(ctx, connID, p.GameID, p.PlayerName, p.AsSpectator)

	case wsmarshaller.ActionVote:
		p, err := wsmarshaller.DecodePayload[wsmarshaller.VotePayload](in.Payload)
		if err != nil {
			break
		}
		h.gateway.Vote(ctx, connID, string(p.Value))

	case wsmarshaller.ActionRevealVotes:
		h.gateway.RevealVotes(ctx, connID)

	case wsmarshaller.ActionNextIssue:
		h.gateway.NextIssue(ctx, connID)

	case wsmarshaller.ActionPreviousIssue:
		h.gateway.PreviousIssue(ctx, connID)

	case wsmarshaller.ActionGoToIssue:
		p, err := wsmarshaller.DecodePayload[wsmarshaller.GoToIssuePayload](in.Payload)
		if err != nil {
			break
		}
		h.gateway.GoToIssue(ctx, connID, int(p.Index))

	case wsmarshaller.ActionResetVotes:
		h.gateway.ResetVotes(ctx, connID)

	case wsmarshaller.ActionStartVoteTimer:
		p, err := wsmarshaller.DecodePayload[wsmarshaller.StartVoteTimerPayload](in.Payload)
		if err != nil {
			break
		}
		h.gateway.StartVoteTimer(ctx, connID, int(p.Seconds))

	case wsmarshaller.ActionSetAutoReveal:
		p, err := wsmarshaller.DecodePayload[wsmarshaller.SetAutoRevealPayload](in.Payload)
		if err != nil {
			break
		}
		h.gateway.SetAutoReveal(ctx, connID, p.Enabled)

	case wsmarshaller.ActionAddIssue:
		p, err := wsmarshaller.DecodePayload[wsmarshaller.AddIssuePayload](in.Payload)
		if err != nil {
			break
		}
		h.gateway.AddIssue(ctx, connID, string(p.Title), string(p.Description))

	case wsmarshaller.ActionEditIssue:
		p, err := wsmarshaller.DecodePayload[wsmarshaller.EditIssuePayload](in.Payload)
		if err != nil {
			break
		}
		h.gateway.EditIssue(ctx, connID, string(p.IssueID), looseToString(p.Title), looseToString(p.Description))

	case wsmarshaller.ActionDeleteIssue:
		p, err := wsmarshaller.DecodePayload[wsmarshaller.DeleteIssuePayload](in.Payload)
		if err != nil {
			break
		}
		h.gateway.DeleteIssue(ctx, connID, string(p.IssueID))

	case wsmarshaller.ActionSendEmoji:
		p, err := wsmarshaller.DecodePayload[wsmarshaller.SendEmojiPayload](in.Payload)
		if err != nil {
			break
		}
		h.gateway.SendEmoji(ctx, connID, p.TargetSocketID, p.Emoji)

	default:
		h.logger.Debug("unknown action", "action", in.Action, "conn_id", connID)
	}
}

func (h *WSHandler) writePump(ws *websocket.Conn, conn registry.Connector) {
	ticker := time.NewTicker(h.pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case <-conn.Done():
			_ = ws.SetWriteDeadline(time.Now().Add(h.writeWait))
			_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case frame := <-conn.Recv():
			_ = ws.SetWriteDeadline(time.Now().Add(h.writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.logger.Warn("ws send failed", "conn_id", conn.ID(), "error", err)
				return
			}

		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(h.writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func looseToString(s *wsmarshaller.LooseString) *string {
	if s == nil {
		return nil
	}
	out := string(*s)
	return &out
}
