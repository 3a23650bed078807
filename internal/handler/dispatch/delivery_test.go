package dispatch

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voterlab/poker-session-service/internal/adapter/pubsub"
	"github.com/voterlab/poker-session-service/internal/domain/event"
	"github.com/voterlab/poker-session-service/internal/domain/registry"
	wsmarshaller "github.com/voterlab/poker-session-service/internal/handler/marshaller/ws"
)

func outboundMessage(name string, scope event.Scope, target string, payload []byte) *message.Message {
	msg := message.NewMessage("ev-1", payload)
	msg.Metadata.Set(pubsub.MetaEvent, name)
	msg.Metadata.Set(pubsub.MetaScope, string(scope))
	msg.Metadata.Set(pubsub.MetaTarget, target)
	msg.Metadata.Set(pubsub.MetaOccurredAt, "1756000000000")
	return msg
}

func receivedFrame(t *testing.T, conn registry.Connector) *wsmarshaller.Frame {
	t.Helper()
	select {
	case raw := <-conn.Recv():
		frame := &wsmarshaller.Frame{}
		require.NoError(t, json.Unmarshal(raw, frame))
		return frame
	default:
		t.Fatal("expected a frame")
		return nil
	}
}

func TestRoomEventFansOut(t *testing.T) {
	hub := registry.NewHub()
	h := NewDeliveryHandler(hub, slog.New(slog.NewTextHandler(io.Discard, nil)))

	a, b := registry.NewConnector(4), registry.NewConnector(4)
	hub.Register(a)
	hub.Register(b)
	hub.Bind(a.ID(), "game-1", registry.RoleParticipant)
	hub.Bind(b.ID(), "game-1", registry.RoleSpectator)

	err := h.OnOutboundEvent(outboundMessage(event.GameState, event.ScopeRoom, "game-1", []byte(`{"id":"game-1"}`)))
	require.NoError(t, err)

	for _, conn := range []registry.Connector{a, b} {
		frame := receivedFrame(t, conn)
		assert.Equal(t, event.GameState, frame.Event)
		assert.Equal(t, "ev-1", frame.ID)
		assert.Equal(t, int64(1756000000000), frame.SentAt)
		assert.JSONEq(t, `{"id":"game-1"}`, string(frame.Payload))
	}
}

func TestTargetedEventReachesOneConnection(t *testing.T) {
	hub := registry.NewHub()
	h := NewDeliveryHandler(hub, slog.New(slog.NewTextHandler(io.Discard, nil)))

	a, b := registry.NewConnector(4), registry.NewConnector(4)
	hub.Register(a)
	hub.Register(b)
	hub.Bind(a.ID(), "game-1", registry.RoleParticipant)
	hub.Bind(b.ID(), "game-1", registry.RoleParticipant)

	err := h.OnOutboundEvent(outboundMessage(event.EmojiReceived, event.ScopeConn, a.ID(), []byte(`{"emoji":"🔥"}`)))
	require.NoError(t, err)

	frame := receivedFrame(t, a)
	assert.Equal(t, event.EmojiReceived, frame.Event)
	select {
	case <-b.Recv():
		t.Fatal("targeted event must not reach other connections")
	default:
	}
}

func TestMissingMetadataIsTerminal(t *testing.T) {
	hub := registry.NewHub()
	h := NewDeliveryHandler(hub, slog.New(slog.NewTextHandler(io.Discard, nil)))

	msg := message.NewMessage("ev-1", []byte(`{}`))
	assert.NoError(t, h.OnOutboundEvent(msg), "unroutable messages are dropped, not retried")
}

func TestUnknownScopeErrors(t *testing.T) {
	hub := registry.NewHub()
	h := NewDeliveryHandler(hub, slog.New(slog.NewTextHandler(io.Discard, nil)))

	msg := outboundMessage(event.GameState, "mesh", "game-1", []byte(`{}`))
	assert.Error(t, h.OnOutboundEvent(msg))
}
