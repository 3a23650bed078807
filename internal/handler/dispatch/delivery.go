// Package dispatch consumes the outbound event topic and routes frames
// into the hub: room-scoped events fan out to every connection in the
// session, targeted events reach exactly one connection.
package dispatch

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/voterlab/poker-session-service/internal/adapter/pubsub"
	"github.com/voterlab/poker-session-service/internal/domain/event"
	"github.com/voterlab/poker-session-service/internal/domain/registry"
	wsmarshaller "github.com/voterlab/poker-session-service/internal/handler/marshaller/ws"
)

type DeliveryHandler struct {
	hub    *registry.Hub
	logger *slog.Logger
}

func NewDeliveryHandler(hub *registry.Hub, logger *slog.Logger) *DeliveryHandler {
	return &DeliveryHandler{hub: hub, logger: logger}
}

// OnOutboundEvent turns one bus message into a client frame and delivers
// it. The payload arrives pre-marshaled; the frame envelope is built once
// per event, not once per connection.
func (h *DeliveryHandler) OnOutboundEvent(msg *message.Message) error {
	name := msg.Metadata.Get(pubsub.MetaEvent)
	target := msg.Metadata.Get(pubsub.MetaTarget)
	if name == "" || target == "" {
		h.logger.Warn("outbound event missing routing metadata", "msg_id", msg.UUID)
		return nil // terminal: nothing to retry
	}
	sentAt, _ := strconv.ParseInt(msg.Metadata.Get(pubsub.MetaOccurredAt), 10, 64)

	frame, err := wsmarshaller.EncodeFrame(name, msg.UUID, sentAt, msg.Payload)
	if err != nil {
		h.logger.Error("frame encode failed", "event", name, "error", err)
		return nil
	}

	switch event.Scope(msg.Metadata.Get(pubsub.MetaScope)) {
	case event.ScopeRoom:
		h.hub.BroadcastRoom(target, frame)
	case event.ScopeConn:
		h.hub.SendTo(target, frame)
	default:
		return fmt.Errorf("unknown event scope %q", msg.Metadata.Get(pubsub.MetaScope))
	}
	return nil
}
