// Package pubsub bridges the gateway to the in-process watermill bus. The
// gateway publishes outbound events here; the dispatch handler consumes
// them and routes frames into the hub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/voterlab/poker-session-service/internal/domain/event"
)

// OutboundTopic carries every client-bound event.
const OutboundTopic = "poker.events.outbound"

// Metadata keys on outbound bus messages.
const (
	MetaScope      = "scope"
	MetaTarget     = "target"
	MetaEvent      = "event"
	MetaOccurredAt = "occurred_at"
)

// EventDispatcher is the high-level contract for outgoing events, keeping
// the gateway agnostic of the bus implementation.
type EventDispatcher interface {
	Publish(ctx context.Context, ev *event.Event) error
}

type eventDispatcher struct {
	publisher message.Publisher
}

func NewEventDispatcher(pub message.Publisher) EventDispatcher {
	return &eventDispatcher{publisher: pub}
}

// Publish marshals the event payload exactly once and ships it with
// routing metadata. Callers invoke this while holding the transition lock,
// so the marshaled snapshot can never interleave with a later mutation.
func (d *eventDispatcher) Publish(ctx context.Context, ev *event.Event) error {
	if ev == nil {
		return fmt.Errorf("event dispatcher: cannot publish nil event")
	}

	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("event dispatcher: marshal failure: %w", err)
	}

	msg := message.NewMessage(ev.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetaScope, string(ev.Scope))
	msg.Metadata.Set(MetaTarget, ev.Target)
	msg.Metadata.Set(MetaEvent, ev.Name)
	msg.Metadata.Set(MetaOccurredAt, strconv.FormatInt(ev.OccurredAt, 10))

	if err := d.publisher.Publish(OutboundTopic, msg); err != nil {
		return fmt.Errorf("event dispatcher: publish %s: %w", ev.Name, err)
	}
	return nil
}
