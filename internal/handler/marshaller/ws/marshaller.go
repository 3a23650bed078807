// Package wsmarshaller is the websocket wire codec: inbound action
// envelopes from clients, outbound event frames to clients.
package wsmarshaller

import (
	"encoding/json"
	"fmt"
)

// Frame is the outbound envelope. Payload is already-encoded JSON.
type Frame struct {
	Event   string          `json:"event"`
	ID      string          `json:"id"`
	SentAt  int64           `json:"sent_at"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeFrame wraps a pre-marshaled payload into the outbound envelope.
func EncodeFrame(eventName, id string, sentAt int64, payload []byte) ([]byte, error) {
	return json.Marshal(&Frame{
		Event:   eventName,
		ID:      id,
		SentAt:  sentAt,
		Payload: payload,
	})
}

// Inbound is one client action: a name plus an action-specific payload,
// decoded in a second step so unknown actions fail cheaply.
type Inbound struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeInbound parses the inbound envelope.
func DecodeInbound(data []byte) (*Inbound, error) {
	in := &Inbound{}
	if err := json.Unmarshal(data, in); err != nil {
		return nil, fmt.Errorf("decode inbound envelope: %w", err)
	}
	if in.Action == "" {
		return nil, fmt.Errorf("inbound envelope without action")
	}
	return in, nil
}

// DecodePayload decodes an action payload. A missing payload yields the
// zero value, matching clients that omit empty objects.
func DecodePayload[T any](raw json.RawMessage) (T, error) {
	var payload T
	if len(raw) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}
