package dispatch

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/voterlab/poker-session-service/internal/adapter/pubsub"
)

func NewRouter(logger watermill.LoggerAdapter) (*message.Router, error) {
	return message.NewRouter(message.RouterConfig{}, logger)
}

// RegisterHandlers wires the outbound topic into the delivery handler.
// Delivery is at-most-once per event: a panic is recovered and the event
// dropped rather than redelivered out of order.
func RegisterHandlers(router *message.Router, sub message.Subscriber, h *DeliveryHandler, logger *slog.Logger) {
	router.AddNoPublisherHandler(
		"deliver-outbound",
		pubsub.OutboundTopic,
		sub,
		h.OnOutboundEvent,
	).AddMiddleware(
		middleware.Recoverer,
		LoggingMiddleware(logger),
	)
}
