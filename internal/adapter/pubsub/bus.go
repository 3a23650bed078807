package pubsub

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// NewBus builds the in-process GoChannel pubsub. One process, one bus:
// multi-node coordination is explicitly out of scope, so the watermill
// router runs on channels instead of a broker.
func NewBus(buffer int, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(buffer),
	}, logger)
}
