package registry

import (
	"sync"

	"github.com/google/uuid"
)

// Interface guard
var _ Connector = (*connect)(nil)

// Connector is the hub's view of one live client connection. Frames are
// pre-marshaled by the dispatcher so each event is encoded once per
// session, not once per connection.
type Connector interface {
	ID() string
	// Send enqueues a frame without blocking. Returns false when the
	// connection is closed or its buffer is saturated (slow consumer).
	Send(frame []byte) bool
	Recv() <-chan []byte
	// Done is closed when the connection is shut down; write pumps select
	// on it instead of relying on channel closure.
	Done() <-chan struct{}
	Close()
}

type connect struct {
	id        string
	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewConnector allocates a connection with the given send buffer.
func NewConnector(bufferSize int) Connector {
	return &connect{
		id:     uuid.NewString(),
		sendCh: make(chan []byte, bufferSize),
		done:   make(chan struct{}),
	}
}

func (c *connect) ID() string { return c.id }

func (c *connect) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.sendCh <- frame:
		return true
	default:
		// Saturated buffer: drop rather than stall the fan-out. The client
		// converges on the next full snapshot anyway.
		return false
	}
}

func (c *connect) Recv() <-chan []byte { return c.sendCh }

func (c *connect) Done() <-chan struct{} { return c.done }

// Close is idempotent; it may race with the hub's shutdown, the write
// pump's exit and the read pump's defer.
func (c *connect) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
