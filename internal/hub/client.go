package hub

import (
	"sync"

	"github.com/aidarkhanov/nanoid/v2"
)

const DefaultSendBuffer = 256

// Client is one live connection. Frames queued on it are written by the
// connection's writer goroutine in FIFO order.
type Client struct {
	ID     string
	UserID string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClient(userID string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	id, err := nanoid.New()
	if err != nil {
		id = userID
	}
	return &Client{ID: id, UserID: userID, send: make(chan []byte, buffer)}
}

// Send is the outbound queue. It is closed once the client is closed.
func (c *Client) Send() <-chan []byte { return c.send }

// enqueue never blocks; it reports false when the client is closed or its
// buffer is full.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
