package registry

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one live streaming connection. The transport handle is owned
// exclusively by this Conn; all writes go through the outbox and the
// registry's writer goroutine.
type Conn struct {
	id     string
	userID string // "" for anonymous viewers

	transport Transport
	outbox    *Outbox

	// topics is this connection's subscription set. Guarded by the
	// registry mutex; never mutated elsewhere.
	topics map[string]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// ID returns the connection's opaque identifier.
func (c *Conn) ID() string {
	return c.id
}

// UserID returns the owning user id, or "" for anonymous connections.
func (c *Conn) UserID() string {
	return c.userID
}

// enqueue pushes a marshaled envelope onto the outbox. dropped names the
// message type shed to make room, if any.
func (c *Conn) enqueue(data []byte, msgType string, droppable bool) (dropped string, err error) {
	return c.outbox.Push(data, msgType, droppable)
}

// close tears down the transport exactly once. Safe to call from any
// goroutine; later calls are no-ops. The writer goroutine owns
// WriteMessage, so the close frame goes through WriteControl, which may
// run alongside an in-flight data write.
func (c *Conn) close() {
	c.closeOnce.Do(func() {
		c.outbox.Close()
		close(c.done)

		// Best-effort close frame; the peer may already be gone.
		c.transport.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.transport.Close()
	})
}

// Done is closed when the connection has been torn down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}
