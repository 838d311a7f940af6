package registry

import (
	"errors"
	"time"
)

// Config holds Connection Registry settings.
type Config struct {
	// OutboundQueueSize bounds each connection's outbox.
	OutboundQueueSize int

	// WriteTimeout is the per-frame write deadline.
	WriteTimeout time.Duration

	// PingInterval is how often the writer goroutine pings the peer.
	// Must be shorter than the server's idle window.
	PingInterval time.Duration
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		OutboundQueueSize: 256,
		WriteTimeout:      10 * time.Second,
		PingInterval:      54 * time.Second,
	}
}

// Stats provides statistics about the registry.
type Stats struct {
	Connections int
	Users       int
	Topics      int
}

// Transport is the server side of one client's socket. A *websocket.Conn
// satisfies it. Exclusively owned by the connection that wraps it.
type Transport interface {
	// WriteMessage writes a single frame of the given WebSocket message
	// type. Only one goroutine may be inside WriteMessage at a time.
	WriteMessage(messageType int, data []byte) error

	// WriteControl writes a control frame with the given deadline. Safe
	// to call concurrently with WriteMessage.
	WriteControl(messageType int, data []byte, deadline time.Time) error

	// SetWriteDeadline bounds the next write.
	SetWriteDeadline(t time.Time) error

	// Close closes the underlying network connection.
	Close() error
}

var (
	// ErrClosed is returned when sending on a connection whose transport
	// is already gone.
	ErrClosed = errors.New("connection closed")

	// ErrQueueFull is returned when a non-droppable envelope cannot be
	// queued; the connection is considered too slow to keep.
	ErrQueueFull = errors.New("outbound queue full")
)
