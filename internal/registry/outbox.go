package registry

import (
	"sync"
)

// queuedFrame is one marshaled envelope waiting to be written.
type queuedFrame struct {
	data      []byte
	msgType   string
	droppable bool
}

// Outbox is a thread-safe bounded ring buffer of outbound frames.
// When full, the oldest droppable frame is shed to make room; a
// non-droppable frame that cannot be queued fails with ErrQueueFull.
type Outbox struct {
	mu       sync.Mutex
	buf      []queuedFrame
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool

	// Stats
	totalQueued  int64
	totalPopped  int64
	totalDropped int64

	// ready carries a wake-up for the writer goroutine.
	ready chan struct{}
}

// NewOutbox creates an outbox with the given fixed capacity.
func NewOutbox(capacity int) *Outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &Outbox{
		buf:      make([]queuedFrame, capacity),
		capacity: capacity,
		ready:    make(chan struct{}, 1),
	}
}

// Push queues a frame. If the outbox is full it sheds the oldest frame,
// provided that frame is droppable; dropped reports the shed frame's
// message type ("" when nothing was shed).
func (b *Outbox) Push(data []byte, msgType string, droppable bool) (dropped string, err error) {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()
		return "", ErrClosed
	}

	if b.count == b.capacity {
		oldest := b.buf[b.head]
		if !oldest.droppable {
			b.mu.Unlock()
			return "", ErrQueueFull
		}
		// Shed the oldest frame
		b.buf[b.head] = queuedFrame{}
		b.head = (b.head + 1) % b.capacity
		b.count--
		b.totalDropped++
		dropped = oldest.msgType
	}

	b.buf[b.tail] = queuedFrame{data: data, msgType: msgType, droppable: droppable}
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.totalQueued++
	b.mu.Unlock()

	// Wake the writer
	select {
	case b.ready <- struct{}{}:
	default:
	}

	return dropped, nil
}

// TryPop removes the oldest frame without blocking.
func (b *Outbox) TryPop() (data []byte, msgType string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil, "", false
	}

	frame := b.buf[b.head]
	b.buf[b.head] = queuedFrame{} // Clear reference for GC
	b.head = (b.head + 1) % b.capacity
	b.count--
	b.totalPopped++

	return frame.data, frame.msgType, true
}

// Ready returns the channel signaled whenever a frame is queued.
func (b *Outbox) Ready() <-chan struct{} {
	return b.ready
}

// Close marks the outbox closed. After closing, Push returns ErrClosed;
// already-queued frames remain poppable.
func (b *Outbox) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Len returns the current number of queued frames.
func (b *Outbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped returns how many frames have been shed so far.
func (b *Outbox) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalDropped
}
