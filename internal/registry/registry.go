package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/petrolink/marketstream/internal/metrics"
	"github.com/petrolink/marketstream/internal/model"
)

// Registry is the single source of truth for who is connected and to what.
type Registry interface {
	// Register accepts a transport and returns the new connection's id.
	// The connection is eligible to receive messages immediately.
	Register(t Transport, userID string) string

	// Unregister removes every index entry for the connection and closes
	// its transport. Idempotent; unknown ids are a no-op.
	Unregister(connID string)

	// SendTo queues an envelope for one connection. Unknown ids are a
	// no-op. A connection that cannot accept the envelope is unregistered
	// and the error returned.
	SendTo(connID string, msg model.Outbound) error

	// SendToUser queues an envelope for every connection of a user.
	// Failure on one connection never blocks delivery to the others.
	SendToUser(userID string, msg model.Outbound)

	// SendRaw queues an already-marshaled envelope for one connection.
	SendRaw(connID string, data []byte, msgType string) error

	// Subscribe adds the topic to the connection's subscription set.
	Subscribe(connID, topic string)

	// Unsubscribe removes the topic; idempotent.
	Unsubscribe(connID, topic string)

	// SubscribersOf returns the ids of connections subscribed to a topic.
	SubscribersOf(topic string) []string

	// Count returns the number of registered connections.
	Count() int

	// Stats returns current registry statistics.
	Stats() Stats

	// Stop unregisters everything and waits for writer goroutines.
	Stop(ctx context.Context) error
}

// registryImpl implements the Registry interface.
type registryImpl struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	conns  map[string]*Conn
	byUser map[string]map[string]*Conn // user id → conn id → conn
	topics map[string]map[string]*Conn // topic → conn id → conn

	wg sync.WaitGroup
}

// NewRegistry creates a new Connection Registry.
func NewRegistry(cfg Config, m *metrics.Metrics, logger *slog.Logger) Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &registryImpl{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		conns:   make(map[string]*Conn),
		byUser:  make(map[string]map[string]*Conn),
		topics:  make(map[string]map[string]*Conn),
	}
}

// Register accepts a transport and indexes the new connection.
func (r *registryImpl) Register(t Transport, userID string) string {
	c := &Conn{
		id:        uuid.NewString(),
		userID:    userID,
		transport: t,
		outbox:    NewOutbox(r.cfg.OutboundQueueSize),
		topics:    make(map[string]struct{}),
		done:      make(chan struct{}),
	}

	r.mu.Lock()
	r.conns[c.id] = c
	if userID != "" {
		if r.byUser[userID] == nil {
			r.byUser[userID] = make(map[string]*Conn)
		}
		r.byUser[userID][c.id] = c
	}
	total := len(r.conns)
	r.mu.Unlock()

	r.metrics.Connections.Set(float64(total))

	r.wg.Add(1)
	go r.writePump(c)

	r.logger.Debug("connection registered",
		"conn_id", c.id,
		"user_id", userID,
		"total", total,
	)

	return c.id
}

// Unregister removes all index entries and closes the transport.
func (r *registryImpl) Unregister(connID string) {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}

	delete(r.conns, connID)
	if c.userID != "" {
		if userConns := r.byUser[c.userID]; userConns != nil {
			delete(userConns, connID)
			if len(userConns) == 0 {
				delete(r.byUser, c.userID)
			}
		}
	}
	for topic := range c.topics {
		if subs := r.topics[topic]; subs != nil {
			delete(subs, connID)
			if len(subs) == 0 {
				delete(r.topics, topic)
			}
		}
	}
	total := len(r.conns)
	topicCount := len(r.topics)
	r.mu.Unlock()

	c.close()

	r.metrics.Connections.Set(float64(total))
	r.metrics.Topics.Set(float64(topicCount))

	r.logger.Debug("connection unregistered",
		"conn_id", connID,
		"user_id", c.userID,
		"total", total,
	)
}

// SendTo marshals and queues an envelope for one connection.
func (r *registryImpl) SendTo(connID string, msg model.Outbound) error {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("failed to marshal envelope", "type", msg.EnvelopeType(), "error", err)
		return err
	}
	return r.SendRaw(connID, data, msg.EnvelopeType())
}

// SendRaw queues an already-marshaled envelope for one connection.
func (r *registryImpl) SendRaw(connID string, data []byte, msgType string) error {
	r.mu.RLock()
	c, ok := r.conns[connID]
	r.mu.RUnlock()
	if !ok {
		// Operating on an unregistered id is a no-op, never fatal.
		return nil
	}

	dropped, err := c.enqueue(data, msgType, model.Droppable(msgType))
	if dropped != "" {
		r.metrics.MessagesDropped.WithLabelValues(dropped).Inc()
	}
	if err != nil {
		// A connection that cannot be written to is dead.
		r.logger.Warn("send failed, dropping connection",
			"conn_id", connID,
			"type", msgType,
			"error", err,
		)
		r.metrics.SendFailures.Inc()
		r.Unregister(connID)
		return err
	}

	r.metrics.MessagesSent.WithLabelValues(msgType).Inc()
	return nil
}

// SendToUser queues an envelope for every connection of a user.
func (r *registryImpl) SendToUser(userID string, msg model.Outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("failed to marshal envelope", "type", msg.EnvelopeType(), "error", err)
		return
	}

	r.mu.RLock()
	ids := make([]string, 0, len(r.byUser[userID]))
	for id := range r.byUser[userID] {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		// Partial failure is isolated per connection.
		r.SendRaw(id, data, msg.EnvelopeType())
	}
}

// Subscribe adds a topic to the connection's subscription set.
func (r *registryImpl) Subscribe(connID, topic string) {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	c.topics[topic] = struct{}{}
	if r.topics[topic] == nil {
		r.topics[topic] = make(map[string]*Conn)
	}
	r.topics[topic][connID] = c
	topicCount := len(r.topics)
	r.mu.Unlock()

	r.metrics.Topics.Set(float64(topicCount))
}

// Unsubscribe removes a topic from the connection's subscription set.
func (r *registryImpl) Unsubscribe(connID, topic string) {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(c.topics, topic)
	if subs := r.topics[topic]; subs != nil {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(r.topics, topic)
		}
	}
	topicCount := len(r.topics)
	r.mu.Unlock()

	r.metrics.Topics.Set(float64(topicCount))
}

// SubscribersOf returns a snapshot of the topic's subscriber ids.
func (r *registryImpl) SubscribersOf(topic string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.topics[topic]
	if len(subs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of registered connections.
func (r *registryImpl) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Stats returns current statistics.
func (r *registryImpl) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		Connections: len(r.conns),
		Users:       len(r.byUser),
		Topics:      len(r.topics),
	}
}

// Stop unregisters every connection and waits for writer goroutines.
func (r *registryImpl) Stop(ctx context.Context) error {
	r.mu.RLock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.Unregister(id)
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("connection registry stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("registry stop timed out")
		return ctx.Err()
	}
}

// writePump drains one connection's outbox onto its transport. The single
// writer per connection preserves FIFO order and serializes all socket
// writes, including pings.
func (r *registryImpl) writePump(c *Conn) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case <-ticker.C:
			c.transport.SetWriteDeadline(time.Now().Add(r.cfg.WriteTimeout))
			if err := c.transport.WriteMessage(websocket.PingMessage, nil); err != nil {
				r.logger.Debug("ping failed", "conn_id", c.id, "error", err)
				r.Unregister(c.id)
				return
			}

		case <-c.outbox.Ready():
			for {
				data, msgType, ok := c.outbox.TryPop()
				if !ok {
					break
				}
				c.transport.SetWriteDeadline(time.Now().Add(r.cfg.WriteTimeout))
				if err := c.transport.WriteMessage(websocket.TextMessage, data); err != nil {
					r.logger.Debug("write failed",
						"conn_id", c.id,
						"type", msgType,
						"error", err,
					)
					r.metrics.SendFailures.Inc()
					r.Unregister(c.id)
					return
				}
			}
		}
	}
}
