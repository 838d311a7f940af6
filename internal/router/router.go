package router

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/petrolink/marketstream/internal/model"
	"github.com/petrolink/marketstream/internal/registry"
)

// Router fans published envelopes out to topic subscribers.
type Router interface {
	// Publish delivers the envelope to every subscriber of the topic and
	// returns how many connections it was queued for.
	Publish(topic string, msg model.Outbound) int

	// Stats returns current router statistics.
	Stats() Stats
}

// Stats contains runtime statistics.
type Stats struct {
	Published  int64
	Delivered  int64
	SendErrors int64
}

// routerImpl is the internal implementation.
type routerImpl struct {
	reg    registry.Registry
	logger *slog.Logger

	mu         sync.Mutex
	published  int64
	delivered  int64
	sendErrors int64
}

// NewRouter creates a new Pub/Sub Router over the given registry.
func NewRouter(reg registry.Registry, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &routerImpl{
		reg:    reg,
		logger: logger,
	}
}

// Publish delivers one envelope to every subscriber of the topic.
func (r *routerImpl) Publish(topic string, msg model.Outbound) int {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("failed to marshal envelope",
			"topic", topic,
			"type", msg.EnvelopeType(),
			"error", err,
		)
		return 0
	}

	subs := r.reg.SubscribersOf(topic)

	delivered := 0
	failed := 0
	for _, connID := range subs {
		// A failed subscriber is unregistered by the registry; keep going.
		if err := r.reg.SendRaw(connID, data, msg.EnvelopeType()); err != nil {
			failed++
			continue
		}
		delivered++
	}

	r.mu.Lock()
	r.published++
	r.delivered += int64(delivered)
	r.sendErrors += int64(failed)
	r.mu.Unlock()

	return delivered
}

// Stats returns current statistics.
func (r *routerImpl) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Stats{
		Published:  r.published,
		Delivered:  r.delivered,
		SendErrors: r.sendErrors,
	}
}
