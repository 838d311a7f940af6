package stream

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/petrolink/marketstream/internal/model"
	"github.com/petrolink/marketstream/internal/registry"
)

// Stats provides statistics about the streamer.
type Stats struct {
	AnalyticsPushed int64
	PortfolioPushed int64
	AlertsPushed    int64
}

// Streamer pushes account-scoped payloads to a user's connections.
type Streamer interface {
	// PushAnalytics sends an ANALYTICS_UPDATE to every connection of the
	// user. The payload is forwarded verbatim.
	PushAnalytics(userID string, payload json.RawMessage)

	// PushPortfolio sends a PORTFOLIO_UPDATE to every connection of the
	// user.
	PushPortfolio(userID string, payload json.RawMessage)

	// PushAlert sends a PRICE_ALERT to every connection of the user.
	PushAlert(userID string, alert json.RawMessage)

	// Stats returns current streamer statistics.
	Stats() Stats
}

// streamerImpl implements the Streamer interface.
type streamerImpl struct {
	reg    registry.Registry
	logger *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// NewStreamer creates a new Targeted Streamer over the given registry.
func NewStreamer(reg registry.Registry, logger *slog.Logger) Streamer {
	if logger == nil {
		logger = slog.Default()
	}
	return &streamerImpl{reg: reg, logger: logger}
}

// PushAnalytics fans an analytics payload out to the user's connections.
func (s *streamerImpl) PushAnalytics(userID string, payload json.RawMessage) {
	s.reg.SendToUser(userID, model.NewAnalyticsUpdate(payload))
	s.logger.Debug("analytics pushed", "user_id", userID, "bytes", len(payload))

	s.mu.Lock()
	s.stats.AnalyticsPushed++
	s.mu.Unlock()
}

// PushPortfolio fans a portfolio payload out to the user's connections.
func (s *streamerImpl) PushPortfolio(userID string, payload json.RawMessage) {
	s.reg.SendToUser(userID, model.NewPortfolioUpdate(payload))
	s.logger.Debug("portfolio pushed", "user_id", userID, "bytes", len(payload))

	s.mu.Lock()
	s.stats.PortfolioPushed++
	s.mu.Unlock()
}

// PushAlert fans a triggered price alert out to the user's connections.
func (s *streamerImpl) PushAlert(userID string, alert json.RawMessage) {
	s.reg.SendToUser(userID, model.NewPriceAlert(alert))
	s.logger.Debug("price alert pushed", "user_id", userID, "bytes", len(alert))

	s.mu.Lock()
	s.stats.AlertsPushed++
	s.mu.Unlock()
}

// Stats returns current statistics.
func (s *streamerImpl) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
