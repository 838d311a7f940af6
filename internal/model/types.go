package model

import (
	"time"

	"github.com/google/uuid"
)

// TickMetrics holds the published per-commodity market metrics.
type TickMetrics struct {
	Price     float64   `json:"price"`     // Last simulated price (> 0)
	Volume    int64     `json:"volume"`    // Traded volume (>= min volume)
	Change    float64   `json:"change"`    // Percent change vs previous tick
	High24h   float64   `json:"high_24h"`  // Running 24h high
	Low24h    float64   `json:"low_24h"`   // Running 24h low
	Timestamp time.Time `json:"timestamp"` // Tick time, strictly increasing per symbol
}

// CommodityTick is the current market state for one commodity.
// The simulator owns the canonical copy; every other component sees snapshots.
type CommodityTick struct {
	Symbol string `json:"symbol"` // e.g. "crude_oil"
	TickMetrics
}

// TradeSide is the side of a synthetic trade.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// TradingActivityEvent is an ephemeral synthetic trade. Never persisted.
type TradingActivityEvent struct {
	ID        uuid.UUID `json:"id"`
	Commodity string    `json:"commodity"`
	Side      TradeSide `json:"side"`
	Quantity  float64   `json:"quantity"` // Positive, 2 decimals
	Price     float64   `json:"price"`    // Positive, 2 decimals
	Location  string    `json:"location"` // Trading hub, e.g. "houston"
	Timestamp time.Time `json:"timestamp"`
}
