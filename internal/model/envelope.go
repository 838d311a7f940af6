package model

import (
	"encoding/json"
	"time"
)

// Message types sent by clients.
const (
	TypeSubscribe      = "SUBSCRIBE"
	TypeUnsubscribe    = "UNSUBSCRIBE"
	TypeGetCurrentData = "GET_CURRENT_DATA"
	TypePing           = "PING"
)

// Message types sent by the server.
const (
	TypeConnected             = "CONNECTED"
	TypeSubscriptionConfirmed = "SUBSCRIPTION_CONFIRMED"
	TypeCurrentData           = "CURRENT_DATA"
	TypeMarketUpdate          = "MARKET_UPDATE"
	TypeTradingActivity       = "TRADING_ACTIVITY"
	TypeAnalyticsUpdate       = "ANALYTICS_UPDATE"
	TypePortfolioUpdate       = "PORTFOLIO_UPDATE"
	TypePriceAlert            = "PRICE_ALERT"
	TypePong                  = "PONG"
	TypeError                 = "ERROR"
)

// Topic name construction. Any string a client sends is a valid topic;
// these are the ones the simulator publishes to.
const (
	TopicMarketDataAll   = "market_data_all"
	TopicTradingActivity = "trading_activity"

	marketDataPrefix = "market_data_"
)

// MarketDataTopic returns the per-commodity broadcast topic.
func MarketDataTopic(symbol string) string {
	return marketDataPrefix + symbol
}

// Droppable reports whether an envelope of the given type may be shed under
// backpressure. Only high-frequency broadcast data qualifies; account-scoped
// messages such as PRICE_ALERT must never be dropped.
func Droppable(msgType string) bool {
	switch msgType {
	case TypeMarketUpdate, TypeTradingActivity:
		return true
	}
	return false
}

// Outbound is implemented by every server-to-client envelope.
type Outbound interface {
	// EnvelopeType returns the wire "type" discriminator.
	EnvelopeType() string
}

// Connected acknowledges a freshly registered connection.
type Connected struct {
	Type         string    `json:"type"`
	ConnectionID string    `json:"connection_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// SubscriptionConfirmed echoes the topics that were actually subscribed.
type SubscriptionConfirmed struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics"`
}

// CurrentData answers GET_CURRENT_DATA with one or all commodity ticks,
// keyed by symbol.
type CurrentData struct {
	Type      string                   `json:"type"`
	Data      map[string]CommodityTick `json:"data"`
	Timestamp time.Time                `json:"timestamp"`
}

// MarketUpdate broadcasts one commodity's fresh tick.
type MarketUpdate struct {
	Type      string      `json:"type"`
	Commodity string      `json:"commodity"`
	Metrics   TickMetrics `json:"metrics"`
}

// TradingActivity broadcasts one synthetic trade.
type TradingActivity struct {
	Type string               `json:"type"`
	Data TradingActivityEvent `json:"data"`
}

// AnalyticsUpdate carries account-scoped analytics state.
type AnalyticsUpdate struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// PortfolioUpdate carries account-scoped portfolio state.
type PortfolioUpdate struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// PriceAlert carries a triggered alert for one user.
type PriceAlert struct {
	Type      string          `json:"type"`
	Alert     json.RawMessage `json:"alert"`
	Timestamp time.Time       `json:"timestamp"`
}

// Pong answers a client PING.
type Pong struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorMessage reports a recoverable protocol error to the client.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (Connected) EnvelopeType() string             { return TypeConnected }
func (SubscriptionConfirmed) EnvelopeType() string { return TypeSubscriptionConfirmed }
func (CurrentData) EnvelopeType() string           { return TypeCurrentData }
func (MarketUpdate) EnvelopeType() string          { return TypeMarketUpdate }
func (TradingActivity) EnvelopeType() string       { return TypeTradingActivity }
func (AnalyticsUpdate) EnvelopeType() string       { return TypeAnalyticsUpdate }
func (PortfolioUpdate) EnvelopeType() string       { return TypePortfolioUpdate }
func (PriceAlert) EnvelopeType() string            { return TypePriceAlert }
func (Pong) EnvelopeType() string                  { return TypePong }
func (ErrorMessage) EnvelopeType() string          { return TypeError }

// InboundFrame is the wire format of every client-to-server frame.
// Fields beyond Type are populated per frame type.
type InboundFrame struct {
	Type      string   `json:"type"`
	Topics    []string `json:"topics,omitempty"`    // SUBSCRIBE / UNSUBSCRIBE
	Commodity string   `json:"commodity,omitempty"` // GET_CURRENT_DATA
}

// NewConnected builds a CONNECTED envelope.
func NewConnected(connectionID string) Connected {
	return Connected{Type: TypeConnected, ConnectionID: connectionID, Timestamp: time.Now().UTC()}
}

// NewMarketUpdate builds a MARKET_UPDATE envelope for one tick.
func NewMarketUpdate(tick CommodityTick) MarketUpdate {
	return MarketUpdate{Type: TypeMarketUpdate, Commodity: tick.Symbol, Metrics: tick.TickMetrics}
}

// NewTradingActivity builds a TRADING_ACTIVITY envelope for one event.
func NewTradingActivity(ev TradingActivityEvent) TradingActivity {
	return TradingActivity{Type: TypeTradingActivity, Data: ev}
}

// NewAnalyticsUpdate builds an ANALYTICS_UPDATE envelope.
func NewAnalyticsUpdate(payload json.RawMessage) AnalyticsUpdate {
	return AnalyticsUpdate{Type: TypeAnalyticsUpdate, Data: payload, Timestamp: time.Now().UTC()}
}

// NewPortfolioUpdate builds a PORTFOLIO_UPDATE envelope.
func NewPortfolioUpdate(payload json.RawMessage) PortfolioUpdate {
	return PortfolioUpdate{Type: TypePortfolioUpdate, Data: payload, Timestamp: time.Now().UTC()}
}

// NewPriceAlert builds a PRICE_ALERT envelope.
func NewPriceAlert(alert json.RawMessage) PriceAlert {
	return PriceAlert{Type: TypePriceAlert, Alert: alert, Timestamp: time.Now().UTC()}
}

// NewPong builds a PONG envelope.
func NewPong() Pong {
	return Pong{Type: TypePong, Timestamp: time.Now().UTC()}
}

// NewError builds an ERROR envelope.
func NewError(message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: message}
}
