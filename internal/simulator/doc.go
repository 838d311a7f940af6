// Package simulator implements the Commodity State Store and the Market
// Simulator component.
//
// The simulator is the single writer of commodity state. Each tick it:
//   - Walks every commodity's price (bounded random walk) and volume
//   - Publishes one MARKET_UPDATE per commodity to its own topic and to
//     the aggregate topic
//   - Publishes a handful of synthetic TRADING_ACTIVITY events
//
// Readers only ever see snapshot copies; price stays positive and volume
// never falls below the configured floor.
package simulator
