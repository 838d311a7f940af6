// Package model defines shared data types for the market-data stream engine.
//
// Conventions:
//   - Prices and quantities: float64 dollars, rounded to 2 decimals before
//     publication
//   - Timestamps: time.Time, RFC 3339 on the wire
//   - Wire envelopes: JSON with a "type" discriminator and snake_case keys
package model
