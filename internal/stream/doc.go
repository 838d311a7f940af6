// Package stream implements the Targeted Streamer: account-scoped pushes
// of analytics, portfolio, and price-alert payloads to every live
// connection a user holds.
//
// The streamer never inspects the payload; callers hand it opaque JSON
// and it wraps, stamps, and fans it out. Alerts are never shed under
// backpressure.
package stream
