// Package registry implements the Connection Registry component.
//
// The registry:
//   - Tracks every live streaming connection, its owning user, and its
//     topic subscription set
//   - Maintains an inverted topic index so fan-out is O(subscribers)
//   - Owns one writer goroutine per connection draining a bounded outbox
//   - Sheds stale market data under backpressure, never account-scoped
//     messages
//   - Removes a connection from every index atomically with closing its
//     transport
package registry
