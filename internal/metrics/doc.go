// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Live connection count and registered topic count
//   - Outbound envelope counts by type, plus dropped and failed sends
//   - Inbound frame and decode-error counts
//   - Simulator tick counts and tick duration
package metrics
