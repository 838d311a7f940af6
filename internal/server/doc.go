// Package server implements the WebSocket endpoint and the Protocol
// Handler that dispatches client frames.
//
// Each accepted connection is registered with the Connection Registry and
// acknowledged with a CONNECTED envelope, then served by a per-connection
// read loop. Client errors (malformed JSON, unknown commodities) are
// answered with ERROR envelopes without dropping the connection; unknown
// frame types are logged and ignored. Only transport failures and idle
// timeouts end a session.
package server
