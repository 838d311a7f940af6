// Package router implements the Pub/Sub Router component.
//
// The router fans a published envelope out to every connection subscribed
// to the topic, via the registry's inverted index:
//   - One marshal per publish, one enqueue per subscriber
//   - Sequential publishes to one topic arrive FIFO at each connection
//   - A dead subscriber never aborts delivery to the rest
package router
