// Package metrics provides Prometheus metrics for the session engine.
//
// Key metrics:
//   - Connection state and reconnect counts per socket
//   - Outbound queue depth and replayed intents
//   - Frames sent and received by kind
//   - Method call outcomes and latency
//   - Live subscriptions and queries
package metrics
