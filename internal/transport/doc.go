// Package transport defines the byte-level connection the session engine
// runs over, and provides a WebSocket implementation.
//
// A Transport is single-use: Open starts one connection attempt, and the
// Listener sees at most one OnOpen followed by exactly one OnClose.
// Reconnecting means building a new Transport from the Factory.
package transport
