// Package session implements the client side of a DDP session.
//
// A Session multiplexes method calls, subscriptions and queries over one or
// more logical sockets. Each socket runs a small state machine
// (disconnected, connecting, connected) and keeps a queue of intents that
// were issued while it was not connected; the queue is replayed in order
// once the server acknowledges the handshake.
//
// All state is owned by a single event loop goroutine. Public methods,
// transport callbacks, timers and token store continuations are posted to
// the loop's mailbox and applied one at a time. Inbound frames pass through
// a fixed pipeline:
//
//	connections -> methods -> subscriptions -> queries -> replay
//
// so that subscriptions and queries are restored on reconnect before any
// queued intent is sent.
//
// Subscriptions and queries are reference counted by (name, params, socket).
// Releasing the last user starts a cleanup timer; requesting the same key
// again before it fires keeps the existing entry and its cached data.
package session
