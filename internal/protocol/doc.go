// Package protocol implements the DDP message codec and error normalizer.
//
// Every wire frame is a JSON object with a "msg" discriminator:
//   - connect / connected / failed: session handshake
//   - ping / pong: keepalive, pong echoes the ping id
//   - method / result / updated: remote procedure calls
//   - sub / unsub / ready / nosub: subscription lifecycle
//   - added / changed / removed: live collection data
//   - error: generic server-side rejection of a frame
//
// Server error payloads arrive in many shapes and are coerced into a
// single Error value by Normalize and NormalizeRaw.
package protocol
