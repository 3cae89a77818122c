// Package store persists session resumption tokens.
//
// Three backends are provided: an in-process map, Redis and PostgreSQL.
// Open selects one from configuration.
package store
