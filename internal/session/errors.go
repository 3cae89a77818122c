package session

import "errors"

// Errors
var (
	ErrAlreadyOpen    = errors.New("socket already open")
	ErrNotOpen        = errors.New("socket not open")
	ErrNotStarted     = errors.New("session not started")
	ErrAlreadyStarted = errors.New("session already started")
	ErrSessionStopped = errors.New("session stopped")
	ErrUnknownQuery   = errors.New("unknown query")
)
