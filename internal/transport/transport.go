package transport

import "errors"

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
)

// Listener receives transport events in the order they happen.
type Listener interface {
	// OnOpen is called once the connection is established.
	OnOpen()

	// OnMessage is called for every frame, in receipt order.
	OnMessage(frame []byte)

	// OnClose is called exactly once per attempt, with the cause (nil after Close).
	OnClose(err error)
}

// Transport is a single connection attempt.
type Transport interface {
	// Open starts connecting to endpoint. Completion is reported to the Listener.
	Open(endpoint string)

	// Send writes one frame.
	Send(frame []byte) error

	// Close tears the connection down.
	Close() error
}

// Factory builds a transport bound to a listener.
type Factory func(l Listener) Transport

// ListenerFuncs adapts plain functions to the Listener interface.
// Nil fields are ignored.
type ListenerFuncs struct {
	Open    func()
	Message func(frame []byte)
	Close   func(err error)
}

func (f ListenerFuncs) OnOpen() {
	if f.Open != nil {
		f.Open()
	}
}

func (f ListenerFuncs) OnMessage(frame []byte) {
	if f.Message != nil {
		f.Message(frame)
	}
}

func (f ListenerFuncs) OnClose(err error) {
	if f.Close != nil {
		f.Close(err)
	}
}
