package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	segjson "github.com/segmentio/encoding/json"
	"github.com/tidwall/gjson"
)

// Kind is the value of the "msg" field of a frame.
type Kind string

const (
	KindConnect   Kind = "connect"
	KindConnected Kind = "connected"
	KindFailed    Kind = "failed"
	KindPing      Kind = "ping"
	KindPong      Kind = "pong"
	KindMethod    Kind = "method"
	KindResult    Kind = "result"
	KindUpdated   Kind = "updated"
	KindSub       Kind = "sub"
	KindUnsub     Kind = "unsub"
	KindReady     Kind = "ready"
	KindNoSub     Kind = "nosub"
	KindAdded     Kind = "added"
	KindChanged   Kind = "changed"
	KindRemoved   Kind = "removed"
	KindError     Kind = "error"
)

// Errors
var (
	ErrNoKind    = errors.New("frame has no msg field")
	ErrMalformed = errors.New("malformed frame")
)

// Message is a decoded DDP frame. Only the fields relevant to Msg are set.
type Message struct {
	Msg Kind   `json:"msg"`
	ID  string `json:"id,omitempty"`

	// connect, connected, failed
	Session string   `json:"session,omitempty"`
	Version string   `json:"version,omitempty"`
	Support []string `json:"support,omitempty"`

	// method, sub
	Method string          `json:"method,omitempty"`
	Name   string          `json:"name,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`

	// result, nosub
	Result json.RawMessage `json:"result,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`

	// ready, updated
	Subs    []string `json:"subs,omitempty"`
	Methods []string `json:"methods,omitempty"`

	// added, changed, removed
	Collection string          `json:"collection,omitempty"`
	Fields     json.RawMessage `json:"fields,omitempty"`
	Cleared    []string        `json:"cleared,omitempty"`

	// error
	Reason           string          `json:"reason,omitempty"`
	OffendingMessage json.RawMessage `json:"offendingMessage,omitempty"`
}

// Err returns the normalized error carried by a result or nosub frame,
// or nil when the frame reports success.
func (m Message) Err() *Error {
	return NormalizeRaw(m.Error)
}

// Encode serializes a message for the wire.
func Encode(m Message) ([]byte, error) {
	if m.Msg == "" {
		return nil, ErrNoKind
	}
	data, err := segjson.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Msg, err)
	}
	return data, nil
}

// Decode parses a frame received from the server.
func Decode(data []byte) (Message, error) {
	if !gjson.ValidBytes(data) {
		return Message{}, ErrMalformed
	}

	kind := gjson.GetBytes(data, "msg")
	if !kind.Exists() || kind.String() == "" {
		return Message{}, ErrNoKind
	}

	var m Message
	if err := segjson.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode %s: %w", kind.String(), errors.Join(ErrMalformed, err))
	}
	return m, nil
}

// Connect builds the handshake frame. An empty session starts a new
// server-side session; otherwise the server is asked to resume it.
func Connect(version string, support []string, session string) Message {
	return Message{
		Msg:     KindConnect,
		Version: version,
		Support: support,
		Session: session,
	}
}

// Pong builds the reply to a ping, echoing its id.
func Pong(id string) Message {
	return Message{Msg: KindPong, ID: id}
}

// Method builds a method call frame.
func Method(id, name string, params json.RawMessage) Message {
	return Message{Msg: KindMethod, ID: id, Method: name, Params: params}
}

// Sub builds a subscription request frame.
func Sub(id, name string, params json.RawMessage) Message {
	return Message{Msg: KindSub, ID: id, Name: name, Params: params}
}

// Unsub builds a subscription stop frame.
func Unsub(id string) Message {
	return Message{Msg: KindUnsub, ID: id}
}

// MarshalParams encodes call or subscription arguments as a JSON array.
// A nil slice is encoded as an empty array.
func MarshalParams(params []any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	data, err := segjson.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return data, nil
}
