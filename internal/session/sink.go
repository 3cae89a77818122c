package session

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/rickgao/ddp-client/internal/protocol"
)

// EntitySink receives the data a session produces. Entities are opaque to
// the session. Methods run on the session loop and must not call back into
// the Session.
type EntitySink interface {
	// Update delivers the entities of a query result.
	Update(id string, entities json.RawMessage)

	// Retract withdraws what was delivered for id. Entities is the last
	// value delivered, or nil for subscriptions.
	Retract(id string, entities json.RawMessage)

	// Data forwards added, changed and removed frames.
	Data(socketID string, msg protocol.Message)
}

// Extractor pulls the entities out of a query method result.
type Extractor func(result json.RawMessage) json.RawMessage

// EntitiesField reads the top-level "entities" field of a result.
func EntitiesField(result json.RawMessage) json.RawMessage {
	r := gjson.GetBytes(result, "entities")
	if !r.Exists() {
		return nil
	}
	return json.RawMessage(r.Raw)
}

type nopSink struct{}

func (nopSink) Update(string, json.RawMessage)  {}
func (nopSink) Retract(string, json.RawMessage) {}
func (nopSink) Data(string, protocol.Message)   {}
