package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	segjson "github.com/segmentio/encoding/json"

	"github.com/rickgao/ddp-client/internal/protocol"
)

// printSink writes every entity event as one JSON line.
type printSink struct {
	mu     sync.Mutex
	enc    *segjson.Encoder
	logger *slog.Logger
}

type sinkLine struct {
	Event      string          `json:"event"`
	ID         string          `json:"id,omitempty"`
	Socket     string          `json:"socket,omitempty"`
	Collection string          `json:"collection,omitempty"`
	Entities   json.RawMessage `json:"entities,omitempty"`
	Fields     json.RawMessage `json:"fields,omitempty"`
	Cleared    []string        `json:"cleared,omitempty"`
}

func newPrintSink(w io.Writer, logger *slog.Logger) *printSink {
	return &printSink{enc: segjson.NewEncoder(w), logger: logger}
}

func (p *printSink) Update(id string, entities json.RawMessage) {
	p.write(sinkLine{Event: "update", ID: id, Entities: entities})
}

func (p *printSink) Retract(id string, entities json.RawMessage) {
	p.write(sinkLine{Event: "retract", ID: id, Entities: entities})
}

func (p *printSink) Data(socketID string, msg protocol.Message) {
	p.write(sinkLine{
		Event:      string(msg.Msg),
		ID:         msg.ID,
		Socket:     socketID,
		Collection: msg.Collection,
		Fields:     msg.Fields,
		Cleared:    msg.Cleared,
	})
}

func (p *printSink) write(line sinkLine) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enc.Encode(line); err != nil {
		p.logger.Warn("failed to write event", "event", line.Event, "error", err)
	}
}
