package session

import (
	"encoding/json"
	"time"

	"github.com/rickgao/ddp-client/internal/protocol"
)

// pendingCall is a method call waiting for its result.
type pendingCall struct {
	id      string
	name    string
	socket  string
	started time.Time
	done    func(result json.RawMessage, err error)
}

// methods correlates method calls with their results by id.
type methods struct {
	s     *Session
	calls map[string]*pendingCall
}

func newMethods(s *Session) *methods {
	return &methods{s: s, calls: make(map[string]*pendingCall)}
}

// call registers a pending call under id and emits the method frame. done
// runs on the loop when the result arrives.
func (m *methods) call(id, socketID, name string, params json.RawMessage, done func(json.RawMessage, error), sent func(gen uint64)) {
	m.calls[id] = &pendingCall{
		id:      id,
		name:    name,
		socket:  socketID,
		started: time.Now(),
		done:    done,
	}
	m.s.emit(socketID, protocol.Method(id, name, params), sent)
}

func (m *methods) handle(sock *socket, msg protocol.Message) {
	if msg.Msg != protocol.KindResult {
		return
	}

	c, ok := m.calls[msg.ID]
	if !ok {
		m.s.logger.Debug("result for unknown call", "socket", sock.id, "id", msg.ID)
		return
	}
	delete(m.calls, msg.ID)

	perr := msg.Err()
	m.s.metrics.CallCompleted(c.name, perr != nil, time.Since(c.started))
	if perr != nil {
		c.done(nil, perr)
		return
	}
	c.done(msg.Result, nil)
}

// forget drops a pending call whose result is no longer wanted.
func (m *methods) forget(id string) {
	delete(m.calls, id)
}

// rejectAll fails every pending call with err.
func (m *methods) rejectAll(err error) {
	for id, c := range m.calls {
		delete(m.calls, id)
		c.done(nil, err)
	}
}

// pending reports how many calls await a result.
func (m *methods) pending() int {
	return len(m.calls)
}
