package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/ddp-client/internal/protocol"
	"github.com/rickgao/ddp-client/internal/scheduler"
	"github.com/rickgao/ddp-client/internal/transport"
)

// fakeTransport records frames and lets the test play the server.
type fakeTransport struct {
	mu       sync.Mutex
	l        transport.Listener
	endpoint string
	opened   bool
	closed   bool
	sent     [][]byte
	failSend error
}

func (f *fakeTransport) Open(endpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = true
	f.endpoint = endpoint
}

func (f *fakeTransport) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend != nil {
		return f.failSend
	}
	f.sent = append(f.sent, append([]byte(nil), frame...))
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return transport.ErrAlreadyClosed
	}
	f.closed = true
	f.mu.Unlock()
	f.l.OnClose(nil)
	return nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) setFailSend(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSend = err
}

// serverOpen signals that the connection is established.
func (f *fakeTransport) serverOpen() {
	f.l.OnOpen()
}

// serverDrop closes the connection from the server side.
func (f *fakeTransport) serverDrop(err error) {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.l.OnClose(err)
}

// deliver sends msg to the client.
func (f *fakeTransport) deliver(t *testing.T, msg protocol.Message) {
	t.Helper()
	data, err := protocol.Encode(msg)
	if err != nil {
		t.Fatalf("encode %s: %v", msg.Msg, err)
	}
	f.l.OnMessage(data)
}

func (f *fakeTransport) deliverRaw(frame string) {
	f.l.OnMessage([]byte(frame))
}

// messages decodes every frame sent so far.
func (f *fakeTransport) messages(t *testing.T) []protocol.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Message, 0, len(f.sent))
	for _, frame := range f.sent {
		msg, err := protocol.Decode(frame)
		if err != nil {
			t.Fatalf("decode sent frame %s: %v", frame, err)
		}
		out = append(out, msg)
	}
	return out
}

// kinds lists the msg field of every frame sent so far.
func (f *fakeTransport) kinds(t *testing.T) []protocol.Kind {
	t.Helper()
	var out []protocol.Kind
	for _, m := range f.messages(t) {
		out = append(out, m.Msg)
	}
	return out
}

// fakeNet hands out fake transports and remembers them in order.
type fakeNet struct {
	mu         sync.Mutex
	transports []*fakeTransport
}

func (n *fakeNet) factory(l transport.Listener) transport.Transport {
	n.mu.Lock()
	defer n.mu.Unlock()
	tr := &fakeTransport{l: l}
	n.transports = append(n.transports, tr)
	return tr
}

func (n *fakeNet) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.transports)
}

func (n *fakeNet) last() *fakeTransport {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.transports) == 0 {
		return nil
	}
	return n.transports[len(n.transports)-1]
}

type sinkEvent struct {
	id       string
	entities string
}

// recordingSink captures everything the session hands to the entity layer.
type recordingSink struct {
	mu       sync.Mutex
	updates  []sinkEvent
	retracts []sinkEvent
	data     []protocol.Message
}

func (r *recordingSink) Update(id string, entities json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, sinkEvent{id: id, entities: string(entities)})
}

func (r *recordingSink) Retract(id string, entities json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retracts = append(r.retracts, sinkEvent{id: id, entities: string(entities)})
}

func (r *recordingSink) Data(_ string, msg protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = append(r.data, msg)
}

func (r *recordingSink) snapshot() (updates, retracts []sinkEvent, data []protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sinkEvent(nil), r.updates...),
		append([]sinkEvent(nil), r.retracts...),
		append([]protocol.Message(nil), r.data...)
}

type harness struct {
	t     *testing.T
	s     *Session
	net   *fakeNet
	sched *scheduler.Manual
	sink  *recordingSink
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		net:   &fakeNet{},
		sched: scheduler.NewManual(time.Unix(0, 0)),
		sink:  &recordingSink{},
	}
	base := []Option{
		WithTransport(h.net.factory),
		WithScheduler(h.sched),
		WithEntitySink(h.sink),
	}
	h.s = New(Config{}, append(base, opts...)...)
	if err := h.s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.s.Stop(ctx)
	})
	return h
}

// sync waits until everything posted to the loop so far has run.
func (h *harness) sync() {
	h.t.Helper()
	if err := h.s.do(func() {}); err != nil {
		h.t.Fatalf("sync: %v", err)
	}
}

// advance settles pending events, moves virtual time and waits for the
// timer callbacks to apply.
func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	h.sync()
	h.sched.Advance(d)
	h.sync()
}

func (h *harness) open(endpoint string, opts ...SocketOption) *fakeTransport {
	h.t.Helper()
	if _, err := h.s.Open(endpoint, opts...); err != nil {
		h.t.Fatalf("Open() error = %v", err)
	}
	return h.net.last()
}

// handshake plays the server side of a successful connect on tr.
func (h *harness) handshake(tr *fakeTransport) {
	h.t.Helper()
	tr.serverOpen()
	h.sync()
	tr.deliver(h.t, protocol.Message{Msg: protocol.KindConnected, Session: "server-session"})
	h.sync()
}

// connect opens a socket and completes the handshake.
func (h *harness) connect(endpoint string, opts ...SocketOption) *fakeTransport {
	h.t.Helper()
	tr := h.open(endpoint, opts...)
	h.handshake(tr)
	return tr
}

func (h *harness) deliver(tr *fakeTransport, msg protocol.Message) {
	h.t.Helper()
	tr.deliver(h.t, msg)
	h.sync()
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func kindsEqual(got []protocol.Kind, want ...protocol.Kind) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
