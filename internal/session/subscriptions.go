package session

import (
	"encoding/json"
	"sort"

	"github.com/rickgao/ddp-client/internal/protocol"
)

// SubscriptionState is the lifecycle state of a subscription.
type SubscriptionState int

const (
	SubscriptionPending SubscriptionState = iota
	SubscriptionReady
	SubscriptionRestoring
)

func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionPending:
		return "pending"
	case SubscriptionReady:
		return "ready"
	case SubscriptionRestoring:
		return "restoring"
	}
	return "unknown"
}

// SubscriptionInfo is a snapshot of a subscription.
type SubscriptionInfo struct {
	ID       string
	Name     string
	Params   json.RawMessage
	SocketID string
	State    SubscriptionState
	Users    int
	Err      *protocol.Error
}

type subscription struct {
	id      string
	seq     uint64
	key     string
	name    string
	params  json.RawMessage
	socket  string
	state   SubscriptionState
	users   int
	err     *protocol.Error
	sentGen uint64 // transport generation the last sub frame went out on
	queued  bool   // sub frame is waiting in the socket queue

	cleanup uint64 // bumped on every schedule or cancel of the cleanup timer
	ready   chan struct{}
	isReady bool
}

func (sub *subscription) markReady() {
	sub.state = SubscriptionReady
	if !sub.isReady {
		sub.isReady = true
		close(sub.ready)
	}
}

// subscriptions tracks ref-counted subscriptions keyed by (name, params, socket).
type subscriptions struct {
	s     *Session
	byID  map[string]*subscription
	byKey map[string]*subscription
	seq   uint64
}

func newSubscriptions(s *Session) *subscriptions {
	return &subscriptions{
		s:     s,
		byID:  make(map[string]*subscription),
		byKey: make(map[string]*subscription),
	}
}

func entryKey(name string, params json.RawMessage, socketID string) string {
	return name + "\x00" + string(params) + "\x00" + socketID
}

func subCleanupKey(id string) string {
	return "sub/" + id
}

func (m *subscriptions) request(socketID, name string, params json.RawMessage) string {
	key := entryKey(name, params, socketID)
	if sub, ok := m.byKey[key]; ok {
		sub.users++
		m.cancelCleanup(sub)
		return sub.id
	}

	m.seq++
	sub := &subscription{
		id:     m.s.nextID(),
		seq:    m.seq,
		key:    key,
		name:   name,
		params: params,
		socket: socketID,
		state:  SubscriptionPending,
		users:  1,
		ready:  make(chan struct{}),
	}
	m.byID[sub.id] = sub
	m.byKey[key] = sub
	m.s.metrics.Subscriptions(len(m.byID))

	m.send(sub)
	return sub.id
}

func (m *subscriptions) send(sub *subscription) {
	sub.queued = true
	m.s.emit(sub.socket, protocol.Sub(sub.id, sub.name, sub.params), func(gen uint64) {
		sub.sentGen = gen
		sub.queued = false
	})
}

func (m *subscriptions) release(id string) {
	sub, ok := m.byID[id]
	if !ok || sub.users == 0 {
		return
	}
	sub.users--
	if sub.users > 0 {
		return
	}

	sub.cleanup++
	token := sub.cleanup
	m.s.sched.Schedule(subCleanupKey(id), m.s.cfg.SubscriptionCleanupDelay, func() {
		m.s.post(func() { m.expire(id, token) })
	})
}

func (m *subscriptions) cancelCleanup(sub *subscription) {
	sub.cleanup++
	m.s.sched.Cancel(subCleanupKey(sub.id))
}

// expire stops a subscription whose last user left and was not replaced
// within the cleanup delay.
func (m *subscriptions) expire(id string, token uint64) {
	sub, ok := m.byID[id]
	if !ok || sub.users > 0 || sub.cleanup != token {
		return
	}
	delete(m.byID, id)
	delete(m.byKey, sub.key)
	m.s.metrics.Subscriptions(len(m.byID))

	switch {
	case sub.queued:
		// The server never saw the sub.
		m.s.unqueue(sub.socket, protocol.KindSub, id)
	case m.s.isOpen(sub.socket):
		m.s.emit(sub.socket, protocol.Unsub(id), nil)
	}
	m.s.sink.Retract(id, nil)
	m.s.logger.Debug("subscription removed", "id", id, "name", sub.name)
}

// dropQueued clears the queued marker of subscriptions whose socket was
// closed along with its queue.
func (m *subscriptions) dropQueued(socketID string) {
	for _, sub := range m.byID {
		if sub.socket == socketID {
			sub.queued = false
		}
	}
}

func (m *subscriptions) cancelTimers() {
	for id, sub := range m.byID {
		sub.cleanup++
		m.s.sched.Cancel(subCleanupKey(id))
	}
}

// markRestoring flags ready subscriptions of a socket whose transport just
// reopened; they are sent again once the server accepts the handshake.
func (m *subscriptions) markRestoring(socketID string) {
	for _, sub := range m.byID {
		if sub.socket == socketID && sub.state == SubscriptionReady {
			sub.state = SubscriptionRestoring
		}
	}
}

func (m *subscriptions) handle(sock *socket, msg protocol.Message) {
	switch msg.Msg {
	case protocol.KindConnected:
		m.restore(sock)

	case protocol.KindReady:
		for _, id := range msg.Subs {
			if sub, ok := m.byID[id]; ok {
				sub.markReady()
			}
		}

	case protocol.KindNoSub:
		sub, ok := m.byID[msg.ID]
		if !ok {
			return
		}
		sub.err = msg.Err()
		sub.markReady()
		if sub.err != nil {
			m.s.logger.Warn("subscription stopped by server", "id", sub.id, "name", sub.name, "error", sub.err)
		}

	case protocol.KindAdded, protocol.KindChanged, protocol.KindRemoved:
		m.s.sink.Data(sock.id, msg)
	}
}

// restore re-sends every subscription of sock that the server may have
// forgotten: restoring ones and pending ones sent on an earlier transport.
// Subscriptions with a sub frame still queued are left to replay.
func (m *subscriptions) restore(sock *socket) {
	var resend []*subscription
	for _, sub := range m.byID {
		if sub.socket != sock.id || sub.queued {
			continue
		}
		stale := sub.state == SubscriptionPending && sub.sentGen != 0 && sub.sentGen != sock.gen
		if sub.state == SubscriptionRestoring || stale {
			resend = append(resend, sub)
		}
	}
	sort.Slice(resend, func(i, j int) bool { return resend[i].seq < resend[j].seq })

	for _, sub := range resend {
		m.send(sub)
	}
	if len(resend) > 0 {
		m.s.logger.Info("subscriptions restored", "socket", sock.id, "count", len(resend))
	}
}

func (m *subscriptions) info(id string) (SubscriptionInfo, bool) {
	sub, ok := m.byID[id]
	if !ok {
		return SubscriptionInfo{}, false
	}
	return SubscriptionInfo{
		ID:       sub.id,
		Name:     sub.name,
		Params:   sub.params,
		SocketID: sub.socket,
		State:    sub.state,
		Users:    sub.users,
		Err:      sub.err,
	}, true
}
