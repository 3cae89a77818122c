package session

import (
	"context"
	"errors"
	"slices"

	"github.com/rickgao/ddp-client/internal/protocol"
	"github.com/rickgao/ddp-client/internal/store"
	"github.com/rickgao/ddp-client/internal/transport"
)

// State is the connection state of a socket.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// outbound is an intent waiting to be written. sent, if set, is told the
// transport generation it was written on.
type outbound struct {
	msg  protocol.Message
	sent func(gen uint64)
}

// socket is the record of one logical connection. A record can exist
// before Open so that intents addressed to it are queued.
type socket struct {
	id       string
	endpoint string
	opened   bool
	state    State
	tr       transport.Transport
	gen      uint64
	queue    []outbound
}

func (sock *socket) info() SocketInfo {
	return SocketInfo{ID: sock.id, Endpoint: sock.endpoint}
}

func reconnectKey(socketID string) string {
	return "reconnect/" + socketID
}

// listener forwards events of one transport attempt to the loop.
type listener struct {
	s      *Session
	socket string
	gen    uint64
}

func (l *listener) OnOpen() {
	l.s.post(func() { l.s.onTransportOpen(l.socket, l.gen) })
}

func (l *listener) OnMessage(frame []byte) {
	msg, err := protocol.Decode(frame)
	if err != nil {
		if errors.Is(err, protocol.ErrNoKind) {
			l.s.logger.Debug("ignoring frame without msg", "socket", l.socket)
			return
		}
		l.s.logger.Warn("failed to decode frame", "socket", l.socket, "error", err)
		return
	}
	l.s.post(func() { l.s.dispatch(l.socket, l.gen, msg) })
}

func (l *listener) OnClose(err error) {
	l.s.post(func() { l.s.onTransportClose(l.socket, l.gen, err) })
}

// socketFor returns the record for id, creating an unopened one if needed.
func (s *Session) socketFor(id string) *socket {
	sock, ok := s.sockets[id]
	if !ok {
		sock = &socket{id: id}
		s.sockets[id] = sock
	}
	return sock
}

// live returns the socket if gen is still its current transport attempt.
func (s *Session) live(id string, gen uint64) *socket {
	sock, ok := s.sockets[id]
	if !ok || sock.gen != gen || sock.tr == nil {
		return nil
	}
	return sock
}

func (s *Session) open(id, endpoint string) error {
	sock := s.socketFor(id)
	if sock.opened {
		return ErrAlreadyOpen
	}
	sock.opened = true
	sock.endpoint = endpoint

	s.logger.Info("opening socket", "socket", id, "endpoint", endpoint, "queued", len(sock.queue))
	s.dial(sock)
	return nil
}

// dial starts a new transport attempt for sock.
func (s *Session) dial(sock *socket) {
	s.lastGen++
	sock.gen = s.lastGen
	sock.state = Disconnected
	sock.tr = s.factory(&listener{s: s, socket: sock.id, gen: sock.gen})
	s.metrics.ConnectionState(sock.id, int(sock.state))
	sock.tr.Open(sock.endpoint)
}

func (s *Session) closeSocket(id string) error {
	sock, ok := s.sockets[id]
	if !ok || !sock.opened {
		return ErrNotOpen
	}
	delete(s.sockets, id)
	s.sched.Cancel(reconnectKey(id))
	s.metrics.ForgetSocket(id)

	if sock.tr != nil {
		if err := sock.tr.Close(); err != nil {
			s.logger.Debug("transport close failed", "socket", id, "error", err)
		}
	}
	s.subs.dropQueued(id)
	s.queries.dropQueued(id)
	s.logger.Info("socket closed", "socket", id, "dropped", len(sock.queue))
	return nil
}

// isOpen reports whether id names a socket that was opened and not closed.
func (s *Session) isOpen(id string) bool {
	sock, ok := s.sockets[id]
	return ok && sock.opened
}

func (s *Session) onTransportOpen(id string, gen uint64) {
	sock := s.live(id, gen)
	if sock == nil {
		return
	}
	sock.state = Connecting
	s.metrics.ConnectionState(id, int(sock.state))
	s.logger.Debug("transport open", "socket", id)

	s.subs.markRestoring(sock.id)
	s.lookupToken(sock)
}

// lookupToken reads the resumption token off the loop and then sends the
// handshake, provided the attempt is still current.
func (s *Session) lookupToken(sock *socket) {
	if s.store == nil {
		s.sendConnect(sock, "")
		return
	}

	id, gen, key := sock.id, sock.gen, s.storageKey(sock.info())
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.TokenTimeout)
		defer cancel()

		token, err := s.store.Get(ctx, key)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("failed to read resume token", "socket", id, "error", err)
		}
		s.post(func() {
			if sock := s.live(id, gen); sock != nil && sock.state == Connecting {
				s.sendConnect(sock, token)
			}
		})
	}()
}

func (s *Session) sendConnect(sock *socket, token string) {
	msg := protocol.Connect(s.cfg.ProtocolVersion, s.cfg.SupportedVersions, token)
	if err := s.write(sock, msg); err != nil {
		s.logger.Warn("failed to send connect", "socket", sock.id, "error", err)
	}
}

// saveToken persists the server session id off the loop.
func (s *Session) saveToken(sock *socket, session string) {
	if s.store == nil || session == "" {
		return
	}
	id, key := sock.id, s.storageKey(sock.info())
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.TokenTimeout)
		defer cancel()

		if err := s.store.Set(ctx, key, session); err != nil {
			s.logger.Warn("failed to save resume token", "socket", id, "error", err)
		}
	}()
}

func (s *Session) onTransportClose(id string, gen uint64, cause error) {
	sock := s.live(id, gen)
	if sock == nil {
		return
	}
	sock.state = Disconnected
	sock.tr = nil
	s.metrics.ConnectionState(id, int(sock.state))

	s.logger.Warn("transport closed, reconnecting",
		"socket", id,
		"error", cause,
		"delay", s.cfg.ReconnectDelay,
		"queued", len(sock.queue),
	)

	s.sched.Schedule(reconnectKey(id), s.cfg.ReconnectDelay, func() {
		s.post(func() { s.reconnect(id, gen) })
	})
}

func (s *Session) reconnect(id string, closedGen uint64) {
	sock, ok := s.sockets[id]
	if !ok || sock.gen != closedGen || sock.tr != nil {
		return
	}
	s.metrics.Reconnect(id)
	s.logger.Info("reconnecting", "socket", id, "endpoint", sock.endpoint)
	s.dial(sock)
}

// write sends msg on the current transport regardless of state.
func (s *Session) write(sock *socket, msg protocol.Message) error {
	if sock.tr == nil {
		return transport.ErrNotConnected
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := sock.tr.Send(data); err != nil {
		s.metrics.SendError(sock.id)
		return err
	}
	s.metrics.FrameSent(string(msg.Msg))
	return nil
}

// emit sends an intent now if the socket is connected, otherwise queues it.
func (s *Session) emit(socketID string, msg protocol.Message, sent func(gen uint64)) {
	sock := s.socketFor(socketID)
	if sock.state == Connected {
		err := s.write(sock, msg)
		if err == nil {
			if sent != nil {
				sent(sock.gen)
			}
			return
		}
		s.logger.Warn("send failed, requeueing", "socket", socketID, "msg", msg.Msg, "error", err)
		s.abort(sock)
	}
	sock.queue = append(sock.queue, outbound{msg: msg, sent: sent})
	s.metrics.QueueDepth(socketID, len(sock.queue))
}

// unqueue removes the queued intent with the given kind and id.
func (s *Session) unqueue(socketID string, kind protocol.Kind, id string) {
	sock, ok := s.sockets[socketID]
	if !ok {
		return
	}
	i := slices.IndexFunc(sock.queue, func(ob outbound) bool {
		return ob.msg.Msg == kind && ob.msg.ID == id
	})
	if i < 0 {
		return
	}
	sock.queue = slices.Delete(sock.queue, i, i+1)
	s.metrics.QueueDepth(socketID, len(sock.queue))
}

// abort stops treating sock as connected after a failed write. The
// transport close that follows drives the reconnect.
func (s *Session) abort(sock *socket) {
	sock.state = Disconnected
	s.metrics.ConnectionState(sock.id, int(sock.state))
	if sock.tr != nil {
		_ = sock.tr.Close()
	}
}

func (s *Session) handleConnection(sock *socket, msg protocol.Message) {
	switch msg.Msg {
	case protocol.KindConnected:
		sock.state = Connected
		s.metrics.ConnectionState(sock.id, int(sock.state))
		s.logger.Info("connected", "socket", sock.id, "server_session", msg.Session)
		s.saveToken(sock, msg.Session)

	case protocol.KindFailed:
		s.logger.Warn("server rejected protocol version",
			"socket", sock.id,
			"offered", s.cfg.ProtocolVersion,
			"suggested", msg.Version,
		)
		_ = sock.tr.Close()

	case protocol.KindPing:
		if err := s.write(sock, protocol.Pong(msg.ID)); err != nil {
			s.logger.Debug("failed to send pong", "socket", sock.id, "error", err)
		}

	case protocol.KindError:
		s.logger.Warn("server reported error",
			"socket", sock.id,
			"reason", msg.Reason,
			"offending", string(msg.OffendingMessage),
		)
	}
}
