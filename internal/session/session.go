package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rickgao/ddp-client/internal/metrics"
	"github.com/rickgao/ddp-client/internal/protocol"
	"github.com/rickgao/ddp-client/internal/queue"
	"github.com/rickgao/ddp-client/internal/scheduler"
	"github.com/rickgao/ddp-client/internal/store"
	"github.com/rickgao/ddp-client/internal/transport"
)

const (
	statusNew int32 = iota
	statusRunning
	statusStopped
)

// Session is a client-side DDP session over one or more sockets.
type Session struct {
	cfg        Config
	logger     *slog.Logger
	factory    transport.Factory
	store      store.Store
	storageKey func(SocketInfo) string
	sched      scheduler.Scheduler
	sink       EntitySink
	extract    Extractor
	metrics    *metrics.Metrics
	instanceID string

	mailbox *queue.Growable[func()]
	status  atomic.Int32
	done    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	// Owned by the loop goroutine.
	torndown bool
	lastID   uint64
	lastGen  uint64
	sockets  map[string]*socket
	methods  *methods
	subs     *subscriptions
	queries  *queries
	pipeline []stage
}

// New creates a session. Call Start before issuing intents.
func New(cfg Config, opts ...Option) *Session {
	cfg.applyDefaults()

	s := &Session{
		cfg:        cfg,
		logger:     slog.Default(),
		storageKey: endpointKey,
		sched:      scheduler.NewReal(),
		sink:       nopSink{},
		extract:    EntitiesField,
		instanceID: uuid.NewString(),
		mailbox:    queue.New[func()](64),
		done:       make(chan struct{}),
		sockets:    make(map[string]*socket),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.instanceID)
	if s.factory == nil {
		s.factory = transport.NewWebsocket(transport.DefaultWebsocketConfig(), s.logger)
	}

	s.methods = newMethods(s)
	s.subs = newSubscriptions(s)
	s.queries = newQueries(s)
	s.pipeline = s.buildPipeline()
	return s
}

// ID returns the session instance id used in logs.
func (s *Session) ID() string {
	return s.instanceID
}

// Start runs the event loop until Stop is called.
func (s *Session) Start(ctx context.Context) error {
	if !s.status.CompareAndSwap(statusNew, statusRunning) {
		return ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	go s.loop()

	s.logger.Info("session started")
	return nil
}

// Stop closes every socket, rejects pending calls with ErrSessionStopped
// and waits for the loop to exit or ctx to end.
func (s *Session) Stop(ctx context.Context) error {
	if s.status.CompareAndSwap(statusNew, statusStopped) {
		return nil
	}
	if !s.status.CompareAndSwap(statusRunning, statusStopped) {
		return nil
	}
	s.logger.Info("stopping session")

	s.mailbox.Push(s.teardown)
	s.mailbox.Close()

	select {
	case <-s.done:
	case <-ctx.Done():
		s.logger.Warn("shutdown timeout, loop still draining")
	}
	s.cancel()

	s.logger.Info("session stopped")
	return nil
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		fn, ok := s.mailbox.Pop()
		if !ok {
			return
		}
		fn()
	}
}

func (s *Session) teardown() {
	s.torndown = true
	for id, sock := range s.sockets {
		s.sched.Cancel(reconnectKey(id))
		if sock.tr != nil {
			_ = sock.tr.Close()
		}
		s.metrics.ForgetSocket(id)
	}
	s.sockets = make(map[string]*socket)
	s.subs.cancelTimers()
	s.queries.cancelTimers()
	s.methods.rejectAll(ErrSessionStopped)
}

// post queues fn on the loop without waiting. It is dropped once the
// session is torn down.
func (s *Session) post(fn func()) {
	s.mailbox.Push(func() {
		if s.torndown {
			return
		}
		fn()
	})
}

// do runs fn on the loop and waits for it to finish.
func (s *Session) do(fn func()) error {
	switch s.status.Load() {
	case statusNew:
		return ErrNotStarted
	case statusStopped:
		return ErrSessionStopped
	}

	done := make(chan struct{})
	aborted := false
	ok := s.mailbox.Push(func() {
		defer close(done)
		if s.torndown {
			aborted = true
			return
		}
		fn()
	})
	if !ok {
		return ErrSessionStopped
	}
	<-done
	if aborted {
		return ErrSessionStopped
	}
	return nil
}

func (s *Session) nextID() string {
	s.lastID++
	return strconv.FormatUint(s.lastID, 10)
}

// Open connects socket (default socket unless WithSocket is given) to endpoint.
func (s *Session) Open(endpoint string, opts ...SocketOption) (string, error) {
	t := s.target(opts)
	var err error
	if derr := s.do(func() { err = s.open(t.socket, endpoint) }); derr != nil {
		return "", derr
	}
	if err != nil {
		return "", err
	}
	return t.socket, nil
}

// Close disconnects the socket and drops its queued intents.
func (s *Session) Close(opts ...SocketOption) error {
	t := s.target(opts)
	var err error
	if derr := s.do(func() { err = s.closeSocket(t.socket) }); derr != nil {
		return derr
	}
	return err
}

// Call invokes a remote method. The future settles when the matching
// result arrives; there is no timeout.
func (s *Session) Call(name string, params []any, opts ...SocketOption) *Future[json.RawMessage] {
	f := newFuture[json.RawMessage]()

	raw, err := protocol.MarshalParams(params)
	if err != nil {
		f.reject(err)
		return f
	}

	t := s.target(opts)
	err = s.do(func() {
		s.methods.call(s.nextID(), t.socket, name, raw, func(result json.RawMessage, err error) {
			if err != nil {
				f.reject(err)
				return
			}
			f.resolve(result)
		}, nil)
	})
	if err != nil {
		f.reject(err)
	}
	return f
}

// Subscribe requests a subscription and returns its id. Requesting the
// same name and params on the same socket again shares the subscription.
func (s *Session) Subscribe(name string, params []any, opts ...SocketOption) (string, error) {
	raw, err := protocol.MarshalParams(params)
	if err != nil {
		return "", err
	}

	t := s.target(opts)
	var id string
	if err := s.do(func() { id = s.subs.request(t.socket, name, raw) }); err != nil {
		return "", err
	}
	return id, nil
}

// Unsubscribe releases one user of the subscription.
func (s *Session) Unsubscribe(id string) error {
	return s.do(func() { s.subs.release(id) })
}

// RequestQuery requests a query and returns its id. Requesting the same
// name and params on the same socket again shares the cached result.
func (s *Session) RequestQuery(name string, params []any, opts ...SocketOption) (string, error) {
	raw, err := protocol.MarshalParams(params)
	if err != nil {
		return "", err
	}

	t := s.target(opts)
	var id string
	if err := s.do(func() { id = s.queries.request(t.socket, name, raw) }); err != nil {
		return "", err
	}
	return id, nil
}

// ReleaseQuery releases one user of the query.
func (s *Session) ReleaseQuery(id string) error {
	return s.do(func() { s.queries.release(id) })
}

// RefetchQuery calls the query method again and refreshes its entities.
func (s *Session) RefetchQuery(id string) error {
	var err error
	if derr := s.do(func() { err = s.queries.refetch(id) }); derr != nil {
		return derr
	}
	return err
}

// ConnectionState reports the state of a socket. Unknown sockets are
// Disconnected.
func (s *Session) ConnectionState(socketID string) State {
	state := Disconnected
	_ = s.do(func() {
		if sock, ok := s.sockets[socketID]; ok {
			state = sock.state
		}
	})
	return state
}

// Subscription returns a snapshot of a subscription.
func (s *Session) Subscription(id string) (SubscriptionInfo, bool) {
	var (
		info SubscriptionInfo
		ok   bool
	)
	_ = s.do(func() { info, ok = s.subs.info(id) })
	return info, ok
}

// Query returns a snapshot of a query.
func (s *Session) Query(id string) (QueryInfo, bool) {
	var (
		info QueryInfo
		ok   bool
	)
	_ = s.do(func() { info, ok = s.queries.info(id) })
	return info, ok
}

// Ready returns a channel closed the first time the subscription or query
// becomes ready. It returns nil for ids the session does not track.
func (s *Session) Ready(id string) <-chan struct{} {
	var ch chan struct{}
	_ = s.do(func() {
		if sub, ok := s.subs.byID[id]; ok {
			ch = sub.ready
			return
		}
		if q, ok := s.queries.byID[id]; ok {
			ch = q.ready
		}
	})
	return ch
}

// ClearResumeToken forgets the stored resumption token of a socket so the
// next handshake starts a new server session.
func (s *Session) ClearResumeToken(ctx context.Context, socketID string) error {
	if s.store == nil {
		return nil
	}

	var (
		info  SocketInfo
		found bool
	)
	if err := s.do(func() {
		if sock, ok := s.sockets[socketID]; ok && sock.opened {
			info, found = sock.info(), true
		}
	}); err != nil {
		return err
	}
	if !found {
		return ErrNotOpen
	}
	return s.store.Del(ctx, s.storageKey(info))
}
