package session

import (
	"log/slog"

	"github.com/rickgao/ddp-client/internal/metrics"
	"github.com/rickgao/ddp-client/internal/scheduler"
	"github.com/rickgao/ddp-client/internal/store"
	"github.com/rickgao/ddp-client/internal/transport"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTransport sets the transport factory. Defaults to a WebSocket transport.
func WithTransport(factory transport.Factory) Option {
	return func(s *Session) {
		s.factory = factory
	}
}

// WithStore sets where resumption tokens are kept. A nil store disables resumption.
func WithStore(st store.Store) Option {
	return func(s *Session) {
		s.store = st
	}
}

// WithStorageKey sets how a socket maps to its resumption token key.
// Defaults to the socket endpoint.
func WithStorageKey(fn func(SocketInfo) string) Option {
	return func(s *Session) {
		if fn != nil {
			s.storageKey = fn
		}
	}
}

// WithScheduler sets the timer source. Defaults to scheduler.NewReal().
func WithScheduler(sched scheduler.Scheduler) Option {
	return func(s *Session) {
		if sched != nil {
			s.sched = sched
		}
	}
}

// WithEntitySink sets the receiver of query results and data frames.
func WithEntitySink(sink EntitySink) Option {
	return func(s *Session) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithExtractor sets how entities are pulled out of a query result.
func WithExtractor(fn Extractor) Option {
	return func(s *Session) {
		if fn != nil {
			s.extract = fn
		}
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// SocketOption selects the socket an intent is addressed to.
type SocketOption func(*target)

type target struct {
	socket string
}

// WithSocket addresses the intent to socket id instead of the default one.
func WithSocket(id string) SocketOption {
	return func(t *target) {
		t.socket = id
	}
}

func (s *Session) target(opts []SocketOption) target {
	t := target{socket: s.cfg.DefaultSocket}
	for _, opt := range opts {
		opt(&t)
	}
	if t.socket == "" {
		t.socket = s.cfg.DefaultSocket
	}
	return t
}

// SocketInfo identifies an opened socket.
type SocketInfo struct {
	ID       string
	Endpoint string
}

func endpointKey(info SocketInfo) string {
	return info.Endpoint
}
