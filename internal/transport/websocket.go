package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketConfig configures the WebSocket transport.
type WebsocketConfig struct {
	HandshakeTimeout time.Duration // Dial + upgrade timeout
	WriteTimeout     time.Duration // Write deadline for sends
	Header           http.Header   // Extra headers sent with the upgrade request
}

// DefaultWebsocketConfig returns sensible defaults.
func DefaultWebsocketConfig() WebsocketConfig {
	return WebsocketConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// NewWebsocket returns a Factory producing gorilla/websocket transports.
func NewWebsocket(cfg WebsocketConfig, logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return func(l Listener) Transport {
		return &wsTransport{
			cfg:      cfg,
			logger:   logger,
			listener: l,
		}
	}
}

// wsTransport implements Transport over a single WebSocket connection.
type wsTransport struct {
	cfg      WebsocketConfig
	logger   *slog.Logger
	listener Listener

	// Write serialization
	writeMu sync.Mutex

	// State
	mu      sync.Mutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	started bool
	opened  bool
	closed  bool

	notify sync.Once
}

// Open dials endpoint in the background.
func (t *wsTransport) Open(endpoint string) {
	t.mu.Lock()
	if t.started || t.closed {
		t.mu.Unlock()
		t.logger.Warn("websocket transport reused", "endpoint", endpoint)
		return
	}
	t.started = true
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.mu.Unlock()

	go t.dial(ctx, endpoint)
}

func (t *wsTransport) dial(ctx context.Context, endpoint string) {
	dialer := websocket.Dialer{
		HandshakeTimeout: t.cfg.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, t.cfg.Header)
	if err != nil {
		t.logger.Debug("websocket dial failed", "endpoint", endpoint, "error", err)
		t.emitClose(err)
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		t.emitClose(nil)
		return
	}
	t.conn = conn
	t.opened = true
	t.mu.Unlock()

	t.logger.Debug("websocket connected", "endpoint", endpoint)
	t.listener.OnOpen()

	t.readLoop(conn)
}

// readLoop delivers frames until the connection fails or is closed.
func (t *wsTransport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.opened = false
			t.mu.Unlock()

			if closed {
				t.emitClose(nil)
			} else {
				t.emitClose(err)
			}
			return
		}
		t.listener.OnMessage(data)
	}
}

// Send writes one text frame.
func (t *wsTransport) Send(frame []byte) error {
	t.mu.Lock()
	conn, opened, closed := t.conn, t.opened, t.closed
	t.mu.Unlock()
	if closed {
		return ErrAlreadyClosed
	}
	if !opened {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// Close aborts a pending dial or closes the connection.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	cancel := t.cancel
	started := t.started
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if !started {
		t.emitClose(nil)
		return nil
	}
	if conn == nil {
		// dial goroutine reports the close
		return nil
	}

	t.writeMu.Lock()
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	t.writeMu.Unlock()

	// readLoop observes the closed socket and reports OnClose.
	return conn.Close()
}

func (t *wsTransport) emitClose(err error) {
	t.notify.Do(func() {
		t.listener.OnClose(err)
	})
}
