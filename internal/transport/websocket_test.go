package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// recorder is a Listener that records events.
type recorder struct {
	mu       sync.Mutex
	opens    int
	closes   int
	closeErr error
	frames   []string

	opened chan struct{}
	closed chan struct{}
}

func newRecorder() *recorder {
	return &recorder{
		opened: make(chan struct{}, 1),
		closed: make(chan struct{}, 1),
	}
}

func (r *recorder) OnOpen() {
	r.mu.Lock()
	r.opens++
	r.mu.Unlock()
	r.opened <- struct{}{}
}

func (r *recorder) OnMessage(frame []byte) {
	r.mu.Lock()
	r.frames = append(r.frames, string(frame))
	r.mu.Unlock()
}

func (r *recorder) OnClose(err error) {
	r.mu.Lock()
	r.closes++
	r.closeErr = err
	r.mu.Unlock()
	r.closed <- struct{}{}
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %s", what)
	}
}

func TestWebsocket_OpenSendClose(t *testing.T) {
	var received []string
	var mu sync.Mutex

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			received = append(received, string(msg))
			mu.Unlock()
		}
	})
	defer server.Close()

	rec := newRecorder()
	tr := NewWebsocket(DefaultWebsocketConfig(), nil)(rec)

	tr.Open(wsURL(server))
	waitFor(t, rec.opened, "open")

	if err := tr.Send([]byte(`{"msg":"connect"}`)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if err := tr.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	waitFor(t, rec.closed, "close")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.opens != 1 || rec.closes != 1 {
		t.Errorf("opens/closes = %d/%d, want 1/1", rec.opens, rec.closes)
	}
	if rec.closeErr != nil {
		t.Errorf("close error = %v, want nil after explicit Close", rec.closeErr)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0] != `{"msg":"connect"}` {
		t.Errorf("server received %v", received)
	}
}

func TestWebsocket_MessagesInOrder(t *testing.T) {
	frames := []string{
		`{"msg":"connected","session":"s1"}`,
		`{"msg":"ping","id":"1"}`,
		`{"msg":"ready","subs":["2"]}`,
	}

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		time.Sleep(time.Second)
	})
	defer server.Close()

	rec := newRecorder()
	tr := NewWebsocket(DefaultWebsocketConfig(), nil)(rec)
	tr.Open(wsURL(server))
	defer tr.Close()

	waitFor(t, rec.opened, "open")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		rec.mu.Lock()
		n := len(rec.frames)
		rec.mu.Unlock()
		if n == len(frames) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.frames) != len(frames) {
		t.Fatalf("received %d frames, want %d", len(rec.frames), len(frames))
	}
	for i, want := range frames {
		if rec.frames[i] != want {
			t.Errorf("frame %d: got %q, want %q", i, rec.frames[i], want)
		}
	}
}

func TestWebsocket_ServerDisconnect(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Return immediately; the deferred Close drops the connection.
	})
	defer server.Close()

	rec := newRecorder()
	tr := NewWebsocket(DefaultWebsocketConfig(), nil)(rec)
	tr.Open(wsURL(server))

	waitFor(t, rec.opened, "open")
	waitFor(t, rec.closed, "close")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.closeErr == nil {
		t.Error("expected a close error for an unexpected disconnect")
	}
}

func TestWebsocket_DialFailure(t *testing.T) {
	rec := newRecorder()
	cfg := DefaultWebsocketConfig()
	cfg.HandshakeTimeout = 500 * time.Millisecond
	tr := NewWebsocket(cfg, nil)(rec)

	tr.Open("ws://127.0.0.1:1")
	waitFor(t, rec.closed, "close")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.opens != 0 {
		t.Errorf("opens = %d, want 0", rec.opens)
	}
	if rec.closeErr == nil {
		t.Error("expected dial error")
	}
}

func TestWebsocket_SendNotConnected(t *testing.T) {
	tr := NewWebsocket(DefaultWebsocketConfig(), nil)(newRecorder())

	if err := tr.Send([]byte("test")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestWebsocket_CloseBeforeOpen(t *testing.T) {
	rec := newRecorder()
	tr := NewWebsocket(DefaultWebsocketConfig(), nil)(rec)

	if err := tr.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	waitFor(t, rec.closed, "close")

	if err := tr.Send([]byte("test")); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("expected ErrAlreadyClosed, got %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestListenerFuncs(t *testing.T) {
	var opened bool
	var frame string
	l := ListenerFuncs{
		Open:    func() { opened = true },
		Message: func(f []byte) { frame = string(f) },
	}

	l.OnOpen()
	l.OnMessage([]byte("x"))
	l.OnClose(nil)

	if !opened || frame != "x" {
		t.Errorf("opened=%v frame=%q", opened, frame)
	}
}
