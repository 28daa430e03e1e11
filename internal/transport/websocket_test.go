package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// newEchoServer starts a TLS WebSocket server that greets each connection
// and then echoes every text frame back.
func newEchoServer(t *testing.T) (host string, cleanup func()) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
			return
		}
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, msg); err != nil {
				return
			}
		}
	}))

	return strings.TrimPrefix(srv.URL, "https://"), srv.Close
}

// TestConnectSendRead tests the full handshake and a round trip
func TestConnectSendRead(t *testing.T) {
	t.Parallel()

	host, cleanup := newEchoServer(t)
	defer cleanup()

	ws := New(host, true, zerolog.Nop())
	if err := ws.Connect(); err != nil {
		t.Fatalf("Connect() = %v", err)
	}
	defer ws.Close()

	greeting, err := ws.ReadText()
	if err != nil {
		t.Fatalf("ReadText() = %v", err)
	}
	if string(greeting) != "hello" {
		t.Errorf("greeting = %s, want hello", greeting)
	}

	if err := ws.SendText([]byte(`{"jsonrpc":"2.0","id":1,"method":"public/ping","params":{}}`)); err != nil {
		t.Fatalf("SendText() = %v", err)
	}

	echo, err := ws.ReadText()
	if err != nil {
		t.Fatalf("ReadText() = %v", err)
	}
	if !strings.Contains(string(echo), `"public/ping"`) {
		t.Errorf("echo = %s, want the sent frame", echo)
	}
}

// TestConnectFailure tests the handshake error path
func TestConnectFailure(t *testing.T) {
	t.Parallel()

	ws := New("127.0.0.1:1", true, zerolog.Nop())
	if err := ws.Connect(); err == nil {
		t.Error("Connect() to a closed port succeeded")
	}
}

// TestCloseUnblocksRead tests that Close from another goroutine ends a
// pending ReadText
func TestCloseUnblocksRead(t *testing.T) {
	t.Parallel()

	host, cleanup := newEchoServer(t)
	defer cleanup()

	ws := New(host, true, zerolog.Nop())
	if err := ws.Connect(); err != nil {
		t.Fatalf("Connect() = %v", err)
	}

	if _, err := ws.ReadText(); err != nil {
		t.Fatalf("greeting read failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := ws.ReadText()
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := ws.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("blocked ReadText returned no error after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadText still blocked after Close")
	}
}

// TestCloseIdempotent tests repeated Close calls
func TestCloseIdempotent(t *testing.T) {
	t.Parallel()

	host, cleanup := newEchoServer(t)
	defer cleanup()

	ws := New(host, true, zerolog.Nop())
	if err := ws.Connect(); err != nil {
		t.Fatalf("Connect() = %v", err)
	}

	if err := ws.Close(); err != nil {
		t.Errorf("first Close() = %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}

	if err := ws.SendText([]byte("x")); err == nil {
		t.Error("SendText on closed transport succeeded")
	}
}
