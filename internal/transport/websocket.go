// Package transport implements the deribit.Transport contract on top of the
// Gorilla WebSocket library: synchronous text-frame send and read over a
// single TLS connection, with an idempotent close that unblocks a pending
// read from any goroutine.
package transport

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/luciancaetano/deribit"
)

const handshakeTimeout = 10 * time.Second

var _ deribit.Transport = (*WebSocket)(nil)

// WebSocket connects to a Deribit endpoint over wss. One goroutine may read
// while another writes; that pairing is what the client's receiver and
// sender workers rely on.
type WebSocket struct {
	host     string
	insecure bool
	log      zerolog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// New creates a transport for the given host. insecure disables certificate
// verification (testnet).
func New(host string, insecure bool, log zerolog.Logger) *WebSocket {
	return &WebSocket{
		host:     host,
		insecure: insecure,
		log:      log.With().Str("component", "transport").Str("host", host).Logger(),
	}
}

// Connect resolves and dials the endpoint, performing the TLS and WebSocket
// handshakes. SNI is set to the configured hostname.
func (w *WebSocket) Connect() error {
	u := url.URL{Scheme: "wss", Host: w.host, Path: "/ws/api/v2"}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		TLSClientConfig: &tls.Config{
			ServerName:         w.host,
			InsecureSkipVerify: w.insecure,
		},
	}

	w.log.Info().Str("url", u.String()).Msg("connecting")
	conn, resp, err := dialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket handshake with %s failed (status %s): %w", w.host, resp.Status, err)
		}
		return fmt.Errorf("websocket handshake with %s failed: %w", w.host, err)
	}

	w.mu.Lock()
	w.conn = conn
	w.closed = false
	w.mu.Unlock()

	w.log.Info().Msg("connected")
	return nil
}

// SendText writes one text frame. Transient write errors are logged and
// returned; the sender worker decides whether they matter.
func (w *WebSocket) SendText(msg []byte) error {
	conn := w.current()
	if conn == nil {
		return fmt.Errorf("send on closed transport")
	}

	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		w.log.Error().Err(err).Msg("write failed")
		return err
	}
	w.log.Debug().Int("bytes", len(msg)).Msg("frame sent")
	return nil
}

// ReadText blocks until one text frame arrives. It returns an error when the
// connection was closed, locally or by the peer; callers treat an error and
// an empty frame uniformly as end of stream.
func (w *WebSocket) ReadText() ([]byte, error) {
	conn := w.current()
	if conn == nil {
		return nil, fmt.Errorf("read on closed transport")
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Close initiates a normal WebSocket close and tears down the connection. It
// is idempotent; a concurrent blocked ReadText returns with an error.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.conn == nil {
		return nil
	}
	w.closed = true

	// Best effort close frame; the peer may already be gone.
	deadline := time.Now().Add(time.Second)
	frame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, frame, deadline)

	err := w.conn.Close()
	w.log.Info().Msg("closed")
	return err
}

func (w *WebSocket) current() *websocket.Conn {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.conn
}
