package client

import (
	"bytes"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/deribit"
	"github.com/luciancaetano/deribit/internal/metrics"
	"github.com/luciancaetano/deribit/internal/spsc"
)

// Advisory flush limiter. Admission is charged once, at the facade; this
// only keeps a queued burst from hitting the socket back to back.
const (
	flushPerSecond = rate.Limit(100)
	flushBurst     = 200
)

var privateMarker = []byte(`"private/`)

// sender drains the outbound queue and writes frames to the transport,
// injecting the access token into private/ requests. It owns the write side
// of the transport and never closes it.
type sender struct {
	queue *spsc.Queue[[]byte]
	ws    deribit.Transport
	auth  deribit.AccessTokenProvider
	flush *rate.Limiter

	running atomic.Bool
	done    chan struct{}

	log zerolog.Logger
	m   *metrics.Metrics
}

func newSender(queue *spsc.Queue[[]byte], ws deribit.Transport, auth deribit.AccessTokenProvider, log zerolog.Logger, m *metrics.Metrics) *sender {
	return &sender{
		queue: queue,
		ws:    ws,
		auth:  auth,
		flush: rate.NewLimiter(flushPerSecond, flushBurst),
		log:   log.With().Str("component", "sender").Logger(),
		m:     m,
	}
}

func (s *sender) start() {
	s.running.Store(true)
	s.done = make(chan struct{})
	s.log.Info().Msg("sender starting")
	go s.run()
}

// stop flips the running flag and waits for the loop to exit. The transport
// stays open; closing it is the receiver's job during shutdown.
func (s *sender) stop() {
	s.running.Store(false)
	if s.done != nil {
		<-s.done
	}
	s.log.Info().Msg("sender stopped")
}

func (s *sender) run() {
	defer close(s.done)

	for s.running.Load() {
		if !s.flush.Allow() {
			time.Sleep(time.Millisecond)
			continue
		}

		msg, ok := s.queue.Pop()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}

		if bytes.Contains(msg, privateMarker) {
			msg = s.injectToken(msg)
		}

		if err := s.ws.SendText(msg); err != nil {
			s.log.Error().Err(err).Msg("send failed")
			continue
		}
		s.m.IncSent()
	}
}

// injectToken splices `,"access_token":"<token>"` just before the frame's
// terminating brace. An empty token means the client has not authenticated
// yet; the frame goes out as-is and the server's auth error comes back
// through the dispatcher like any other RPC error.
func (s *sender) injectToken(msg []byte) []byte {
	token := s.auth.CurrentToken()
	if token == "" {
		s.log.Warn().Msg("private request with empty access token")
		return msg
	}

	pos := bytes.LastIndexByte(msg, '}')
	if pos < 0 {
		return msg
	}

	out := make([]byte, 0, len(msg)+len(token)+len(`,"access_token":""`))
	out = append(out, msg[:pos]...)
	out = append(out, `,"access_token":"`...)
	out = append(out, token...)
	out = append(out, '"')
	out = append(out, msg[pos:]...)
	return out
}
