package client

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/luciancaetano/deribit"
	"github.com/luciancaetano/deribit/internal/metrics"
	"github.com/luciancaetano/deribit/internal/spsc"
)

// receiver drains inbound frames from the transport into the inbound queue.
// It owns the read side of the transport; nothing else reads.
type receiver struct {
	ws    deribit.Transport
	queue *spsc.Queue[[]byte]

	running atomic.Bool
	done    chan struct{}

	log zerolog.Logger
	m   *metrics.Metrics
}

func newReceiver(ws deribit.Transport, queue *spsc.Queue[[]byte], log zerolog.Logger, m *metrics.Metrics) *receiver {
	return &receiver{
		ws:    ws,
		queue: queue,
		log:   log.With().Str("component", "receiver").Logger(),
		m:     m,
	}
}

func (r *receiver) start() {
	r.running.Store(true)
	r.done = make(chan struct{})
	r.log.Info().Msg("receiver starting")
	go r.run()
}

// requestStop flips the running flag so the loop exits at the next iteration
// boundary. It does not unblock an in-flight read; stop does that by closing
// the transport.
func (r *receiver) requestStop() {
	r.running.Store(false)
}

// stop flips the flag, closes the transport to unblock the pending read, and
// waits for the loop to exit. A close initiated elsewhere makes the read
// return an error, which the loop treats the same way.
func (r *receiver) stop() {
	r.running.Store(false)
	_ = r.ws.Close()
	if r.done != nil {
		<-r.done
	}
	r.log.Info().Msg("receiver stopped")
}

func (r *receiver) run() {
	defer close(r.done)

	for r.running.Load() {
		msg, err := r.ws.ReadText()
		if err != nil || len(msg) == 0 {
			// End of stream, whether a clean close or a failure.
			r.log.Debug().Err(err).Msg("read ended")
			return
		}

		if !r.queue.Push(msg) {
			// Blocking here would starve the socket and risk a broker-side
			// disconnect, so the frame is dropped instead.
			r.log.Warn().Msg("inbound queue full: dropping frame")
			r.m.IncInboundDropped()
		}
	}
}
