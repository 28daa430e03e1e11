// Package dispatch parses inbound JSON-RPC frames and routes each one to at
// most one registered handler: an RPC continuation matched by request id, or
// a subscription callback matched by channel hash.
//
// Both handler tables are fixed power-of-two arrays. Slots are published
// with atomic pointer stores, so a caller that registers a handler before
// enqueuing the matching request is guaranteed to be seen by the dispatcher
// goroutine when the response arrives; collisions overwrite and a missed
// lookup is silently ignored.
package dispatch

import (
	"sync/atomic"

	"github.com/buger/jsonparser"
	"github.com/rs/zerolog"

	"github.com/luciancaetano/deribit"
	"github.com/luciancaetano/deribit/internal/metrics"
)

// Table sizes; both must stay powers of two so indices reduce to a mask.
const (
	// MaxInflight bounds the number of concurrently tracked RPC requests.
	MaxInflight = 4096

	// SubTableSize bounds the subscription handler table.
	SubTableSize = 4096
)

// rpcSlot holds the continuations for one in-flight request id. A slot is
// active when at least one callback is non-nil.
type rpcSlot struct {
	onSuccess deribit.RPCCallback
	onError   deribit.RPCCallback
}

// Dispatcher routes parsed frames to registered handlers. A single goroutine
// calls Dispatch; Register* may be called from any goroutine.
type Dispatcher struct {
	rpc [MaxInflight]atomic.Pointer[rpcSlot]
	sub [SubTableSize]atomic.Pointer[deribit.SubscriptionCallback]

	log zerolog.Logger
	m   *metrics.Metrics
}

// New creates a dispatcher with empty tables.
func New(log zerolog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		log: log.With().Str("component", "dispatcher").Logger(),
		m:   m,
	}
}

// RegisterRPC stores the continuations for a request id, overwriting
// whatever occupied the slot at id modulo MaxInflight. No allocation beyond
// the slot itself; no locking.
func (d *Dispatcher) RegisterRPC(id uint64, onSuccess, onError deribit.RPCCallback) {
	d.rpc[id&(MaxInflight-1)].Store(&rpcSlot{onSuccess: onSuccess, onError: onError})
}

// RegisterSubscription stores the handler for a channel, overwriting the
// slot at hash(channel) modulo SubTableSize.
func (d *Dispatcher) RegisterSubscription(channel string, handler deribit.SubscriptionCallback) {
	d.sub[fnv1a32([]byte(channel))&(SubTableSize-1)].Store(&handler)
}

// Dispatch classifies one frame and invokes at most one handler,
// synchronously. Malformed frames are discarded with a debug log; responses
// carrying neither result nor error are ignored after their timing fields
// have been consumed.
//
// The ParsedMessage passed to the handler borrows from frame; its views are
// invalid once the handler returns.
func (d *Dispatcher) Dispatch(frame []byte) {
	pm := deribit.ParsedMessage{}

	id, err := jsonparser.GetUint64(frame, "id")
	switch err {
	case nil:
		pm.IsRPC = true
		pm.ID = id
	case jsonparser.KeyPathNotFoundError:
		// Not a response; may still be a notification.
	default:
		d.log.Debug().Err(err).Msg("discarding malformed frame")
		d.m.IncParseErrors()
		return
	}

	if !pm.IsRPC {
		if method, merr := jsonparser.GetUnsafeString(frame, "method"); merr == nil && method == "subscription" {
			pm.IsSubscription = true
		}
	}

	// Timing fields are consumed eagerly for both paths; absent is fine.
	pm.UsIn, _ = jsonparser.GetUint64(frame, "usIn")
	pm.UsOut, _ = jsonparser.GetUint64(frame, "usOut")
	pm.UsDiff, _ = jsonparser.GetUint64(frame, "usDiff")

	switch {
	case pm.IsRPC:
		d.dispatchRPC(&pm, frame)
	case pm.IsSubscription:
		d.dispatchSubscription(&pm, frame)
	default:
		d.m.IncDispatched(metrics.KindIgnored)
	}
}

func (d *Dispatcher) dispatchRPC(pm *deribit.ParsedMessage, frame []byte) {
	slot := d.rpc[pm.ID&(MaxInflight-1)].Load()

	if errVal, dt, _, err := jsonparser.Get(frame, "error"); err == nil && dt != jsonparser.Null {
		pm.IsError = true
		pm.ErrorCode, _ = jsonparser.GetInt(errVal, "code")
		pm.ErrorMsg, _, _, _ = jsonparser.Get(errVal, "message")

		d.m.IncDispatched(metrics.KindRPC)
		if slot != nil && slot.onError != nil {
			slot.onError(pm)
		}
		return
	}

	result, dt, _, err := jsonparser.Get(frame, "result")
	if err != nil {
		// Neither result nor error: nothing to deliver.
		d.m.IncDispatched(metrics.KindIgnored)
		return
	}
	pm.Result = result

	// The auth response carries the token inside the result object; it is
	// the one field copied out, since handlers may stash it.
	if dt == jsonparser.Object {
		if token, terr := jsonparser.GetString(result, "access_token"); terr == nil {
			pm.AccessToken = token
		}
	}

	d.m.IncDispatched(metrics.KindRPC)
	if slot != nil && slot.onSuccess != nil {
		slot.onSuccess(pm)
	}
}

func (d *Dispatcher) dispatchSubscription(pm *deribit.ParsedMessage, frame []byte) {
	channel, _, _, err := jsonparser.Get(frame, "params", "channel")
	if err != nil {
		return
	}
	data, _, _, err := jsonparser.Get(frame, "params", "data")
	if err != nil {
		return
	}
	pm.Channel = channel
	pm.Data = data

	d.m.IncDispatched(metrics.KindSubscription)
	if p := d.sub[fnv1a32(channel)&(SubTableSize-1)].Load(); p != nil && *p != nil {
		(*p)(pm)
	}
}
