// Package client implements the deribit.Client facade: it wires the
// transport, the inbound and outbound SPSC queues, the dispatcher and the
// background receiver and sender workers, owns the credentials and access
// token, and runs the dispatch loop on its own goroutine.
package client

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luciancaetano/deribit"
	"github.com/luciancaetano/deribit/internal/dispatch"
	"github.com/luciancaetano/deribit/internal/metrics"
	"github.com/luciancaetano/deribit/internal/ratelimit"
	"github.com/luciancaetano/deribit/internal/spsc"
	"github.com/luciancaetano/deribit/internal/transport"
)

// Queue capacities. Inbound is larger because bursts of notifications arrive
// faster than the dispatcher is guaranteed to drain them.
const (
	inboundCapacity  = 4096
	outboundCapacity = 1024
)

// closeWait bounds how long Close waits for the dispatcher goroutine.
const closeWait = 2 * time.Second

var (
	_ deribit.Client              = (*Client)(nil)
	_ deribit.AccessTokenProvider = (*Client)(nil)
)

// Client is the concrete deribit.Client. Construct with New.
type Client struct {
	cfg deribit.Config
	log zerolog.Logger

	ws         deribit.Transport
	dispatcher *dispatch.Dispatcher
	inbound    *spsc.Queue[[]byte]
	outbound   *spsc.Queue[[]byte]
	recv       *receiver
	send       *sender
	gate       *ratelimit.Bucket
	m          *metrics.Metrics

	token     atomic.Pointer[string]
	connected atomic.Bool
	closeOnce sync.Once

	dispatcherDone chan struct{}
}

// New validates the configuration and wires the client. The connection id is
// a fresh UUID carried on every log event, so interleaved output from
// multiple clients stays attributable.
func New(cfg deribit.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := cfg.Logger.With().
		Str("client", "deribit").
		Str("conn_id", uuid.NewString()).
		Logger()

	m := metrics.New(cfg.Metrics)

	ws := cfg.Transport
	if ws == nil {
		ws = transport.New(cfg.Host, cfg.Insecure, log)
	}

	c := &Client{
		cfg:        cfg,
		log:        log,
		ws:         ws,
		dispatcher: dispatch.New(log, m),
		inbound:    spsc.New[[]byte](inboundCapacity),
		outbound:   spsc.New[[]byte](outboundCapacity),
		gate:       ratelimit.NewDefault(),
		m:          m,
	}
	c.recv = newReceiver(ws, c.inbound, log, m)
	c.send = newSender(c.outbound, ws, c, log, m)
	return c, nil
}

// Connect establishes the transport connection, starts the receiver, sender
// and dispatcher workers and sends the authentication request.
func (c *Client) Connect() error {
	if !c.connected.CompareAndSwap(false, true) {
		return deribit.ErrAlreadyConnected
	}

	if err := c.ws.Connect(); err != nil {
		c.connected.Store(false)
		return fmt.Errorf("connect: %w", err)
	}

	c.recv.start()
	c.send.start()

	c.dispatcherDone = make(chan struct{})
	go c.dispatchLoop()

	c.authenticate()
	return nil
}

// authenticate registers the auth continuation at the reserved id and queues
// the public/auth request. The handler runs on the dispatcher goroutine and
// is the single writer of the token.
func (c *Client) authenticate() {
	c.RegisterRPC(deribit.AuthRequestID,
		func(pm *deribit.ParsedMessage) {
			if pm.AccessToken == "" {
				c.log.Error().Msg("auth response carried no access token")
				return
			}
			tok := pm.AccessToken
			c.token.Store(&tok)
			c.log.Info().Msg("authenticated, access token stored")
		},
		func(pm *deribit.ParsedMessage) {
			c.log.Error().
				Int64("code", pm.ErrorCode).
				Bytes("message", pm.ErrorMsg).
				Msg("authentication failed")
		},
	)

	params := fmt.Sprintf(
		`{"grant_type":"client_credentials","client_id":%q,"client_secret":%q}`,
		c.cfg.Credentials.ClientID, c.cfg.Credentials.ClientSecret,
	)
	if !c.SendRPC(deribit.AuthRequestID, "public/auth", params) {
		c.log.Error().Msg("auth request not queued")
		return
	}
	c.log.Info().Msg("auth request sent")
}

// RegisterRPC registers continuations for a request id. See deribit.Client.
func (c *Client) RegisterRPC(id uint64, onSuccess, onError deribit.RPCCallback) {
	c.dispatcher.RegisterRPC(id, onSuccess, onError)
}

// RegisterSubscription registers a channel handler. See deribit.Client.
func (c *Client) RegisterSubscription(channel string, handler deribit.SubscriptionCallback) {
	c.dispatcher.RegisterSubscription(channel, handler)
}

// Subscribe queues a public/subscribe request for one channel at the fixed
// subscribe id. Returns false when the rate gate denied the request or the
// outbound queue was full.
func (c *Client) Subscribe(channel string) bool {
	if !c.gate.Allow() {
		c.log.Warn().Str("channel", channel).Msg("rate limit exceeded, subscribe denied")
		c.m.IncRateLimited()
		return false
	}

	msg := fmt.Sprintf(
		`{"jsonrpc":%q,"id":%d,"method":"public/subscribe","params":{"channels":[%q]}}`,
		deribit.JSONRPCVersion, deribit.SubscribeRequestID, channel,
	)
	if !c.outbound.Push([]byte(msg)) {
		c.log.Warn().Str("channel", channel).Msg("outbound queue full, subscribe dropped")
		c.m.IncOutboundDropped()
		return false
	}
	return true
}

// SendRPC formats a JSON-RPC frame and queues it for the sender. Returns
// false when the rate gate denied it or the outbound queue was full.
func (c *Client) SendRPC(id uint64, method string, paramsJSON string) bool {
	if !c.gate.Allow() {
		c.log.Warn().Uint64("id", id).Str("method", method).Msg("rate limit hit")
		c.m.IncRateLimited()
		return false
	}

	msg := fmt.Sprintf(
		`{"jsonrpc":%q,"id":%d,"method":%q,"params":%s}`,
		deribit.JSONRPCVersion, id, method, paramsJSON,
	)
	if !c.outbound.Push([]byte(msg)) {
		c.log.Warn().Uint64("id", id).Msg("outbound queue full, request dropped")
		c.m.IncOutboundDropped()
		return false
	}
	return true
}

// AccessToken returns the token captured from the auth response, or "".
func (c *Client) AccessToken() string {
	return c.CurrentToken()
}

// CurrentToken implements deribit.AccessTokenProvider for the sender. The
// token is an atomic pointer to an immutable string: one writer (the
// dispatcher goroutine, via the auth handler), any number of readers.
func (c *Client) CurrentToken() string {
	if p := c.token.Load(); p != nil {
		return *p
	}
	return ""
}

// dispatchLoop blocks on the inbound queue and feeds each frame to the
// dispatcher. An empty frame is the shutdown sentinel; a cleared connected
// flag exits as well, so a sentinel lost to a full queue cannot wedge
// shutdown once real traffic wakes the loop.
func (c *Client) dispatchLoop() {
	defer close(c.dispatcherDone)

	for {
		msg := c.inbound.WaitAndPop()
		if !c.connected.Load() || len(msg) == 0 {
			break
		}
		c.dispatcher.Dispatch(msg)
	}

	c.log.Info().Msg("dispatcher exiting")
}

// Close shuts the client down: it clears the connected flag, unblocks the
// dispatcher with the empty sentinel, stops the sender, stops the receiver
// (which closes the transport under it), and waits for the dispatcher
// goroutine. Safe to call repeatedly and from any goroutine.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		wasConnected := c.connected.Swap(false)

		c.inbound.Push(nil)

		if !wasConnected {
			return
		}

		c.recv.requestStop()
		c.send.stop()
		c.recv.stop()

		select {
		case <-c.dispatcherDone:
		case <-time.After(closeWait):
			c.log.Warn().Msg("dispatcher did not exit in time")
		}
		c.log.Info().Msg("client closed")
	})
	return nil
}
