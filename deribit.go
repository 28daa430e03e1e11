package deribit

// RPCCallback is invoked when a response for a previously registered request
// id arrives. The ParsedMessage views (Result, ErrorMsg) borrow from the
// inbound frame buffer and are only valid for the duration of the call;
// callbacks that need the data afterwards must copy it.
type RPCCallback func(pm *ParsedMessage)

// SubscriptionCallback is invoked for notifications pushed by the server on a
// registered channel. The Channel and Data views borrow from the inbound
// frame buffer and are only valid for the duration of the call.
type SubscriptionCallback func(pm *ParsedMessage)

// Client is a low-latency Deribit JSON-RPC 2.0 client over a single
// persistent WebSocket connection.
//
// The client decouples the socket from application callbacks through a pair
// of single-producer single-consumer queues: a background receiver drains
// frames from the socket into the inbound queue, a dedicated dispatcher
// goroutine routes each frame to a registered handler, and a background
// sender flushes the outbound queue to the socket. Requests are admitted
// through a token bucket (20 burst, 5 per second refill).
//
// Example usage:
//
//	creds, _ := deribit.LoadCredentials()
//	client, err := ws.New(deribit.Config{
//	    Testnet:     true,
//	    Credentials: creds,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.RegisterSubscription("deribit_price_index.btc_usd", func(pm *deribit.ParsedMessage) {
//	    fmt.Printf("tick: %s\n", pm.Data)
//	})
//
//	if err := client.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	client.Subscribe("deribit_price_index.btc_usd")
type Client interface {
	// Connect establishes the WebSocket connection, starts the receiver,
	// sender and dispatcher workers, and initiates authentication with the
	// client credentials the client was constructed with.
	//
	// Returns an error if the transport handshake fails. Authentication is
	// asynchronous; its outcome is observed through AccessToken becoming
	// non-empty, or through an RPC error logged on the auth request id.
	Connect() error

	// RegisterRPC registers success and error callbacks for a request id.
	//
	// The dispatcher stores the callbacks in a fixed table of 4096 slots
	// indexed by id modulo the table size. Registering a new handler at an
	// aliasing id overwrites the previous one; callers must pick ids that do
	// not collide while both requests are in flight. Either callback may be
	// nil. Exactly one of the two is invoked per response that carries the
	// id.
	RegisterRPC(id uint64, onSuccess, onError RPCCallback)

	// RegisterSubscription registers a callback for a channel name.
	//
	// The channel string is hashed (FNV-1a, 32 bit) into a fixed table of
	// 4096 slots. Distinct channels that hash to the same slot overwrite
	// each other; namespaced Deribit channel names make accidental aliasing
	// unlikely. Notifications for channels with no registered handler are
	// silently ignored.
	RegisterSubscription(channel string, handler SubscriptionCallback)

	// Subscribe formats and enqueues a public/subscribe request for a single
	// channel, using the fixed request id SubscribeRequestID.
	//
	// Returns false when the request was denied by the rate gate or the
	// outbound queue was full; the subscription request is dropped in that
	// case and the caller decides whether to retry.
	Subscribe(channel string) bool

	// SendRPC formats and enqueues a JSON-RPC request.
	//
	// paramsJSON must be a preformatted JSON value for the params field.
	// Methods in the private/ namespace have the current access token
	// injected by the sender just before the frame is written. Returns false
	// when the rate gate denied the request or the outbound queue was full.
	//
	// There is no cross-goroutine happens-before between SendRPC returning
	// and the response callback firing; callers synchronize with their own
	// primitives (see the history package for the canonical pattern).
	SendRPC(id uint64, method string, paramsJSON string) bool

	// AccessToken returns the access token obtained from authentication, or
	// the empty string before the auth response has arrived.
	AccessToken() string

	// Close stops the workers, closes the transport and waits for the
	// dispatcher goroutine to exit. It is idempotent and safe to call from
	// any goroutine.
	Close() error
}

// AccessTokenProvider supplies the current access token to components that
// must not depend on the client type itself (the sender injects tokens into
// private/ requests through this interface).
type AccessTokenProvider interface {
	// CurrentToken returns the current access token, or "" when the client
	// has not authenticated yet.
	CurrentToken() string
}

// Transport is the synchronous text-frame contract the client needs from a
// WebSocket implementation. The default implementation uses the Gorilla
// WebSocket library; tests substitute in-memory fakes.
//
// The transport must support one concurrent reader and one concurrent
// writer: the receiver worker owns the read side and the sender worker owns
// the write side.
type Transport interface {
	// Connect establishes the secure WebSocket connection. Called once, by
	// the client, before the workers start.
	Connect() error

	// SendText writes one UTF-8 text frame.
	SendText(msg []byte) error

	// ReadText reads one text frame. It returns an error (or an empty frame)
	// when the connection is closed or shutting down; the receiver treats
	// both uniformly as end of stream.
	ReadText() ([]byte, error)

	// Close initiates a normal WebSocket close. It must be idempotent and
	// callable from any goroutine, including concurrently with a blocked
	// ReadText, which it unblocks.
	Close() error
}
