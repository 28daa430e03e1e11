package deribit

import "errors"

// Deribit WebSocket endpoints.
const (
	MainnetHost = "www.deribit.com"
	TestnetHost = "test.deribit.com"
	APIPath     = "/ws/api/v2"
)

// Reserved request ids for internal use.
const (
	// AuthRequestID is the fixed id used for the public/auth request sent
	// during Connect.
	AuthRequestID uint64 = 9001

	// SubscribeRequestID is the fixed id used by Subscribe.
	SubscribeRequestID uint64 = 1001
)

// JSON-RPC version sent on every outbound frame.
const JSONRPCVersion = "2.0"

// Standard errors.
var (
	// ErrMissingCredentials is returned when the client is constructed
	// without a client id or secret.
	ErrMissingCredentials = errors.New("deribit: client credentials not set")

	// ErrAlreadyConnected is returned by Connect on a client whose workers
	// are already running.
	ErrAlreadyConnected = errors.New("deribit: client already connected")

	// ErrNotConnected is returned when an operation requires a live
	// connection.
	ErrNotConnected = errors.New("deribit: client not connected")
)
