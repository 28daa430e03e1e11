// Package deribit provides a low-latency client for the Deribit derivatives
// exchange, speaking JSON-RPC 2.0 over a single persistent secure WebSocket.
//
// The package is the concurrent message plane between the socket and
// application callbacks: a decoupled send/receive pipeline built on
// single-producer single-consumer ring queues, an O(1) dispatcher that routes
// incoming frames to per-request or per-channel handlers, token-bucket
// admission control, and the authentication and paginated historical-fetch
// protocols layered on top.
//
// # Architecture
//
// Four goroutines cooperate around two SPSC queues:
//
//	socket -> receiver -> inbound queue -> dispatcher -> registered callback
//	caller -> outbound queue -> sender -> (rate gate, token injection) -> socket
//
// The receiver blocks in the transport read and forwards each frame into the
// inbound queue; a full queue drops the frame rather than stall the socket.
// The dispatcher classifies each frame as an RPC response (it carries an
// "id") or a subscription notification (method == "subscription") and invokes
// at most one handler, synchronously, on the dispatcher goroutine. The sender
// drains the outbound queue, splices the access token into private/ requests
// and writes to the socket.
//
// Handlers are registered in fixed power-of-two tables: 4096 in-flight RPC
// slots indexed by id, and 4096 subscription slots indexed by an FNV-1a hash
// of the channel name. Registration overwrites on collision and lookups never
// allocate.
//
// # Quick start
//
//	creds, err := deribit.LoadCredentials() // DERIBIT_CLIENT_ID / _SECRET
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client, err := ws.New(deribit.Config{
//	    Testnet:     true,
//	    Insecure:    true,
//	    Credentials: creds,
//	    Logger:      deribit.NewLogger("info", true),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.RegisterSubscription("deribit_price_index.btc_usd", func(pm *deribit.ParsedMessage) {
//	    fmt.Printf("%s: %s\n", pm.Channel, pm.Data)
//	})
//
//	if err := client.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.Subscribe("deribit_price_index.btc_usd")
//
// # Message lifetimes
//
// ParsedMessage view fields (Channel, Data, Result, ErrorMsg) are byte slices
// into the inbound frame and are valid only during the callback; copy what
// must outlive the call. Handlers run on the dispatcher goroutine and should
// not block it for long.
//
// # Rate limiting
//
// Outbound requests are admitted by a token bucket holding at most 20 tokens
// refilled at 5 per second. SendRPC and Subscribe return false when denied;
// the caller decides whether to retry. The sender additionally applies a
// loose advisory flush limiter so a burst of queued frames does not hit the
// socket back to back.
//
// # Historical data
//
// The history package fetches exactly N OHLCV candles for an instrument and
// resolution by paginating public/get_tradingview_chart_data in 1000-candle
// batches over the same RPC plumbing. The candlestore package persists the
// result as CSV or a count-prefixed binary file.
package deribit
