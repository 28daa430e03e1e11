// Package ws constructs Deribit clients. It is the public entry point; the
// implementation lives in internal/client.
package ws

import (
	"github.com/luciancaetano/deribit"
	"github.com/luciancaetano/deribit/internal/client"
)

// New wires a client from the configuration. The client is disconnected
// until Connect is called.
//
// Example:
//
//	creds, err := deribit.LoadCredentials()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c, err := ws.New(deribit.Config{Testnet: true, Credentials: creds})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := c.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
func New(cfg deribit.Config) (deribit.Client, error) {
	return client.New(cfg)
}
