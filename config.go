package deribit

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Credentials holds the OAuth2 client-credentials pair used by public/auth.
type Credentials struct {
	ClientID     string `env:"DERIBIT_CLIENT_ID,required"`
	ClientSecret string `env:"DERIBIT_CLIENT_SECRET,required"`
}

// LoadCredentials reads the credentials from the DERIBIT_CLIENT_ID and
// DERIBIT_CLIENT_SECRET environment variables. A missing variable is a fatal
// configuration error and is reported here rather than at send time.
func LoadCredentials() (Credentials, error) {
	var c Credentials
	if err := env.Parse(&c); err != nil {
		return Credentials{}, fmt.Errorf("deribit: load credentials: %w", err)
	}
	return c, nil
}

// Config configures a Client.
type Config struct {
	// Testnet selects test.deribit.com instead of www.deribit.com.
	Testnet bool

	// Host overrides the derived hostname when non-empty. Mostly useful for
	// tests pointed at a local server.
	Host string

	// Insecure disables TLS certificate verification. Intended for the
	// testnet endpoint only.
	Insecure bool

	// Credentials used by the public/auth request sent during Connect.
	Credentials Credentials

	// Logger receives structured log events from all components. The zero
	// value discards everything; use NewLogger for a configured one.
	Logger zerolog.Logger

	// Transport substitutes a custom transport implementation. When nil the
	// Gorilla WebSocket transport is used with the settings above.
	Transport Transport

	// Metrics, when non-nil, receives the client's Prometheus collectors
	// (queue drops, dispatch counts, rate-limit denials).
	Metrics prometheus.Registerer
}

// Validate fills derived defaults and checks the configuration. It is called
// by the constructor; calling it again is harmless.
func (c *Config) Validate() error {
	if c.Host == "" {
		if c.Testnet {
			c.Host = TestnetHost
		} else {
			c.Host = MainnetHost
		}
	}
	if c.Credentials.ClientID == "" || c.Credentials.ClientSecret == "" {
		return ErrMissingCredentials
	}
	return nil
}
