package deribit

import (
	"errors"
	"os"
	"testing"
)

// TestValidateDerivesHost tests the testnet/mainnet host selection
func TestValidateDerivesHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "mainnet default", cfg: Config{}, want: MainnetHost},
		{name: "testnet", cfg: Config{Testnet: true}, want: TestnetHost},
		{name: "override wins", cfg: Config{Testnet: true, Host: "localhost:9443"}, want: "localhost:9443"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := tt.cfg
			cfg.Credentials = Credentials{ClientID: "id", ClientSecret: "secret"}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			if cfg.Host != tt.want {
				t.Errorf("Host = %q, want %q", cfg.Host, tt.want)
			}
		})
	}
}

// TestValidateRequiresCredentials tests the fatal configuration error
func TestValidateRequiresCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		creds Credentials
	}{
		{name: "both missing", creds: Credentials{}},
		{name: "missing secret", creds: Credentials{ClientID: "id"}},
		{name: "missing id", creds: Credentials{ClientSecret: "secret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Config{Credentials: tt.creds}
			if err := cfg.Validate(); !errors.Is(err, ErrMissingCredentials) {
				t.Errorf("Validate() = %v, want ErrMissingCredentials", err)
			}
		})
	}
}

// TestLoadCredentials tests reading the credential pair from the environment
func TestLoadCredentials(t *testing.T) {
	t.Setenv("DERIBIT_CLIENT_ID", "env-id")
	t.Setenv("DERIBIT_CLIENT_SECRET", "env-secret")

	creds, err := LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials() = %v", err)
	}
	if creds.ClientID != "env-id" || creds.ClientSecret != "env-secret" {
		t.Errorf("LoadCredentials() = %+v, want the env values", creds)
	}
}

// TestLoadCredentialsMissing tests that an unset variable is an error
func TestLoadCredentialsMissing(t *testing.T) {
	t.Setenv("DERIBIT_CLIENT_ID", "env-id")
	t.Setenv("DERIBIT_CLIENT_SECRET", "placeholder")
	os.Unsetenv("DERIBIT_CLIENT_SECRET")

	if _, err := LoadCredentials(); err == nil {
		t.Error("LoadCredentials() succeeded with DERIBIT_CLIENT_SECRET unset")
	}
}
