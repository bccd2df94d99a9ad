package config

import "time"

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	ClientURL   string `yaml:"client_url"`
	JWTSecret   string `yaml:"jwt_secret"`

	Gateway      GatewayConfig      `yaml:"gateway"`
	Stripe       StripeConfig       `yaml:"stripe"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Checkout     CheckoutConfig     `yaml:"checkout"`
}

// GatewayConfig points at the Plaen backend's invoice and payment endpoints.
type GatewayConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// StripeConfig configures the external redirect rail. Leaving the secret key
// empty disables the Stripe-hosted checkout.
type StripeConfig struct {
	SecretKey  string `yaml:"secret_key"`
	SuccessURL string `yaml:"success_url"`
	CancelURL  string `yaml:"cancel_url"`
}

// TelemetryConfig configures the analytics sink. Leaving the endpoint empty
// disables telemetry.
type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint"`
	WriteKey string `yaml:"write_key"`
}

type ConnectivityConfig struct {
	ProbeURL string        `yaml:"probe_url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// CheckoutConfig tunes the confirmation poller. Zero values fall back to the
// defaults (5s interval, 60 attempts).
type CheckoutConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPollAttempts int           `yaml:"max_poll_attempts"`
}
