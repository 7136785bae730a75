// Package config defines dashboard and CLI configuration and its loading.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - All loading functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig.
package config

import "time"

// Config contains process configuration shared by the dashboard and the CLI.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the dashboard HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ServerURL is the base URL of the palantir server API.
	ServerURL string `koanf:"server_url"`

	// AuthToken is sent as a bearer token on every upstream request when set.
	AuthToken string `koanf:"auth_token"`

	// RequestTimeoutMS bounds each upstream request.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// RefreshIntervalMS is how often the live feed polls for alerts.
	RefreshIntervalMS int `koanf:"refresh_interval_ms"`

	// FeedQueueSize bounds the per-subscriber snapshot queue of the live feed.
	FeedQueueSize int `koanf:"feed_queue_size"`

	// Routes overrides upstream endpoint paths by route name,
	// e.g. palantir_list_alerts: /palantir/alert/list.
	Routes map[string]string `koanf:"routes"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		ServerURL:         "http://localhost:6543",
		RequestTimeoutMS:  10_000,
		RefreshIntervalMS: 15_000,
		FeedQueueSize:     8,
		Routes:            map[string]string{},
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// RefreshInterval returns RefreshIntervalMS as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMS) * time.Millisecond
}
