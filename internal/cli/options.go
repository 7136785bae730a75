package cli

import (
	"time"

	service "github.com/okian/palantir/internal/app"
)

// Option configures a CLI.
type Option func(*CLI)

// WithBackend uses b instead of building an upstream client from config.
func WithBackend(b service.Backend) Option {
	return func(c *CLI) {
		c.backend = b
	}
}

// WithClock sets the clock relative times are computed against.
func WithClock(now func() time.Time) Option {
	return func(c *CLI) {
		if now != nil {
			c.now = now
		}
	}
}
