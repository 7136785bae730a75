// Package worker polls the palantir server and publishes alert snapshots.
package worker

import (
	"time"

	"github.com/okian/palantir/internal/domain/dedupe"
	"github.com/okian/palantir/pkg/logger"
)

// Option applies a configuration option to the Poller.
type Option func(*Poller)

// WithName sets the poller name for identification and logging.
func WithName(name string) Option {
	return func(p *Poller) {
		if name != "" {
			p.name = name
		}
	}
}

// WithLogger sets a custom logger for the poller.
func WithLogger(logger logger.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithInterval sets the time between polls.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithDeduper sets the store of alerts already announced.
func WithDeduper(d dedupe.Deduper) Option {
	return func(p *Poller) {
		if d != nil {
			p.deduper = d
		}
	}
}
