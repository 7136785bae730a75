package worker

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/palantir/internal/adapters/mq/queue"
	"github.com/okian/palantir/internal/domain/dedupe"
	"github.com/okian/palantir/internal/domain/model"
	"github.com/okian/palantir/pkg/logger"
	"github.com/okian/palantir/pkg/metrics"
)

// Default poller configuration constants.
const (
	defaultInterval = 15 * time.Second
)

// AlertLister reads the active alerts.
type AlertLister interface {
	ListAlerts(ctx context.Context) ([]model.Alert, error)
}

// Publisher receives snapshots.
type Publisher interface {
	Publish(s queue.Snapshot) (delivered, dropped int)
}

// Worker runs until stopped.
type Worker interface {
	// Run starts the loop until ctx is canceled or Shutdown is called.
	Run(ctx context.Context)

	// Shutdown stops the loop and waits for it to exit.
	Shutdown(ctx context.Context) error
}

// Poller lists alerts on a fixed interval and publishes the result when it
// differs from the last published snapshot.
type Poller struct {
	source    AlertLister
	publisher Publisher
	name      string
	interval  time.Duration
	deduper   dedupe.Deduper

	mu        sync.Mutex
	last      string
	published bool
	// active holds the alert ids of the last successful poll.
	active map[string]struct{}

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewPoller creates a poller reading from source and publishing to publisher.
func NewPoller(source AlertLister, publisher Publisher, opts ...Option) *Poller {
	p := &Poller{
		source:    source,
		publisher: publisher,
		name:      "poller",
		interval:  defaultInterval,
		deduper:   dedupe.NewInMemoryDeduper(),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.name != "poller" {
		p.logger = p.logger.Named(p.name)
	}
	return p
}

// Run polls immediately and then once per interval.
func (p *Poller) Run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll lists alerts once and publishes the snapshot unless it matches the
// last published one. A failed poll yields a snapshot carrying the error so
// subscribers can show it. The bool reports whether the snapshot was published.
func (p *Poller) Poll(ctx context.Context) (queue.Snapshot, bool) {
	alerts, err := p.source.ListAlerts(ctx)
	snap := queue.Snapshot{Alerts: alerts, Taken: time.Now()}
	if err != nil {
		metrics.RecordFeedPollError()
		metrics.RecordErrorByComponent("poller", "list_alerts")
		p.logger.Error(ctx, "alert poll failed", logger.Error(err))
		snap.Error = err.Error()
	} else {
		metrics.UpdateActiveAlerts(len(alerts))
	}
	if snap.Alerts == nil {
		snap.Alerts = []model.Alert{}
	}

	p.mu.Lock()
	ids := make([]string, 0, len(snap.Alerts))
	current := make(map[string]struct{}, len(snap.Alerts))
	for i := range snap.Alerts {
		a := &snap.Alerts[i]
		id := dedupe.AlertID(a)
		if !p.deduper.SeenAndRecord(ctx, id) {
			snap.New = append(snap.New, a.Ref())
		}
		current[id] = struct{}{}
		ids = append(ids, id+"#"+strconv.Itoa(a.Retcode))
	}
	// A resolved alert is forgotten so it counts as new when raised again.
	// Failed polls say nothing about which alerts cleared.
	if err == nil {
		for id := range p.active {
			if _, ok := current[id]; !ok {
				p.deduper.Forget(ctx, id)
			}
		}
		p.active = current
	}
	sort.Strings(ids)
	fingerprint := strings.Join(ids, ",") + "|" + snap.Error

	unchanged := p.published && fingerprint == p.last
	p.last, p.published = fingerprint, true
	p.mu.Unlock()
	if unchanged {
		return snap, false
	}

	delivered, dropped := p.publisher.Publish(snap)
	p.logger.Debug(ctx, "alert snapshot published",
		logger.Int("alerts", len(snap.Alerts)),
		logger.Int("new", len(snap.New)),
		logger.Int("delivered", delivered),
		logger.Int("dropped", dropped),
	)
	return snap, true
}

// Shutdown stops the poller.
func (p *Poller) Shutdown(ctx context.Context) error {
	select {
	case <-p.shutdown:
	default:
		close(p.shutdown)
	}

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
