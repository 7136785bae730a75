// Package service provides the palantir views and the live alert feed used
// by the dashboard and the CLI.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/palantir/internal/adapters/mq/queue"
	"github.com/okian/palantir/internal/adapters/mq/worker"
	"github.com/okian/palantir/internal/domain/model"
	"github.com/okian/palantir/pkg/logger"
	"github.com/okian/palantir/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultRefreshInterval = 15 * time.Second
	defaultFeedQueueSize   = 8
	stopTimeout            = 5 * time.Second
)

// Service builds views over a Backend and runs the live alert feed.
type Service struct {
	mu sync.RWMutex

	backend Backend

	refreshInterval time.Duration
	feedQueueSize   int

	feed    *queue.InMemoryQueue
	poller  *worker.Poller
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRefreshInterval sets how often the alert feed polls the server.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshInterval = d
		}
	}
}

// WithFeedQueueSize sets how many snapshots a feed subscriber may have pending.
func WithFeedQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.feedQueueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a service over backend.
func New(backend Backend, opts ...Option) *Service {
	s := &Service{
		backend:         backend,
		refreshInterval: defaultRefreshInterval,
		feedQueueSize:   defaultFeedQueueSize,
		logger:          logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Alerts returns an unloaded alerts view.
func (s *Service) Alerts() *AlertsView {
	return &AlertsView{backend: s.backend, logger: s.logger.Named("alerts")}
}

// Minions returns an unloaded minions view.
func (s *Service) Minions() *MinionsView {
	return &MinionsView{backend: s.backend, logger: s.logger.Named("minions")}
}

// Minion returns an unloaded single-minion view.
func (s *Service) Minion() *MinionView {
	return &MinionView{backend: s.backend, logger: s.logger.Named("minion")}
}

// Checks returns an unloaded checks view.
func (s *Service) Checks() *ChecksView {
	return &ChecksView{backend: s.backend, logger: s.logger.Named("checks")}
}

// Check returns an unloaded single-check view.
func (s *Service) Check() *CheckView {
	return &CheckView{backend: s.backend, logger: s.logger.Named("check")}
}

// Detail returns an empty detail view.
func (s *Service) Detail() *DetailView {
	return &DetailView{backend: s.backend, logger: s.logger.Named("detail")}
}

// OpenDetail shows the detail for one minion/check pair. fromStatus selects
// the status-row flavour, which fetches the alert; otherwise the pair is
// treated as an alert row and its status is fetched.
func (s *Service) OpenDetail(ctx context.Context, ref model.AlertRef, fromStatus bool) (*Detail, error) {
	v := s.Detail()
	if fromStatus {
		row, err := s.backend.GetMinionCheck(ctx, ref.Minion, ref.Check)
		if err != nil {
			return nil, fmt.Errorf("get minion check %s: %w", ref.Key(), err)
		}
		if row.Minion == "" {
			row.Minion = ref.Minion
		}
		if row.CheckName() == "" {
			row.Check = ref.Check
		}
		if err := v.ShowStatus(ctx, *row); err != nil {
			return nil, err
		}
	} else {
		row, err := s.backend.GetAlert(ctx, ref.Minion, ref.Check)
		if err != nil {
			return nil, fmt.Errorf("get alert %s: %w", ref.Key(), err)
		}
		if err := v.ShowAlert(ctx, *row); err != nil {
			return nil, err
		}
	}
	d, _ := v.Current()
	return &d, nil
}

// RunCheck runs a check now.
func (s *Service) RunCheck(ctx context.Context, name string) (*model.RunResult, error) {
	metrics.RecordViewAction("check", "run")
	s.logger.Info(ctx, "running check", logger.String("check", name))
	res, err := s.backend.RunCheck(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("run check %s: %w", name, err)
	}
	return res, nil
}

// DeleteMinion removes a minion from the server.
func (s *Service) DeleteMinion(ctx context.Context, name string) error {
	metrics.RecordViewAction("minion", "delete")
	s.logger.Info(ctx, "deleting minion", logger.String("minion", name))
	if err := s.backend.DeleteMinion(ctx, name); err != nil {
		return fmt.Errorf("delete minion %s: %w", name, err)
	}
	return nil
}

// Prune drops minions the server no longer tracks.
func (s *Service) Prune(ctx context.Context) (*model.PruneResult, error) {
	metrics.RecordViewAction("minions", "prune")
	res, err := s.backend.Prune(ctx)
	if err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}
	s.logger.Info(ctx, "pruned minions",
		logger.Strings("removed", res.Removed),
		logger.Strings("added", res.Added),
	)
	return res, nil
}

// Handlers lists the server's alert handlers.
func (s *Service) Handlers(ctx context.Context) (map[string]string, error) {
	h, err := s.backend.ListHandlers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list handlers: %w", err)
	}
	return h, nil
}

// Ping checks that the server answers.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.Handlers(ctx)
	return err
}

// Start launches the alert feed poller.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.feed = queue.NewInMemoryQueue(queue.WithCapacity(s.feedQueueSize))
	s.poller = worker.NewPoller(s.backend, s.feed,
		worker.WithInterval(s.refreshInterval),
		worker.WithLogger(s.logger.Named("poller")),
	)
	go s.poller.Run(ctx)
	s.started = true

	s.logger.Info(ctx, "alert feed started",
		logger.Duration("interval", s.refreshInterval),
		logger.Int("queue_size", s.feedQueueSize),
	)
	return nil
}

// Stop stops the poller and closes every feed subscription.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := s.poller.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "poller shutdown", logger.Error(err))
	}
	_ = s.feed.Close()
	s.started = false
}

// Subscribe registers a feed subscriber.
func (s *Service) Subscribe() (*queue.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	return s.feed.Subscribe()
}
