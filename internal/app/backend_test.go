package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/palantir/internal/domain/model"
)

var errBackend = errors.New("backend down")

type call struct {
	Method  string
	Minion  string
	Names   []string
	Enabled bool
	Refs    []model.AlertRef
}

// fakeBackend serves canned data and records every write.
type fakeBackend struct {
	mu sync.Mutex

	alerts   []model.Alert
	minions  []model.Minion
	checks   []model.Check
	statuses map[string][]model.CheckStatus
	minion   map[string]*model.Minion
	check    map[string]*model.Check
	alert    map[string]*model.Alert
	status   map[string]*model.CheckStatus
	handlers map[string]string

	// gate, when set for a method, blocks the call until it is closed.
	gate    map[string]chan struct{}
	failOn  map[string]bool
	calls   []call
	reads   []string
	running *model.RunResult
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		minion:   map[string]*model.Minion{},
		check:    map[string]*model.Check{},
		alert:    map[string]*model.Alert{},
		status:   map[string]*model.CheckStatus{},
		statuses: map[string][]model.CheckStatus{},
		handlers: map[string]string{},
		gate:     map[string]chan struct{}{},
		failOn:   map[string]bool{},
	}
}

func (f *fakeBackend) enter(ctx context.Context, method, key string) error {
	f.mu.Lock()
	f.reads = append(f.reads, method+" "+key)
	gate := f.gate[method+" "+key]
	fail := f.failOn[method]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return fmt.Errorf("%s: %w", method, errBackend)
	}
	return nil
}

func (f *fakeBackend) record(c call) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	fail := f.failOn[c.Method]
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("%s: %w", c.Method, errBackend)
	}
	return nil
}

func (f *fakeBackend) writes() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeBackend) ListMinions(ctx context.Context) ([]model.Minion, error) {
	if err := f.enter(ctx, "ListMinions", ""); err != nil {
		return nil, err
	}
	return append([]model.Minion(nil), f.minions...), nil
}

func (f *fakeBackend) ListChecks(ctx context.Context) ([]model.Check, error) {
	if err := f.enter(ctx, "ListChecks", ""); err != nil {
		return nil, err
	}
	return append([]model.Check(nil), f.checks...), nil
}

func (f *fakeBackend) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	if err := f.enter(ctx, "ListAlerts", ""); err != nil {
		return nil, err
	}
	return append([]model.Alert(nil), f.alerts...), nil
}

func (f *fakeBackend) ListMinionChecks(ctx context.Context) (map[string][]model.CheckStatus, error) {
	if err := f.enter(ctx, "ListMinionChecks", ""); err != nil {
		return nil, err
	}
	return f.statuses, nil
}

func (f *fakeBackend) GetMinion(ctx context.Context, name string) (*model.Minion, error) {
	if err := f.enter(ctx, "GetMinion", name); err != nil {
		return nil, err
	}
	m, ok := f.minion[name]
	if !ok {
		return nil, errBackend
	}
	cp := *m
	cp.Checks = append([]model.CheckStatus(nil), m.Checks...)
	return &cp, nil
}

func (f *fakeBackend) GetCheck(ctx context.Context, name string) (*model.Check, error) {
	if err := f.enter(ctx, "GetCheck", name); err != nil {
		return nil, err
	}
	c, ok := f.check[name]
	if !ok {
		return nil, errBackend
	}
	cp := *c
	cp.Results = append([]model.CheckStatus(nil), c.Results...)
	return &cp, nil
}

func (f *fakeBackend) GetAlert(ctx context.Context, minion, check string) (*model.Alert, error) {
	key := minion + "/" + check
	if err := f.enter(ctx, "GetAlert", key); err != nil {
		return nil, err
	}
	a, ok := f.alert[key]
	if !ok {
		return nil, errBackend
	}
	cp := *a
	return &cp, nil
}

func (f *fakeBackend) GetMinionCheck(ctx context.Context, minion, check string) (*model.CheckStatus, error) {
	key := minion + "/" + check
	if err := f.enter(ctx, "GetMinionCheck", key); err != nil {
		return nil, err
	}
	s, ok := f.status[key]
	if !ok {
		return nil, errBackend
	}
	cp := *s
	return &cp, nil
}

func (f *fakeBackend) ToggleMinions(ctx context.Context, minions []string, enabled bool) error {
	return f.record(call{Method: "ToggleMinions", Names: minions, Enabled: enabled})
}

func (f *fakeBackend) ToggleChecks(ctx context.Context, checks []string, enabled bool) error {
	return f.record(call{Method: "ToggleChecks", Names: checks, Enabled: enabled})
}

func (f *fakeBackend) ToggleMinionChecks(ctx context.Context, minion string, checks []string, enabled bool) error {
	return f.record(call{Method: "ToggleMinionChecks", Minion: minion, Names: checks, Enabled: enabled})
}

func (f *fakeBackend) ResolveAlerts(ctx context.Context, alerts []model.AlertRef) error {
	return f.record(call{Method: "ResolveAlerts", Refs: alerts})
}

func (f *fakeBackend) RunCheck(ctx context.Context, name string) (*model.RunResult, error) {
	if err := f.record(call{Method: "RunCheck", Names: []string{name}}); err != nil {
		return nil, err
	}
	if f.running == nil {
		return &model.RunResult{Message: "No minions matched"}, nil
	}
	return f.running, nil
}

func (f *fakeBackend) DeleteMinion(ctx context.Context, minion string) error {
	return f.record(call{Method: "DeleteMinion", Minion: minion})
}

func (f *fakeBackend) Prune(ctx context.Context) (*model.PruneResult, error) {
	if err := f.record(call{Method: "Prune"}); err != nil {
		return nil, err
	}
	return &model.PruneResult{Removed: []string{"gone"}, Added: []string{}}, nil
}

func (f *fakeBackend) ListHandlers(ctx context.Context) (map[string]string, error) {
	if err := f.enter(ctx, "ListHandlers", ""); err != nil {
		return nil, err
	}
	return f.handlers, nil
}

func alert(minion, check string, retcode int) model.Alert {
	return model.Alert{CheckStatus: model.CheckStatus{Minion: minion, Check: check, Retcode: retcode, Stdout: check + " output"}}
}
