package service

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okian/palantir/internal/domain/model"
	"github.com/okian/palantir/pkg/logger"
)

// Detail pairs a minion/check status with its alert and the check's meta.
type Detail struct {
	Minion string `json:"minion"`
	Check  string `json:"check"`
	// ShowAlert is true when the detail was opened from an alert row.
	ShowAlert bool `json:"show_alert"`

	Status *model.CheckStatus `json:"status,omitempty"`
	Alert  *model.Alert       `json:"alert,omitempty"`
	Meta   map[string]any     `json:"meta,omitempty"`
}

// Ref returns the identity of the detail.
func (d *Detail) Ref() model.AlertRef {
	return model.AlertRef{Minion: d.Minion, Check: d.Check}
}

// DetailView holds the detail currently shown. Responses that arrive after
// the detail moved to another minion/check are discarded. It is safe for
// concurrent use.
type DetailView struct {
	backend Backend
	logger  logger.Logger

	mu      sync.Mutex
	current Detail
	open    bool
}

// Current returns a copy of the detail being shown and whether one is open.
func (v *DetailView) Current() (Detail, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.open
}

// Close clears the detail. Pending responses are dropped.
func (v *DetailView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current = Detail{}
	v.open = false
}

// ShowStatus opens the detail for a check status row. The row is the status;
// its alert, when it has one, and the check meta are fetched.
func (v *DetailView) ShowStatus(ctx context.Context, row model.CheckStatus) error {
	ref := row.Ref()
	status := row
	v.reset(Detail{Minion: ref.Minion, Check: ref.Check, Status: &status})

	g, gctx := errgroup.WithContext(ctx)
	if row.Alert != model.StatusSuccess {
		g.Go(func() error {
			a, err := v.backend.GetAlert(gctx, ref.Minion, ref.Check)
			if err != nil {
				return fmt.Errorf("get alert %s: %w", ref.Key(), err)
			}
			v.apply(ref, func(d *Detail) { d.Alert = a })
			return nil
		})
	}
	g.Go(func() error { return v.fetchMeta(gctx, ref) })
	return g.Wait()
}

// ShowAlert opens the detail for an alert row. The row is the alert; the
// current status and the check meta are fetched.
func (v *DetailView) ShowAlert(ctx context.Context, row model.Alert) error { //nolint:gocritic // hugeParam: the row is copied into the detail
	ref := row.Ref()
	alert := row
	v.reset(Detail{Minion: ref.Minion, Check: ref.Check, ShowAlert: true, Alert: &alert})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := v.backend.GetMinionCheck(gctx, ref.Minion, ref.Check)
		if err != nil {
			return fmt.Errorf("get minion check %s: %w", ref.Key(), err)
		}
		v.apply(ref, func(d *Detail) { d.Status = s })
		return nil
	})
	g.Go(func() error { return v.fetchMeta(gctx, ref) })
	return g.Wait()
}

func (v *DetailView) fetchMeta(ctx context.Context, ref model.AlertRef) error {
	c, err := v.backend.GetCheck(ctx, ref.Check)
	if err != nil {
		return fmt.Errorf("get check %s: %w", ref.Check, err)
	}
	v.apply(ref, func(d *Detail) { d.Meta = c.Meta })
	return nil
}

func (v *DetailView) reset(d Detail) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current = d
	v.open = true
}

// apply runs fn on the current detail if it still shows ref.
func (v *DetailView) apply(ref model.AlertRef, fn func(*Detail)) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.open || v.current.Ref() != ref {
		v.logger.Debug(context.Background(), "stale detail response dropped", logger.String("ref", ref.Key()))
		return false
	}
	fn(&v.current)
	return true
}
