package service

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/okian/palantir/internal/domain/model"
	"github.com/okian/palantir/pkg/logger"
	"github.com/okian/palantir/pkg/metrics"
)

// MinionsView lists minions and enables or disables a selection of them.
type MinionsView struct {
	backend Backend
	logger  logger.Logger

	Minions []model.Minion
	// Statuses holds each minion's check statuses keyed by minion name.
	Statuses map[string][]model.CheckStatus
	Filter   string
}

// Load fetches the minions and their check statuses. The statuses only color
// the rows, so failing to fetch them is logged and the list still loads.
func (v *MinionsView) Load(ctx context.Context) error {
	var (
		minions  []model.Minion
		statuses map[string][]model.CheckStatus
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if minions, err = v.backend.ListMinions(gctx); err != nil {
			return fmt.Errorf("list minions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if statuses, err = v.backend.ListMinionChecks(gctx); err != nil && gctx.Err() == nil {
			metrics.RecordErrorByComponent("minions", "list_minion_checks")
			v.logger.Warn(gctx, "minion check statuses unavailable", logger.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if statuses == nil {
		statuses = map[string][]model.CheckStatus{}
	}

	sort.Slice(minions, func(i, j int) bool { return minions[i].Name < minions[j].Name })
	v.Minions = minions
	v.Statuses = statuses
	return nil
}

// Status returns the worst normalized status among a minion's checks.
func (v *MinionsView) Status(name string) int {
	worst := model.StatusSuccess
	for _, s := range v.Statuses[name] {
		if n := model.Normalize(s.Retcode); n > worst {
			worst = n
		}
	}
	return worst
}

// Visible returns the rows matching Filter.
func (v *MinionsView) Visible() []model.Minion {
	out := make([]model.Minion, 0, len(v.Minions))
	for i := range v.Minions {
		if minionMatches(v.Filter, &v.Minions[i]) {
			out = append(out, v.Minions[i])
		}
	}
	return out
}

// Selected returns the selected rows.
func (v *MinionsView) Selected() []model.Minion {
	var out []model.Minion
	for i := range v.Minions {
		if v.Minions[i].Selected {
			out = append(out, v.Minions[i])
		}
	}
	return out
}

// SelectAll sets selected on every row matching Filter.
func (v *MinionsView) SelectAll(value bool) {
	for i := range v.Minions {
		if minionMatches(v.Filter, &v.Minions[i]) {
			v.Minions[i].Selected = value
		}
	}
}

// Select marks the named rows.
func (v *MinionsView) Select(names ...string) {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	for i := range v.Minions {
		if _, ok := want[v.Minions[i].Name]; ok {
			v.Minions[i].Selected = true
		}
	}
}

// ToggleSelected flips the selection of one row. It reports whether the row exists.
func (v *MinionsView) ToggleSelected(name string) bool {
	for i := range v.Minions {
		if v.Minions[i].Name == name {
			v.Minions[i].Selected = !v.Minions[i].Selected
			return true
		}
	}
	return false
}

// AnyEnabled reports whether at least one selected minion is enabled.
func (v *MinionsView) AnyEnabled() bool {
	for i := range v.Minions {
		if v.Minions[i].Selected && v.Minions[i].Enabled {
			return true
		}
	}
	return false
}

// ToggleAll disables the selection when any of it is enabled and enables it
// otherwise, then sends one request naming every selected minion. It
// returns the new status.
func (v *MinionsView) ToggleAll(ctx context.Context) (bool, error) {
	enabled := !v.AnyEnabled()
	var names []string
	for i := range v.Minions {
		if v.Minions[i].Selected {
			v.Minions[i].Enabled = enabled
			names = append(names, v.Minions[i].Name)
		}
	}
	if len(names) == 0 {
		return enabled, nil
	}

	metrics.RecordViewAction("minions", "toggle")
	v.logger.Info(ctx, "toggling minions", logger.Strings("minions", names), logger.Bool("enabled", enabled))
	if err := v.backend.ToggleMinions(ctx, names, enabled); err != nil {
		return enabled, fmt.Errorf("toggle minions: %w", err)
	}
	return enabled, nil
}

// MinionView shows one minion and its checks.
type MinionView struct {
	backend Backend
	logger  logger.Logger

	Minion *model.Minion
}

// Load fetches the named minion.
func (v *MinionView) Load(ctx context.Context, name string) error {
	m, err := v.backend.GetMinion(ctx, name)
	if err != nil {
		return fmt.Errorf("get minion %s: %w", name, err)
	}
	v.Minion = m
	return nil
}

// Status returns the presentation class of a status code.
func (v *MinionView) Status(code int) string {
	return model.StatusClass(code)
}

// ToggleMinion flips the minion's enabled flag and sends it.
func (v *MinionView) ToggleMinion(ctx context.Context) error {
	if v.Minion == nil {
		return ErrNotLoaded
	}
	v.Minion.Enabled = !v.Minion.Enabled

	metrics.RecordViewAction("minion", "toggle")
	if err := v.backend.ToggleMinions(ctx, []string{v.Minion.Name}, v.Minion.Enabled); err != nil {
		return fmt.Errorf("toggle minion %s: %w", v.Minion.Name, err)
	}
	return nil
}

// ToggleCheck flips the enabled flag of the check at index and sends a
// minion-check toggle for it.
func (v *MinionView) ToggleCheck(ctx context.Context, index int) error {
	if v.Minion == nil {
		return ErrNotLoaded
	}
	if index < 0 || index >= len(v.Minion.Checks) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	c := &v.Minion.Checks[index]
	c.Enabled = !c.Enabled

	metrics.RecordViewAction("minion", "toggle_check")
	if err := v.backend.ToggleMinionChecks(ctx, v.Minion.Name, []string{c.CheckName()}, c.Enabled); err != nil {
		return fmt.Errorf("toggle check %s on %s: %w", c.CheckName(), v.Minion.Name, err)
	}
	return nil
}
