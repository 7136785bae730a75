package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/palantir/internal/domain/model"
	"github.com/okian/palantir/pkg/logger"
	"github.com/okian/palantir/pkg/metrics"
)

// ChecksView lists checks and enables or disables a selection of them.
type ChecksView struct {
	backend Backend
	logger  logger.Logger

	Checks []model.Check
	Filter string
}

// Load fetches the checks sorted by name.
func (v *ChecksView) Load(ctx context.Context) error {
	checks, err := v.backend.ListChecks(ctx)
	if err != nil {
		return fmt.Errorf("list checks: %w", err)
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })
	v.Checks = checks
	return nil
}

// Visible returns the rows matching Filter.
func (v *ChecksView) Visible() []model.Check {
	out := make([]model.Check, 0, len(v.Checks))
	for i := range v.Checks {
		if checkMatches(v.Filter, &v.Checks[i]) {
			out = append(out, v.Checks[i])
		}
	}
	return out
}

// Selected returns the selected rows.
func (v *ChecksView) Selected() []model.Check {
	var out []model.Check
	for i := range v.Checks {
		if v.Checks[i].Selected {
			out = append(out, v.Checks[i])
		}
	}
	return out
}

// SelectAll sets selected on every row matching Filter.
func (v *ChecksView) SelectAll(value bool) {
	for i := range v.Checks {
		if checkMatches(v.Filter, &v.Checks[i]) {
			v.Checks[i].Selected = value
		}
	}
}

// Select marks the named rows.
func (v *ChecksView) Select(names ...string) {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	for i := range v.Checks {
		if _, ok := want[v.Checks[i].Name]; ok {
			v.Checks[i].Selected = true
		}
	}
}

// ToggleSelected flips the selection of one row. It reports whether the row exists.
func (v *ChecksView) ToggleSelected(name string) bool {
	for i := range v.Checks {
		if v.Checks[i].Name == name {
			v.Checks[i].Selected = !v.Checks[i].Selected
			return true
		}
	}
	return false
}

// AnyEnabled reports whether at least one selected check is enabled.
func (v *ChecksView) AnyEnabled() bool {
	for i := range v.Checks {
		if v.Checks[i].Selected && v.Checks[i].Enabled {
			return true
		}
	}
	return false
}

// ToggleAll sets every selected check to !AnyEnabled() and sends one
// request naming them. It returns the new status.
func (v *ChecksView) ToggleAll(ctx context.Context) (bool, error) {
	enabled := !v.AnyEnabled()
	var names []string
	for i := range v.Checks {
		if v.Checks[i].Selected {
			v.Checks[i].Enabled = enabled
			names = append(names, v.Checks[i].Name)
		}
	}
	if len(names) == 0 {
		return enabled, nil
	}

	metrics.RecordViewAction("checks", "toggle")
	v.logger.Info(ctx, "toggling checks", logger.Strings("checks", names), logger.Bool("enabled", enabled))
	if err := v.backend.ToggleChecks(ctx, names, enabled); err != nil {
		return enabled, fmt.Errorf("toggle checks: %w", err)
	}
	return enabled, nil
}

// CheckView shows one check and its per-minion results.
type CheckView struct {
	backend Backend
	logger  logger.Logger

	Check *model.Check
}

// Load fetches the named check.
func (v *CheckView) Load(ctx context.Context, name string) error {
	c, err := v.backend.GetCheck(ctx, name)
	if err != nil {
		return fmt.Errorf("get check %s: %w", name, err)
	}
	v.Check = c
	return nil
}

// Status returns the presentation class of a status code.
func (v *CheckView) Status(code int) string {
	return model.StatusClass(code)
}

// ToggleCheck flips the check's enabled flag and sends it.
func (v *CheckView) ToggleCheck(ctx context.Context) error {
	if v.Check == nil {
		return ErrNotLoaded
	}
	v.Check.Enabled = !v.Check.Enabled

	metrics.RecordViewAction("check", "toggle")
	if err := v.backend.ToggleChecks(ctx, []string{v.Check.Name}, v.Check.Enabled); err != nil {
		return fmt.Errorf("toggle check %s: %w", v.Check.Name, err)
	}
	return nil
}

// ToggleResult flips the enabled flag of the result at index and sends a
// minion-check toggle for that minion.
func (v *CheckView) ToggleResult(ctx context.Context, index int) error {
	if v.Check == nil {
		return ErrNotLoaded
	}
	if index < 0 || index >= len(v.Check.Results) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	r := &v.Check.Results[index]
	r.Enabled = !r.Enabled

	metrics.RecordViewAction("check", "toggle_result")
	if err := v.backend.ToggleMinionChecks(ctx, r.Minion, []string{v.Check.Name}, r.Enabled); err != nil {
		return fmt.Errorf("toggle check %s on %s: %w", v.Check.Name, r.Minion, err)
	}
	return nil
}
