package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/gosuri/uitable"
	ucli "github.com/urfave/cli"

	"github.com/okian/palantir/internal/adapters/upstream"
	"github.com/okian/palantir/internal/domain/model"
)

func (c *CLI) alerts(ctx *ucli.Context) error {
	if err := args(ctx, 0, 0); err != nil {
		return err
	}
	alerts, err := c.backend.ListAlerts(c.ctx)
	if err != nil {
		return err
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Minion != alerts[j].Minion {
			return alerts[i].Minion < alerts[j].Minion
		}
		return alerts[i].CheckName() < alerts[j].CheckName()
	})
	now := c.now()
	for i := range alerts {
		a := &alerts[i]
		paint := red
		if a.Retcode == model.StatusWarning {
			paint = yellow
		}
		c.println(paint(a.Minion) + " - " + formatStatus(&a.CheckStatus, now))
	}
	return nil
}

func (c *CLI) checks(ctx *ucli.Context) error {
	if err := args(ctx, 0, 1); err != nil {
		return err
	}
	if name := ctx.Args().First(); name != "" {
		check, err := c.backend.GetCheck(c.ctx, name)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(check, "", "  ")
		if err != nil {
			return err
		}
		c.println(string(out))
		return nil
	}

	checks, err := c.backend.ListChecks(c.ctx)
	if err != nil {
		return err
	}
	table := uitable.New()
	table.AddRow("CHECK", "TARGET", "")
	for _, ch := range checks {
		table.AddRow(ch.Name, ch.Target, enabledLabel(ch.Enabled))
	}
	c.println(table)
	return nil
}

func (c *CLI) minions(ctx *ucli.Context) error {
	if err := args(ctx, 0, 0); err != nil {
		return err
	}
	minions, err := c.backend.ListMinions(c.ctx)
	if err != nil {
		return err
	}
	table := uitable.New()
	table.AddRow("MINION", "")
	for _, m := range minions {
		table.AddRow(m.Name, enabledLabel(m.Enabled))
	}
	c.println(table)
	return nil
}

func (c *CLI) status(ctx *ucli.Context) error {
	if err := args(ctx, 1, 2); err != nil {
		return err
	}
	minion, check := ctx.Args().Get(0), ctx.Args().Get(1)
	now := c.now()

	if check != "" {
		s, err := c.backend.GetMinionCheck(c.ctx, minion, check)
		if errors.Is(err, upstream.ErrNotFound) {
			c.println(fmt.Sprintf("Check %s not found on %s", check, minion))
			return nil
		}
		if err != nil {
			return err
		}
		s.Name = check
		c.println(formatStatus(s, now))
		return nil
	}

	m, err := c.backend.GetMinion(c.ctx, minion)
	if err != nil {
		return err
	}
	header := m.Name
	if !m.Enabled {
		header += " (disabled)"
	}
	c.println(magenta(dashes(len(header))))
	c.println(magenta(header))
	for i := range m.Checks {
		c.println(formatStatus(&m.Checks[i], now))
	}
	return nil
}

func (c *CLI) runCheck(ctx *ucli.Context) error {
	if err := args(ctx, 1, 1); err != nil {
		return err
	}
	name := ctx.Args().First()
	res, err := c.backend.RunCheck(c.ctx, name)
	if err != nil {
		return err
	}
	if res.Message != "" || len(res.Results) == 0 {
		c.println(res.Message)
		return nil
	}
	minions := make([]string, 0, len(res.Results))
	for m := range res.Results {
		minions = append(minions, m)
	}
	sort.Strings(minions)
	now := c.now()
	for _, m := range minions {
		s := res.Results[m]
		s.Name = name
		c.println(green(m) + ": " + formatStatus(&s, now))
	}
	return nil
}

func (c *CLI) resolve(ctx *ucli.Context) error {
	if err := args(ctx, 2, 2); err != nil {
		return err
	}
	ref := model.AlertRef{Minion: ctx.Args().Get(0), Check: ctx.Args().Get(1)}
	if r, ok := c.backend.(alertResolver); ok {
		return r.ResolveAlert(c.ctx, ref)
	}
	return c.backend.ResolveAlerts(c.ctx, []model.AlertRef{ref})
}

// alertResolver resolves a single alert. *upstream.Client implements it.
type alertResolver interface {
	ResolveAlert(ctx context.Context, ref model.AlertRef) error
}

func (c *CLI) toggleMinions(enabled bool) func(*ucli.Context) error {
	return func(ctx *ucli.Context) error {
		if err := args(ctx, 1, -1); err != nil {
			return err
		}
		return c.backend.ToggleMinions(c.ctx, ctx.Args(), enabled)
	}
}

func (c *CLI) toggleChecks(enabled bool) func(*ucli.Context) error {
	return func(ctx *ucli.Context) error {
		if err := args(ctx, 1, -1); err != nil {
			return err
		}
		return c.backend.ToggleChecks(c.ctx, ctx.Args(), enabled)
	}
}

func (c *CLI) toggleMinionChecks(enabled bool) func(*ucli.Context) error {
	return func(ctx *ucli.Context) error {
		if err := args(ctx, 2, -1); err != nil {
			return err
		}
		return c.backend.ToggleMinionChecks(c.ctx, ctx.Args().First(), ctx.Args().Tail(), enabled)
	}
}

func (c *CLI) handlers(ctx *ucli.Context) error {
	if err := args(ctx, 0, 0); err != nil {
		return err
	}
	handlers, err := c.backend.ListHandlers(c.ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	table := uitable.New()
	table.Wrap = true
	table.MaxColWidth = 80
	for _, name := range names {
		table.AddRow(name, handlers[name])
	}
	c.println(table)
	return nil
}

func (c *CLI) deleteMinion(ctx *ucli.Context) error {
	if err := args(ctx, 1, 1); err != nil {
		return err
	}
	return c.backend.DeleteMinion(c.ctx, ctx.Args().First())
}

func (c *CLI) prune(ctx *ucli.Context) error {
	if err := args(ctx, 0, 0); err != nil {
		return err
	}
	res, err := c.backend.Prune(c.ctx)
	if err != nil {
		return err
	}
	table := uitable.New()
	table.AddRow("Removed:", len(res.Removed), joinNames(res.Removed))
	table.AddRow("Added:", len(res.Added), joinNames(res.Added))
	c.println(table)
	return nil
}
