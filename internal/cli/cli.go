// Package cli implements the palantir operator command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	ucli "github.com/urfave/cli"

	"github.com/okian/palantir/internal/adapters/upstream"
	service "github.com/okian/palantir/internal/app"
	"github.com/okian/palantir/internal/config"
	"github.com/okian/palantir/pkg/logger"
)

// CLI is the palantir command tree bound to an output stream.
type CLI struct {
	app     *ucli.App
	out     io.Writer
	now     func() time.Time
	backend service.Backend
	ctx     context.Context
}

// New builds the command tree. Command output goes to out.
func New(out io.Writer, opts ...Option) *CLI {
	c := &CLI{out: out, now: time.Now, ctx: context.Background()}
	for _, opt := range opts {
		opt(c)
	}

	app := ucli.NewApp()
	app.Name = "palantir"
	app.Usage = "inspect and manage palantir checks, minions and alerts"
	app.Writer = out
	app.ErrWriter = out
	app.HideVersion = true
	app.Flags = []ucli.Flag{
		ucli.StringFlag{
			Name:   "config, c",
			Usage:  "YAML config file",
			EnvVar: "PALANTIR_CONFIG",
		},
		ucli.StringFlag{
			Name:  "server, s",
			Usage: "palantir server URL, overrides server_url",
		},
		ucli.StringFlag{
			Name:  "token, t",
			Usage: "bearer token, overrides auth_token",
		},
		ucli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
			Value: "warn",
		},
	}
	app.Before = c.setup
	app.Commands = c.commands()
	c.app = app
	return c
}

// Run parses args (including the program name) and runs the command.
func (c *CLI) Run(ctx context.Context, args []string) error {
	c.ctx = ctx
	return c.app.Run(args)
}

// setup loads config and connects the upstream client.
func (c *CLI) setup(ctx *ucli.Context) error {
	if err := logger.SetLevelString(ctx.String("log-level")); err != nil {
		return err
	}
	if c.backend != nil {
		return nil
	}

	cfg, err := config.LoadFile(c.ctx, ctx.String("config"))
	if err != nil {
		return err
	}
	if s := ctx.String("server"); s != "" {
		cfg.ServerURL = s
	}
	if t := ctx.String("token"); t != "" {
		cfg.AuthToken = t
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := upstream.New(cfg.ServerURL,
		upstream.WithToken(cfg.AuthToken),
		upstream.WithTimeout(cfg.RequestTimeout()),
		upstream.WithRoutes(cfg.Routes),
	)
	if err != nil {
		return err
	}
	c.backend = client
	return nil
}

func (c *CLI) commands() []ucli.Command {
	return []ucli.Command{
		{Name: "alerts", Usage: "Print all active alerts", Action: c.alerts},
		{Name: "checks", Usage: "List the checks or print one in detail", ArgsUsage: "[check]", Action: c.checks},
		{Name: "minions", Usage: "List the minions", Action: c.minions},
		{Name: "status", Usage: "Print the last results on a minion", ArgsUsage: "<minion> [check]", Action: c.status},
		{Name: "run-check", Usage: "Run a check now", ArgsUsage: "<check>", Action: c.runCheck},
		{Name: "resolve", Usage: "Mark an alert as resolved", ArgsUsage: "<minion> <check>", Action: c.resolve},
		{Name: "minion-enable", Usage: "Enable minions", ArgsUsage: "<minion>...", Action: c.toggleMinions(true)},
		{Name: "minion-disable", Usage: "Disable minions", ArgsUsage: "<minion>...", Action: c.toggleMinions(false)},
		{Name: "check-enable", Usage: "Enable checks", ArgsUsage: "<check>...", Action: c.toggleChecks(true)},
		{Name: "check-disable", Usage: "Disable checks", ArgsUsage: "<check>...", Action: c.toggleChecks(false)},
		{Name: "minion-check-enable", Usage: "Enable checks on one minion", ArgsUsage: "<minion> <check>...", Action: c.toggleMinionChecks(true)},
		{Name: "minion-check-disable", Usage: "Disable checks on one minion", ArgsUsage: "<minion> <check>...", Action: c.toggleMinionChecks(false)},
		{Name: "handlers", Usage: "List the alert handlers", Action: c.handlers},
		{Name: "delete-minion", Usage: "Delete a minion and its results", ArgsUsage: "<minion>", Action: c.deleteMinion},
		{Name: "prune", Usage: "Reconcile minion and check assignments", Action: c.prune},
	}
}

// args checks that the command got between min and max arguments; max < 0
// means no upper bound.
func args(ctx *ucli.Context, minArgs, maxArgs int) error {
	n := ctx.NArg()
	if n < minArgs || (maxArgs >= 0 && n > maxArgs) {
		return fmt.Errorf("%w: palantir %s %s", ErrUsage, ctx.Command.Name, ctx.Command.ArgsUsage)
	}
	return nil
}

func (c *CLI) println(a ...any) {
	_, _ = fmt.Fprintln(c.out, a...)
}
