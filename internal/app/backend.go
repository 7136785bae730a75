package service

import (
	"context"

	"github.com/okian/palantir/internal/domain/model"
)

// Backend is the palantir server as seen by the views.
// *upstream.Client implements it.
type Backend interface {
	ListMinions(ctx context.Context) ([]model.Minion, error)
	ListChecks(ctx context.Context) ([]model.Check, error)
	ListAlerts(ctx context.Context) ([]model.Alert, error)
	ListMinionChecks(ctx context.Context) (map[string][]model.CheckStatus, error)

	GetMinion(ctx context.Context, name string) (*model.Minion, error)
	GetCheck(ctx context.Context, name string) (*model.Check, error)
	GetAlert(ctx context.Context, minion, check string) (*model.Alert, error)
	GetMinionCheck(ctx context.Context, minion, check string) (*model.CheckStatus, error)

	ToggleMinions(ctx context.Context, minions []string, enabled bool) error
	ToggleChecks(ctx context.Context, checks []string, enabled bool) error
	ToggleMinionChecks(ctx context.Context, minion string, checks []string, enabled bool) error
	ResolveAlerts(ctx context.Context, alerts []model.AlertRef) error

	RunCheck(ctx context.Context, name string) (*model.RunResult, error)
	DeleteMinion(ctx context.Context, minion string) error
	Prune(ctx context.Context) (*model.PruneResult, error)
	ListHandlers(ctx context.Context) (map[string]string, error)
}
