package service

import (
	"context"
	"fmt"

	"github.com/okian/palantir/internal/domain/model"
	"github.com/okian/palantir/pkg/logger"
	"github.com/okian/palantir/pkg/metrics"
)

// AlertsView lists active alerts and resolves a selection of them.
type AlertsView struct {
	backend Backend
	logger  logger.Logger

	Alerts []model.Alert
	// Filter is the search query. Bulk selection only touches matching rows.
	Filter string
}

// Load replaces the rows with the server's alerts.
func (v *AlertsView) Load(ctx context.Context) error {
	alerts, err := v.backend.ListAlerts(ctx)
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}
	v.Alerts = alerts
	return nil
}

// Visible returns the rows matching Filter.
func (v *AlertsView) Visible() []model.Alert {
	out := make([]model.Alert, 0, len(v.Alerts))
	for i := range v.Alerts {
		if alertMatches(v.Filter, &v.Alerts[i]) {
			out = append(out, v.Alerts[i])
		}
	}
	return out
}

// Selected returns the selected rows.
func (v *AlertsView) Selected() []model.Alert {
	var out []model.Alert
	for i := range v.Alerts {
		if v.Alerts[i].Selected {
			out = append(out, v.Alerts[i])
		}
	}
	return out
}

// SelectAll sets selected on every row matching Filter.
func (v *AlertsView) SelectAll(value bool) {
	for i := range v.Alerts {
		if alertMatches(v.Filter, &v.Alerts[i]) {
			v.Alerts[i].Selected = value
		}
	}
}

// Select marks the rows whose "minion/check" key is in keys.
func (v *AlertsView) Select(keys ...string) {
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	for i := range v.Alerts {
		if _, ok := want[v.Alerts[i].Ref().Key()]; ok {
			v.Alerts[i].Selected = true
		}
	}
}

// ResolveSelected drops the selected rows and resolves them on the server in
// one request. It returns the resolved pairs. Nothing is sent when no row is
// selected. Rows stay removed when the request fails.
func (v *AlertsView) ResolveSelected(ctx context.Context) ([]model.AlertRef, error) {
	var refs []model.AlertRef
	kept := v.Alerts[:0]
	for i := range v.Alerts {
		if v.Alerts[i].Selected {
			refs = append(refs, v.Alerts[i].Ref())
			continue
		}
		kept = append(kept, v.Alerts[i])
	}
	v.Alerts = kept
	if len(refs) == 0 {
		return nil, nil
	}

	metrics.RecordViewAction("alerts", "resolve")
	v.logger.Info(ctx, "resolving alerts", logger.Int("count", len(refs)))
	if err := v.backend.ResolveAlerts(ctx, refs); err != nil {
		return refs, fmt.Errorf("resolve alerts: %w", err)
	}
	return refs, nil
}
