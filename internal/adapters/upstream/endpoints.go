package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/okian/palantir/internal/domain/model"
)

type minionRef struct {
	Minion string `json:"minion"`
}

type checkRef struct {
	Check string `json:"check"`
}

type toggleMinionsRequest struct {
	Minions []string `json:"minions"`
	Enabled bool     `json:"enabled"`
}

type toggleChecksRequest struct {
	Checks  []string `json:"checks"`
	Enabled bool     `json:"enabled"`
}

type toggleMinionChecksRequest struct {
	Minion  string   `json:"minion"`
	Checks  []string `json:"checks"`
	Enabled bool     `json:"enabled"`
}

type resolveRequest struct {
	Alerts []model.AlertRef `json:"alerts"`
}

type runCheckRequest struct {
	Name string `json:"name"`
}

// ListMinions returns every minion sorted by name.
func (c *Client) ListMinions(ctx context.Context) ([]model.Minion, error) {
	data, err := c.call(ctx, RouteListMinions, nil)
	if err != nil {
		return nil, err
	}
	var byName map[string]model.Minion
	if err := decode(RouteListMinions, data, &byName); err != nil {
		return nil, err
	}
	out := make([]model.Minion, 0, len(byName))
	for name, m := range byName {
		if m.Name == "" {
			m.Name = name
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListChecks returns every check sorted by name.
func (c *Client) ListChecks(ctx context.Context) ([]model.Check, error) {
	data, err := c.call(ctx, RouteListChecks, nil)
	if err != nil {
		return nil, err
	}
	var byName map[string]model.Check
	if err := decode(RouteListChecks, data, &byName); err != nil {
		return nil, err
	}
	out := make([]model.Check, 0, len(byName))
	for name, ch := range byName {
		if ch.Name == "" {
			ch.Name = name
		}
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListAlerts returns the active alerts in server order.
func (c *Client) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	data, err := c.call(ctx, RouteListAlerts, nil)
	if err != nil {
		return nil, err
	}
	var alerts []model.Alert
	if isNull(data) {
		return alerts, nil
	}
	if err := decode(RouteListAlerts, data, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// ListMinionChecks returns the check statuses of every minion keyed by minion.
func (c *Client) ListMinionChecks(ctx context.Context) (map[string][]model.CheckStatus, error) {
	data, err := c.call(ctx, RouteListMinionChecks, nil)
	if err != nil {
		return nil, err
	}
	out := map[string][]model.CheckStatus{}
	if isNull(data) {
		return out, nil
	}
	if err := decode(RouteListMinionChecks, data, &out); err != nil {
		return nil, err
	}
	for minion, statuses := range out {
		for i := range statuses {
			if statuses[i].Minion == "" {
				statuses[i].Minion = minion
			}
		}
	}
	return out, nil
}

// GetMinion returns one minion with its checks.
func (c *Client) GetMinion(ctx context.Context, name string) (*model.Minion, error) {
	data, err := c.call(ctx, RouteGetMinion, minionRef{Minion: name})
	if err != nil {
		return nil, err
	}
	if isNull(data) {
		return nil, fmt.Errorf("%w: minion %q", ErrNotFound, name)
	}
	var m model.Minion
	if err := decode(RouteGetMinion, data, &m); err != nil {
		return nil, err
	}
	for i := range m.Checks {
		if m.Checks[i].Minion == "" {
			m.Checks[i].Minion = m.Name
		}
	}
	return &m, nil
}

// GetCheck returns one check with its per-minion results.
func (c *Client) GetCheck(ctx context.Context, name string) (*model.Check, error) {
	data, err := c.call(ctx, RouteGetCheck, checkRef{Check: name})
	if err != nil {
		return nil, err
	}
	if isNull(data) {
		return nil, fmt.Errorf("%w: check %q", ErrNotFound, name)
	}
	var ch model.Check
	if err := decode(RouteGetCheck, data, &ch); err != nil {
		return nil, err
	}
	for i := range ch.Results {
		if ch.Results[i].Check == "" && ch.Results[i].Name == "" {
			ch.Results[i].Check = ch.Name
		}
	}
	return &ch, nil
}

// GetAlert returns the alert for a minion/check pair.
func (c *Client) GetAlert(ctx context.Context, minion, check string) (*model.Alert, error) {
	ref := model.AlertRef{Minion: minion, Check: check}
	data, err := c.call(ctx, RouteGetAlert, ref)
	if err != nil {
		return nil, err
	}
	if isNull(data) {
		return nil, fmt.Errorf("%w: alert %s", ErrNotFound, ref.Key())
	}
	var a model.Alert
	if err := decode(RouteGetAlert, data, &a); err != nil {
		return nil, err
	}
	fillRef(&a.CheckStatus, ref)
	return &a, nil
}

// GetMinionCheck returns the latest status of a check on a minion.
func (c *Client) GetMinionCheck(ctx context.Context, minion, check string) (*model.CheckStatus, error) {
	ref := model.AlertRef{Minion: minion, Check: check}
	data, err := c.call(ctx, RouteGetMinionCheck, ref)
	if err != nil {
		return nil, err
	}
	if isNull(data) {
		return nil, fmt.Errorf("%w: minion check %s", ErrNotFound, ref.Key())
	}
	var s model.CheckStatus
	if err := decode(RouteGetMinionCheck, data, &s); err != nil {
		return nil, err
	}
	fillRef(&s, ref)
	return &s, nil
}

// fillRef sets the minion and check of a status the server left out.
func fillRef(s *model.CheckStatus, ref model.AlertRef) {
	if s.Minion == "" {
		s.Minion = ref.Minion
	}
	if s.CheckName() == "" {
		s.Check = ref.Check
	}
}

// ToggleMinions enables or disables minions.
func (c *Client) ToggleMinions(ctx context.Context, minions []string, enabled bool) error {
	_, err := c.call(ctx, RouteToggleMinion, toggleMinionsRequest{Minions: nonNil(minions), Enabled: enabled})
	return err
}

// ToggleChecks enables or disables checks.
func (c *Client) ToggleChecks(ctx context.Context, checks []string, enabled bool) error {
	_, err := c.call(ctx, RouteToggleCheck, toggleChecksRequest{Checks: nonNil(checks), Enabled: enabled})
	return err
}

// ToggleMinionChecks enables or disables checks on one minion.
func (c *Client) ToggleMinionChecks(ctx context.Context, minion string, checks []string, enabled bool) error {
	_, err := c.call(ctx, RouteToggleMinionCheck, toggleMinionChecksRequest{
		Minion:  minion,
		Checks:  nonNil(checks),
		Enabled: enabled,
	})
	return err
}

// ResolveAlerts marks alerts resolved in one request.
func (c *Client) ResolveAlerts(ctx context.Context, alerts []model.AlertRef) error {
	if alerts == nil {
		alerts = []model.AlertRef{}
	}
	_, err := c.call(ctx, RouteResolveAlert, resolveRequest{Alerts: alerts})
	return err
}

// ResolveAlert marks one alert resolved with the flat {minion, check} body
// the server's resolve view reads.
func (c *Client) ResolveAlert(ctx context.Context, ref model.AlertRef) error {
	_, err := c.call(ctx, RouteResolveAlert, ref)
	return err
}

// RunCheck runs a check now. The server answers with a message when nothing
// ran, otherwise with a status per minion.
func (c *Client) RunCheck(ctx context.Context, name string) (*model.RunResult, error) {
	data, err := c.call(ctx, RouteRunCheck, runCheckRequest{Name: name})
	if err != nil {
		return nil, err
	}
	res := &model.RunResult{}
	if isNull(data) {
		return res, nil
	}
	var msg string
	if json.Unmarshal(data, &msg) == nil {
		res.Message = msg
		return res, nil
	}
	if err := decode(RouteRunCheck, data, &res.Results); err != nil {
		return nil, err
	}
	for minion, s := range res.Results {
		fillRef(&s, model.AlertRef{Minion: minion, Check: name})
		res.Results[minion] = s
	}
	return res, nil
}

// DeleteMinion removes a minion and its data from the server.
func (c *Client) DeleteMinion(ctx context.Context, minion string) error {
	_, err := c.call(ctx, RouteDeleteMinion, minionRef{Minion: minion})
	return err
}

// Prune drops minions the server no longer knows about.
func (c *Client) Prune(ctx context.Context) (*model.PruneResult, error) {
	data, err := c.call(ctx, RoutePrune, nil)
	if err != nil {
		return nil, err
	}
	res := &model.PruneResult{}
	if isNull(data) {
		return res, nil
	}
	if err := decode(RoutePrune, data, res); err != nil {
		return nil, err
	}
	sort.Strings(res.Removed)
	sort.Strings(res.Added)
	return res, nil
}

// ListHandlers returns the server's alert handlers with their descriptions.
func (c *Client) ListHandlers(ctx context.Context) (map[string]string, error) {
	data, err := c.call(ctx, RouteListHandlers, nil)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	if isNull(data) {
		return out, nil
	}
	if err := decode(RouteListHandlers, data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
