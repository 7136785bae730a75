package model

import "strings"

// CheckStatus is the latest result of one check on one minion.
type CheckStatus struct {
	Minion  string   `json:"minion,omitempty"`
	Check   string   `json:"check,omitempty"`
	Name    string   `json:"name,omitempty"`
	Retcode int      `json:"retcode"`
	Count   int      `json:"count,omitempty"`
	Stdout  string   `json:"stdout,omitempty"`
	Stderr  string   `json:"stderr,omitempty"`
	LastRun UnixTime `json:"last_run"`
	Enabled bool     `json:"enabled"`
	// MinionCheckEnabled is only reported by the minion detail endpoint.
	MinionCheckEnabled *bool `json:"minion_check_enabled,omitempty"`
	Alert              int   `json:"alert,omitempty"`

	Selected bool `json:"-"`
}

// CheckName returns the check this status belongs to. The minion endpoint
// reports it as name, the others as check.
func (s *CheckStatus) CheckName() string {
	if s.Check != "" {
		return s.Check
	}
	return s.Name
}

// Ref returns the minion/check pair of the status.
func (s *CheckStatus) Ref() AlertRef {
	return AlertRef{Minion: s.Minion, Check: s.CheckName()}
}

// Class is StatusClass of the status' return code.
func (s *CheckStatus) Class() string { return StatusClass(s.Retcode) }

// Minion is a monitored host.
type Minion struct {
	Name    string        `json:"name"`
	Enabled bool          `json:"enabled"`
	Checks  []CheckStatus `json:"checks,omitempty"`

	Selected bool `json:"-"`
}

// Check is a named probe run against a set of minions.
type Check struct {
	Name     string         `json:"name"`
	Enabled  bool           `json:"enabled"`
	Target   string         `json:"target,omitempty"`
	ExprForm string         `json:"expr_form,omitempty"`
	Timeout  int            `json:"timeout,omitempty"`
	Command  map[string]any `json:"command,omitempty"`
	Schedule map[string]any `json:"schedule,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
	// Minions lists the minions the target matched; reported by the list endpoint.
	Minions []string `json:"minions,omitempty"`
	// Results holds per-minion statuses; reported by the detail endpoint.
	Results []CheckStatus `json:"results,omitempty"`

	Selected bool `json:"-"`
}

// Alert is an active failure of a check on a minion.
type Alert struct {
	CheckStatus
	Created UnixTime `json:"created"`
}

// AlertRef names a minion/check pair.
type AlertRef struct {
	Minion string `json:"minion"`
	Check  string `json:"check"`
}

// Key renders the pair as "minion/check".
func (r AlertRef) Key() string { return r.Minion + "/" + r.Check }

// ParseAlertRef is the inverse of Key. The check name is everything after
// the last slash.
func ParseAlertRef(key string) (AlertRef, bool) {
	i := strings.LastIndex(key, "/")
	if i <= 0 || i == len(key)-1 {
		return AlertRef{}, false
	}
	return AlertRef{Minion: key[:i], Check: key[i+1:]}, true
}

// RunResult is the reply to running a check: either a message from the
// server (check disabled, no minions matched) or a status per minion.
type RunResult struct {
	Message string                 `json:"message,omitempty"`
	Results map[string]CheckStatus `json:"results,omitempty"`
}

// PruneResult lists minions removed from and added to the server's records.
type PruneResult struct {
	Removed []string `json:"removed"`
	Added   []string `json:"added"`
}
