package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/palantir/pkg/logger"
)

// maxFormBytes bounds form bodies.
const maxFormBytes = 1 << 20

// ActionHandler applies form submissions and redirects back to the page.
type ActionHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewActionHandler creates a new action handler.
func NewActionHandler(deps Dependencies, log logger.Logger) *ActionHandler {
	return &ActionHandler{deps: deps, logger: log.Named("actions")}
}

// listForm is the shared shape of list page forms.
type listForm struct {
	Query    string
	All      bool
	Selected []string
}

func parseListForm(w http.ResponseWriter, r *http.Request) (listForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return listForm{}, err
	}
	return listForm{
		Query:    strings.TrimSpace(r.PostForm.Get("q")),
		All:      r.PostForm.Get("all") == "1",
		Selected: r.PostForm["selected"],
	}, nil
}

// HandleResolveAlerts handles POST /alerts/resolve.
func (h *ActionHandler) HandleResolveAlerts(w http.ResponseWriter, r *http.Request) {
	const op = "api.action_resolve_alerts"
	form, err := parseListForm(w, r)
	if err != nil {
		h.done(r, w, "/alerts", "", "", WrapKind(op, ErrBadRequest, err))
		return
	}
	v := h.deps.Alerts()
	if err := v.Load(r.Context()); err != nil {
		h.done(r, w, "/alerts", form.Query, "", Wrap(op, err))
		return
	}
	v.Filter = form.Query
	if form.All {
		v.SelectAll(true)
	}
	v.Select(form.Selected...)
	refs, err := v.ResolveSelected(r.Context())
	h.done(r, w, "/alerts", form.Query, plural(len(refs), "Resolved %d alert"), Wrap(op, err))
}

// HandleToggleMinions handles POST /minions/toggle.
func (h *ActionHandler) HandleToggleMinions(w http.ResponseWriter, r *http.Request) {
	const op = "api.action_toggle_minions"
	form, err := parseListForm(w, r)
	if err != nil {
		h.done(r, w, "/minions", "", "", WrapKind(op, ErrBadRequest, err))
		return
	}
	v := h.deps.Minions()
	if err := v.Load(r.Context()); err != nil {
		h.done(r, w, "/minions", form.Query, "", Wrap(op, err))
		return
	}
	v.Filter = form.Query
	if form.All {
		v.SelectAll(true)
	}
	v.Select(form.Selected...)
	n := len(v.Selected())
	enabled, err := v.ToggleAll(r.Context())
	h.done(r, w, "/minions", form.Query, toggled(n, "minion", enabled), Wrap(op, err))
}

// HandleToggleMinion handles POST /minion/{minion}/toggle.
func (h *ActionHandler) HandleToggleMinion(w http.ResponseWriter, r *http.Request) {
	const op = "api.action_toggle_minion"
	name := r.PathValue("minion")
	back := "/minion/" + url.PathEscape(name)
	v := h.deps.Minion()
	if err := v.Load(r.Context(), name); err != nil {
		h.done(r, w, back, "", "", Wrap(op, err))
		return
	}
	err := v.ToggleMinion(r.Context())
	h.done(r, w, back, "", toggled(1, "minion", v.Minion.Enabled), Wrap(op, err))
}

// HandleToggleMinionCheck handles POST /minion/{minion}/checks/{index}/toggle.
func (h *ActionHandler) HandleToggleMinionCheck(w http.ResponseWriter, r *http.Request) {
	const op = "api.action_toggle_minion_check"
	name := r.PathValue("minion")
	back := "/minion/" + url.PathEscape(name)
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.done(r, w, back, "", "", WrapKind(op, ErrBadRequest, err))
		return
	}
	v := h.deps.Minion()
	if err := v.Load(r.Context(), name); err != nil {
		h.done(r, w, back, "", "", Wrap(op, err))
		return
	}
	if err := v.ToggleCheck(r.Context(), index); err != nil {
		h.done(r, w, back, "", "", Wrap(op, err))
		return
	}
	c := v.Minion.Checks[index]
	h.done(r, w, back, "", toggled(1, "check "+c.CheckName(), c.Enabled), nil)
}

// HandleToggleChecks handles POST /checks/toggle.
func (h *ActionHandler) HandleToggleChecks(w http.ResponseWriter, r *http.Request) {
	const op = "api.action_toggle_checks"
	form, err := parseListForm(w, r)
	if err != nil {
		h.done(r, w, "/checks", "", "", WrapKind(op, ErrBadRequest, err))
		return
	}
	v := h.deps.Checks()
	if err := v.Load(r.Context()); err != nil {
		h.done(r, w, "/checks", form.Query, "", Wrap(op, err))
		return
	}
	v.Filter = form.Query
	if form.All {
		v.SelectAll(true)
	}
	v.Select(form.Selected...)
	n := len(v.Selected())
	enabled, err := v.ToggleAll(r.Context())
	h.done(r, w, "/checks", form.Query, toggled(n, "check", enabled), Wrap(op, err))
}

// HandleToggleCheck handles POST /check/{check}/toggle.
func (h *ActionHandler) HandleToggleCheck(w http.ResponseWriter, r *http.Request) {
	const op = "api.action_toggle_check"
	name := r.PathValue("check")
	back := "/check/" + url.PathEscape(name)
	v := h.deps.Check()
	if err := v.Load(r.Context(), name); err != nil {
		h.done(r, w, back, "", "", Wrap(op, err))
		return
	}
	err := v.ToggleCheck(r.Context())
	h.done(r, w, back, "", toggled(1, "check", v.Check.Enabled), Wrap(op, err))
}

// HandleToggleCheckResult handles POST /check/{check}/results/{index}/toggle.
func (h *ActionHandler) HandleToggleCheckResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.action_toggle_check_result"
	name := r.PathValue("check")
	back := "/check/" + url.PathEscape(name)
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.done(r, w, back, "", "", WrapKind(op, ErrBadRequest, err))
		return
	}
	v := h.deps.Check()
	if err := v.Load(r.Context(), name); err != nil {
		h.done(r, w, back, "", "", Wrap(op, err))
		return
	}
	if err := v.ToggleResult(r.Context(), index); err != nil {
		h.done(r, w, back, "", "", Wrap(op, err))
		return
	}
	res := v.Check.Results[index]
	h.done(r, w, back, "", toggled(1, "check on "+res.Minion, res.Enabled), nil)
}

// done redirects to back with the outcome as a flash message.
func (h *ActionHandler) done(r *http.Request, w http.ResponseWriter, back, query, flash string, err error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	if err != nil {
		h.log(r.Context(), err)
		q.Set("error", err.Error())
	} else if flash != "" {
		q.Set("flash", flash)
	}
	if enc := q.Encode(); enc != "" {
		back += "?" + enc
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (h *ActionHandler) log(ctx context.Context, err error) {
	status, _ := classify(err)
	if status >= statusInternalError {
		h.logger.Error(ctx, "action failed", logger.Int("status", status), logger.Error(err))
		return
	}
	h.logger.Warn(ctx, "action rejected", logger.Int("status", status), logger.Error(err))
}

func plural(n int, format string) string {
	if n == 0 {
		return ""
	}
	s := fmt.Sprintf(format, n)
	if n != 1 {
		s += "s"
	}
	return s
}

func toggled(n int, what string, enabled bool) string {
	if n == 0 {
		return ""
	}
	verb := "Disabled"
	if enabled {
		verb = "Enabled"
	}
	if n == 1 {
		return verb + " " + what
	}
	return fmt.Sprintf("%s %d %ss", verb, n, what)
}
