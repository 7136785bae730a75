package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/palantir/internal/domain/model"
	"github.com/okian/palantir/pkg/logger"
)

// PageHandler renders the dashboard pages.
type PageHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewPageHandler creates a new page handler.
func NewPageHandler(deps Dependencies, log logger.Logger) *PageHandler {
	return &PageHandler{deps: deps, logger: log.Named("pages")}
}

// newPage reads the query, select-all and flash parameters shared by every page.
func newPage(r *http.Request, title, nav string) *pageData {
	q := r.URL.Query()
	return &pageData{
		Title: title,
		Nav:   nav,
		Query: strings.TrimSpace(q.Get("q")),
		Flash: q.Get("flash"),
		Error: q.Get("error"),
		All:   q.Get("all") == "1",
	}
}

// HandleRedirect sends every unknown path to the alerts page.
func (h *PageHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/alerts", http.StatusFound)
}

// HandleAlerts handles GET /alerts.
func (h *PageHandler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	const op = "api.page_alerts"
	data := newPage(r, "Alerts", "alerts")
	v := h.deps.Alerts()
	if err := v.Load(r.Context()); err != nil {
		h.failPage(r.Context(), w, data, Wrap(op, err))
		return
	}
	v.Filter = data.Query
	if data.All {
		v.SelectAll(true)
	}
	data.Alerts = v.Visible()
	h.show(r.Context(), w, http.StatusOK, "alerts", data)
}

// HandleMinions handles GET /minions.
func (h *PageHandler) HandleMinions(w http.ResponseWriter, r *http.Request) {
	const op = "api.page_minions"
	data := newPage(r, "Minions", "minions")
	v := h.deps.Minions()
	if err := v.Load(r.Context()); err != nil {
		h.failPage(r.Context(), w, data, Wrap(op, err))
		return
	}
	v.Filter = data.Query
	if data.All {
		v.SelectAll(true)
	}
	for _, m := range v.Visible() {
		data.Minions = append(data.Minions, minionRow{Minion: m, Status: v.Status(m.Name)})
	}
	h.show(r.Context(), w, http.StatusOK, "minions", data)
}

// HandleMinion handles GET /minion/{minion}.
func (h *PageHandler) HandleMinion(w http.ResponseWriter, r *http.Request) {
	const op = "api.page_minion"
	name := r.PathValue("minion")
	data := newPage(r, name, "minions")
	v := h.deps.Minion()
	if err := v.Load(r.Context(), name); err != nil {
		h.failPage(r.Context(), w, data, Wrap(op, err))
		return
	}
	data.Minion = v.Minion
	h.show(r.Context(), w, http.StatusOK, "minion", data)
}

// HandleChecks handles GET /checks.
func (h *PageHandler) HandleChecks(w http.ResponseWriter, r *http.Request) {
	const op = "api.page_checks"
	data := newPage(r, "Checks", "checks")
	v := h.deps.Checks()
	if err := v.Load(r.Context()); err != nil {
		h.failPage(r.Context(), w, data, Wrap(op, err))
		return
	}
	v.Filter = data.Query
	if data.All {
		v.SelectAll(true)
	}
	data.Checks = v.Visible()
	h.show(r.Context(), w, http.StatusOK, "checks", data)
}

// HandleCheck handles GET /check/{check}.
func (h *PageHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	const op = "api.page_check"
	name := r.PathValue("check")
	data := newPage(r, name, "checks")
	v := h.deps.Check()
	if err := v.Load(r.Context(), name); err != nil {
		h.failPage(r.Context(), w, data, Wrap(op, err))
		return
	}
	data.Check = v.Check
	h.show(r.Context(), w, http.StatusOK, "check", data)
}

// HandleDetail handles GET /detail?minion=&check=[&alert=1]. alert=1 marks
// a link from a check status row.
func (h *PageHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	const op = "api.page_detail"
	ref, fromStatus, err := detailParams(r.URL.Query())
	data := newPage(r, "Detail", "alerts")
	if err != nil {
		h.failPage(r.Context(), w, data, WrapKind(op, ErrBadRequest, err))
		return
	}
	data.Title = ref.Key()
	d, err := h.deps.OpenDetail(r.Context(), ref, fromStatus)
	if err != nil {
		h.failPage(r.Context(), w, data, Wrap(op, err))
		return
	}
	data.Detail = d
	h.show(r.Context(), w, http.StatusOK, "detail", data)
}

func detailParams(q url.Values) (model.AlertRef, bool, error) {
	ref := model.AlertRef{Minion: strings.TrimSpace(q.Get("minion")), Check: strings.TrimSpace(q.Get("check"))}
	if ref.Minion == "" || ref.Check == "" {
		return ref, false, errors.New("minion and check are required")
	}
	return ref, q.Get("alert") == "1", nil
}

func (h *PageHandler) show(ctx context.Context, w http.ResponseWriter, status int, page string, data *pageData) {
	if err := render(w, status, page, data); err != nil {
		h.logger.Error(ctx, "page render failed", logger.String("page", page), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// failPage renders the error page with err as the flash message.
func (h *PageHandler) failPage(ctx context.Context, w http.ResponseWriter, data *pageData, err error) {
	status, _ := classify(err)
	if status >= statusInternalError {
		h.logger.Error(ctx, "page failed", logger.Int("status", status), logger.Error(err))
	} else {
		h.logger.Warn(ctx, "page rejected", logger.Int("status", status), logger.Error(err))
	}
	if status == http.StatusNotFound {
		data.Title = "Not found: " + data.Title
	}
	data.Error = err.Error()
	h.show(ctx, w, status, "error", data)
}
