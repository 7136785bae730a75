package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/palantir/internal/domain/model"
	"github.com/okian/palantir/pkg/logger"
)

// JSONHandler serves the dashboard operations as JSON.
type JSONHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewJSONHandler creates a new JSON API handler.
func NewJSONHandler(deps Dependencies, log logger.Logger) *JSONHandler {
	return &JSONHandler{deps: deps, logger: log.Named("json")}
}

type resolveRequest struct {
	Alerts []model.AlertRef `json:"alerts"`
	All    bool             `json:"all"`
	Query  string           `json:"q"`
}

type resolveResponse struct {
	Resolved []model.AlertRef `json:"resolved"`
}

type toggleListRequest struct {
	Names []string `json:"names"`
	All   bool     `json:"all"`
	Query string   `json:"q"`
}

type toggleListResponse struct {
	Names   []string `json:"names"`
	Enabled bool     `json:"enabled"`
}

type toggleMinionCheckRequest struct {
	Check string `json:"check"`
}

type toggleMinionCheckResponse struct {
	Minion  string `json:"minion"`
	Check   string `json:"check"`
	Enabled bool   `json:"enabled"`
}

type minionsResponse struct {
	Minions  []minionRow                    `json:"minions"`
	Statuses map[string][]model.CheckStatus `json:"statuses"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// HandleListAlerts handles GET /api/alerts[?q=].
func (h *JSONHandler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_alerts"
	v := h.deps.Alerts()
	if err := v.Load(r.Context()); err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	v.Filter = r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, v.Visible())
}

// HandleResolveAlerts handles POST /api/alerts/resolve.
func (h *JSONHandler) HandleResolveAlerts(w http.ResponseWriter, r *http.Request) {
	const op = "api.resolve_alerts"
	var req resolveRequest
	if err := decodeBody(w, r, &req); err != nil {
		fail(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	v := h.deps.Alerts()
	if err := v.Load(r.Context()); err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	v.Filter = req.Query
	if req.All {
		v.SelectAll(true)
	}
	keys := make([]string, 0, len(req.Alerts))
	for _, ref := range req.Alerts {
		keys = append(keys, ref.Key())
	}
	v.Select(keys...)
	refs, err := v.ResolveSelected(r.Context())
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	if refs == nil {
		refs = []model.AlertRef{}
	}
	writeJSON(w, http.StatusOK, resolveResponse{Resolved: refs})
}

// HandleListMinions handles GET /api/minions[?q=].
func (h *JSONHandler) HandleListMinions(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_minions"
	v := h.deps.Minions()
	if err := v.Load(r.Context()); err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	v.Filter = r.URL.Query().Get("q")
	resp := minionsResponse{Minions: []minionRow{}, Statuses: v.Statuses}
	for _, m := range v.Visible() {
		resp.Minions = append(resp.Minions, minionRow{Minion: m, Status: v.Status(m.Name)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleToggleMinions handles POST /api/minions/toggle.
func (h *JSONHandler) HandleToggleMinions(w http.ResponseWriter, r *http.Request) {
	const op = "api.toggle_minions"
	var req toggleListRequest
	if err := decodeBody(w, r, &req); err != nil {
		fail(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	v := h.deps.Minions()
	if err := v.Load(r.Context()); err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	v.Filter = req.Query
	if req.All {
		v.SelectAll(true)
	}
	v.Select(req.Names...)
	names := []string{}
	for _, m := range v.Selected() {
		names = append(names, m.Name)
	}
	enabled, err := v.ToggleAll(r.Context())
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toggleListResponse{Names: names, Enabled: enabled})
}

// HandleGetMinion handles GET /api/minions/{minion}.
func (h *JSONHandler) HandleGetMinion(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_minion"
	v := h.deps.Minion()
	if err := v.Load(r.Context(), r.PathValue("minion")); err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, v.Minion)
}

// HandleDeleteMinion handles DELETE /api/minions/{minion}.
func (h *JSONHandler) HandleDeleteMinion(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_minion"
	if err := h.deps.DeleteMinion(r.Context(), r.PathValue("minion")); err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleToggleMinionCheck handles POST /api/minions/{minion}/checks/toggle.
func (h *JSONHandler) HandleToggleMinionCheck(w http.ResponseWriter, r *http.Request) {
	const op = "api.toggle_minion_check"
	var req toggleMinionCheckRequest
	if err := decodeBody(w, r, &req); err != nil || req.Check == "" {
		if err == nil {
			err = errors.New("check is required")
		}
		fail(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	name := r.PathValue("minion")
	v := h.deps.Minion()
	if err := v.Load(r.Context(), name); err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	index := -1
	for i := range v.Minion.Checks {
		if v.Minion.Checks[i].CheckName() == req.Check {
			index = i
			break
		}
	}
	if index < 0 {
		fail(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, fmt.Errorf("check %q does not run on %s", req.Check, name)))
		return
	}
	if err := v.ToggleCheck(r.Context(), index); err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toggleMinionCheckResponse{
		Minion:  name,
		Check:   req.Check,
		Enabled: v.Minion.Checks[index].Enabled,
	})
}

// HandleListChecks handles GET /api/checks[?q=].
func (h *JSONHandler) HandleListChecks(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_checks"
	v := h.deps.Checks()
	if err := v.Load(r.Context()); err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	v.Filter = r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, v.Visible())
}

// HandleToggleChecks handles POST /api/checks/toggle.
func (h *JSONHandler) HandleToggleChecks(w http.ResponseWriter, r *http.Request) {
	const op = "api.toggle_checks"
	var req toggleListRequest
	if err := decodeBody(w, r, &req); err != nil {
		fail(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	v := h.deps.Checks()
	if err := v.Load(r.Context()); err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	v.Filter = req.Query
	if req.All {
		v.SelectAll(true)
	}
	v.Select(req.Names...)
	names := []string{}
	for _, c := range v.Selected() {
		names = append(names, c.Name)
	}
	enabled, err := v.ToggleAll(r.Context())
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toggleListResponse{Names: names, Enabled: enabled})
}

// HandleGetCheck handles GET /api/checks/{check}.
func (h *JSONHandler) HandleGetCheck(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_check"
	v := h.deps.Check()
	if err := v.Load(r.Context(), r.PathValue("check")); err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, v.Check)
}

// HandleRunCheck handles POST /api/checks/{check}/run.
func (h *JSONHandler) HandleRunCheck(w http.ResponseWriter, r *http.Request) {
	const op = "api.run_check"
	res, err := h.deps.RunCheck(r.Context(), r.PathValue("check"))
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleDetail handles GET /api/detail?minion=&check=[&alert=1].
func (h *JSONHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	const op = "api.detail"
	ref, fromStatus, err := detailParams(r.URL.Query())
	if err != nil {
		fail(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	d, err := h.deps.OpenDetail(r.Context(), ref, fromStatus)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleListHandlers handles GET /api/handlers.
func (h *JSONHandler) HandleListHandlers(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_handlers"
	handlers, err := h.deps.Handlers(r.Context())
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, handlers)
}

// HandlePrune handles POST /api/prune.
func (h *JSONHandler) HandlePrune(w http.ResponseWriter, r *http.Request) {
	const op = "api.prune"
	res, err := h.deps.Prune(r.Context())
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
