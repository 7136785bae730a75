// Package api serves the palantir dashboard: HTML pages, form actions and a
// JSON API over the same views.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/palantir/internal/adapters/upstream"
	service "github.com/okian/palantir/internal/app"
	"github.com/okian/palantir/internal/domain/model"
	"github.com/okian/palantir/pkg/logger"
)

// Dependencies required by HTTP handlers. *service.Service implements it.
type Dependencies interface {
	Alerts() *service.AlertsView
	Minions() *service.MinionsView
	Minion() *service.MinionView
	Checks() *service.ChecksView
	Check() *service.CheckView
	OpenDetail(ctx context.Context, ref model.AlertRef, fromStatus bool) (*service.Detail, error)

	RunCheck(ctx context.Context, name string) (*model.RunResult, error)
	DeleteMinion(ctx context.Context, name string) error
	Prune(ctx context.Context) (*model.PruneResult, error)
	Handlers(ctx context.Context) (map[string]string, error)
	Ping(ctx context.Context) error
}

// Server wires HTTP routes for the dashboard.
type Server struct {
	deps          Dependencies
	healthHandler *HealthHandler
	pages         *PageHandler
	actions       *ActionHandler
	jsonAPI       *JSONHandler
	logger        logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	log := logger.Get().Named("api")
	return &Server{
		deps:          deps,
		healthHandler: NewHealthHandler(deps),
		pages:         NewPageHandler(deps, log),
		actions:       NewActionHandler(deps, log),
		jsonAPI:       NewJSONHandler(deps, log),
		logger:        log,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /readyz", instrument("readyz", s.healthHandler.HandleReady))

	// Pages
	mux.HandleFunc("GET /alerts", instrument("alerts", s.pages.HandleAlerts))
	mux.HandleFunc("GET /minions", instrument("minions", s.pages.HandleMinions))
	mux.HandleFunc("GET /minion/{minion}", instrument("minion", s.pages.HandleMinion))
	mux.HandleFunc("GET /checks", instrument("checks", s.pages.HandleChecks))
	mux.HandleFunc("GET /check/{check}", instrument("check", s.pages.HandleCheck))
	mux.HandleFunc("GET /detail", instrument("detail", s.pages.HandleDetail))
	mux.HandleFunc("/", s.pages.HandleRedirect)

	// Form actions
	mux.HandleFunc("POST /alerts/resolve", instrument("alerts_resolve", s.actions.HandleResolveAlerts))
	mux.HandleFunc("POST /minions/toggle", instrument("minions_toggle", s.actions.HandleToggleMinions))
	mux.HandleFunc("POST /minion/{minion}/toggle", instrument("minion_toggle", s.actions.HandleToggleMinion))
	mux.HandleFunc("POST /minion/{minion}/checks/{index}/toggle", instrument("minion_check_toggle", s.actions.HandleToggleMinionCheck))
	mux.HandleFunc("POST /checks/toggle", instrument("checks_toggle", s.actions.HandleToggleChecks))
	mux.HandleFunc("POST /check/{check}/toggle", instrument("check_toggle", s.actions.HandleToggleCheck))
	mux.HandleFunc("POST /check/{check}/results/{index}/toggle", instrument("check_result_toggle", s.actions.HandleToggleCheckResult))

	// JSON API
	mux.HandleFunc("GET /api/alerts", instrument("api_alerts", s.jsonAPI.HandleListAlerts))
	mux.HandleFunc("POST /api/alerts/resolve", instrument("api_alerts_resolve", s.jsonAPI.HandleResolveAlerts))
	mux.HandleFunc("GET /api/minions", instrument("api_minions", s.jsonAPI.HandleListMinions))
	mux.HandleFunc("POST /api/minions/toggle", instrument("api_minions_toggle", s.jsonAPI.HandleToggleMinions))
	mux.HandleFunc("GET /api/minions/{minion}", instrument("api_minion", s.jsonAPI.HandleGetMinion))
	mux.HandleFunc("DELETE /api/minions/{minion}", instrument("api_minion_delete", s.jsonAPI.HandleDeleteMinion))
	mux.HandleFunc("POST /api/minions/{minion}/checks/toggle", instrument("api_minion_check_toggle", s.jsonAPI.HandleToggleMinionCheck))
	mux.HandleFunc("GET /api/checks", instrument("api_checks", s.jsonAPI.HandleListChecks))
	mux.HandleFunc("POST /api/checks/toggle", instrument("api_checks_toggle", s.jsonAPI.HandleToggleChecks))
	mux.HandleFunc("GET /api/checks/{check}", instrument("api_check", s.jsonAPI.HandleGetCheck))
	mux.HandleFunc("POST /api/checks/{check}/run", instrument("api_check_run", s.jsonAPI.HandleRunCheck))
	mux.HandleFunc("GET /api/detail", instrument("api_detail", s.jsonAPI.HandleDetail))
	mux.HandleFunc("GET /api/handlers", instrument("api_handlers", s.jsonAPI.HandleListHandlers))
	mux.HandleFunc("POST /api/prune", instrument("api_prune", s.jsonAPI.HandlePrune))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps an error to an HTTP status and an error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, upstream.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrIndexOutOfRange):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusBadGateway, "upstream_error"
	}
}

// fail logs err and writes it as a JSON error.
func fail(ctx context.Context, log logger.Logger, w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= statusInternalError {
		log.Error(ctx, "request failed", logger.Int("status", status), logger.Error(err))
	} else {
		log.Warn(ctx, "request rejected", logger.Int("status", status), logger.Error(err))
	}
	writeError(w, status, code, err)
}
