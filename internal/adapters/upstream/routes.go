package upstream

// Route names understood by the palantir server.
const (
	RouteListMinions       = "palantir_list_minions"
	RouteListChecks        = "palantir_list_checks"
	RouteListAlerts        = "palantir_list_alerts"
	RouteListMinionChecks  = "palantir_list_minion_checks"
	RouteGetMinion         = "palantir_get_minion"
	RouteGetCheck          = "palantir_get_check"
	RouteGetAlert          = "palantir_get_alert"
	RouteGetMinionCheck    = "palantir_get_minion_check"
	RouteToggleMinion      = "palantir_toggle_minion"
	RouteToggleCheck       = "palantir_toggle_check"
	RouteToggleMinionCheck = "palantir_toggle_minion_check"
	RouteResolveAlert      = "palantir_resolve_alert"
	RouteRunCheck          = "palantir_run_check"
	RouteDeleteMinion      = "palantir_delete_minion"
	RoutePrune             = "palantir_prune"
	RouteListHandlers      = "palantir_list_handlers"
)

// DefaultRoutes maps every route name to its default path.
func DefaultRoutes() map[string]string {
	return map[string]string{
		RouteListMinions:       "/palantir/minion/list",
		RouteListChecks:        "/palantir/check/list",
		RouteListAlerts:        "/palantir/alert/list",
		RouteListMinionChecks:  "/palantir/minion/check/list",
		RouteGetMinion:         "/palantir/minion/get",
		RouteGetCheck:          "/palantir/check/get",
		RouteGetAlert:          "/palantir/alert/get",
		RouteGetMinionCheck:    "/palantir/minion/check/get",
		RouteToggleMinion:      "/palantir/minion/toggle",
		RouteToggleCheck:       "/palantir/check/toggle",
		RouteToggleMinionCheck: "/palantir/minion/check/toggle",
		RouteResolveAlert:      "/palantir/alert/resolve",
		RouteRunCheck:          "/palantir/check/run",
		RouteDeleteMinion:      "/palantir/minion/delete",
		RoutePrune:             "/palantir/prune",
		RouteListHandlers:      "/palantir/handler/list",
	}
}
