package handlers

import (
	"net/http"

	"github.com/diu-mct/access-guard/app"
	"github.com/diu-mct/access-guard/utils"
)

// HealthCheck reports liveness
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadinessCheck reports readiness, including the audit sink's database
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.DB.HealthCheck(r.Context()); err != nil {
			_ = utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": "database unreachable",
			})
			return
		}

		stats := deps.Audit.GetStats()
		_ = utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":        "ready",
			"audit_started": stats.Started,
			"audit_pending": stats.PendingEvents,
			"session_state": deps.Sessions.State(),
		})
	}
}
