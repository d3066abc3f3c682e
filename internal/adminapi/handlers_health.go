package adminapi

import (
	"net/http"

	"mcpx/pkg/problems"
	"mcpx/pkg/store"
)

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "service": ServiceName}, http.StatusOK)
}

// readiness is ready when the store answers the config listing procedure.
func (a *App) readiness(w http.ResponseWriter, r *http.Request) {
	if _, err := a.dal.Execute(r.Context(), store.ProcConfigGetAll); err != nil {
		a.log.Warnw("readiness: store unreachable", "err", err)
		problems.Write(w, http.StatusServiceUnavailable, "not-ready", "Not ready", "store unreachable")
		return
	}
	writeJSON(w, map[string]any{"ready": true}, http.StatusOK)
}
