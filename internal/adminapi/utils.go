package adminapi

import (
	"encoding/json"
	"net/http"

	"mcpx/pkg/problems"
)

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// storeUnavailable logs a failed store call and answers 500.
func (a *App) storeUnavailable(w http.ResponseWriter, r *http.Request, op string, err error) {
	a.log.Errorw("store call failed", "op", op, "path", r.URL.Path, "err", err)
	problems.Write(w, http.StatusInternalServerError, "store-unavailable", "Store unavailable", "")
}
