package adminapi

import (
	"net/http"

	"mcpx/pkg/middleware"
	"mcpx/pkg/store"
)

// configRow is one raw key/value pair as returned by GET /config.
type configRow struct {
	Key   string  `json:"Key"`
	Value *string `json:"Value"`
}

func (a *App) getPublicConfig(w http.ResponseWriter, r *http.Request) {
	payload, err := a.public.Get(r.Context())
	if err != nil {
		a.storeUnavailable(w, r, "public config", err)
		return
	}
	if payload == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, payload, http.StatusOK)
}

func (a *App) getConfig(w http.ResponseWriter, r *http.Request) {
	rows, err := a.dal.Query(r.Context(), store.ProcConfigGetAll)
	if err != nil {
		a.storeUnavailable(w, r, "config get all", err)
		return
	}
	out := make([]configRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, configRow{Key: row.Key, Value: row.Value})
	}
	a.log.Debugw("config listed", "sub", middleware.Subject(r.Context()), "rows", len(out))
	writeJSON(w, out, http.StatusOK)
}

func (a *App) getAllowList(w http.ResponseWriter, r *http.Request) {
	set, err := a.origins.Get(r.Context())
	if err != nil {
		a.storeUnavailable(w, r, "allowed origins", err)
		return
	}
	writeJSON(w, set, http.StatusOK)
}
