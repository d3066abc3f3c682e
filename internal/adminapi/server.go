package adminapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mcpx/pkg/middleware"
	"mcpx/pkg/openapi"
)

// Handler builds the HTTP handler with routes and middleware.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(),
		middleware.Recover(a.log),
		middleware.AccessLog(a.log),
		middleware.Tracing(ServiceName, a.log),
		middleware.SecurityHeaders,
		middleware.DebugWriteHeader(a.cfg.DebugDoubleWrite, a.log),
		middleware.CORS(a.origins, a.log),
	)

	r.Get("/health", a.health)
	r.Get("/readiness", a.readiness)
	r.Get("/config/public", a.getPublicConfig)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.json", a.apiDoc.ServeHandler(ServiceName, a.cfg.Version))

	r.Group(func(pr chi.Router) {
		pr.Use(a.auth.Middleware, middleware.RequireScope(a.cfg.Boot.RequiredScope))
		pr.Get("/config", a.getConfig)
		pr.Get("/access/allowlist", a.getAllowList)
	})

	if a.cfg.Boot.SSERequireAuth {
		r.With(a.auth.Middleware, middleware.RequireScope(a.cfg.Boot.RequiredScope)).Get(streamPath, a.streamSessions)
	} else {
		r.Get(streamPath, a.streamSessions)
	}

	return r
}

// describe registers the served routes for /openapi.json.
func (a *App) describe() *openapi.Registry {
	var scopes []string
	if s := a.cfg.Boot.RequiredScope; s != "" {
		scopes = []string{s}
	}
	jsonOK := map[string]any{"200": openapi.Response("OK", "application/json")}

	reg := openapi.NewRegistry()
	reg.Register(openapi.Operation{Method: "GET", Path: "/health", Summary: "Liveness", Tags: []string{"ops"}, Public: true, Responses: jsonOK})
	reg.Register(openapi.Operation{Method: "GET", Path: "/readiness", Summary: "Store reachability", Tags: []string{"ops"}, Public: true,
		Responses: map[string]any{
			"200": openapi.Response("Ready", "application/json"),
			"503": openapi.Response("Store unreachable", "application/problem+json"),
		}})
	reg.Register(openapi.Operation{Method: "GET", Path: "/config/public", Summary: "Non-secret console configuration", Tags: []string{"config"}, Public: true,
		Responses: map[string]any{
			"200": openapi.Response("Public configuration", "application/json"),
			"204": openapi.Response("Nothing configured", ""),
		}})
	reg.Register(openapi.Operation{Method: "GET", Path: "/config", Summary: "All configuration rows", Tags: []string{"config"}, Scopes: scopes, Responses: jsonOK})
	reg.Register(openapi.Operation{Method: "GET", Path: "/access/allowlist", Summary: "Allowed cross-origin values", Tags: []string{"access"}, Scopes: scopes, Responses: jsonOK})
	reg.Register(openapi.Operation{Method: "GET", Path: streamPath, Summary: "Keepalive event stream", Tags: []string{"sessions"},
		Public: !a.cfg.Boot.SSERequireAuth, Scopes: scopes,
		Responses: map[string]any{"200": openapi.Response("Event stream", "text/event-stream")}})
	reg.Register(openapi.Operation{Method: "GET", Path: "/metrics", Summary: "Prometheus metrics", Tags: []string{"ops"}, Public: true,
		Responses: map[string]any{"200": openapi.Response("Metrics", "text/plain")}})
	return reg
}
