package openapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
)

// Operation represents a single HTTP operation to surface in OpenAPI.
type Operation struct {
	Method  string
	Path    string
	Summary string
	Tags    []string

	// Public operations carry an empty security requirement.
	Public    bool
	Scopes    []string
	Responses map[string]any
}

// Registry holds the operations served by the admin API.
type Registry struct {
	Ops []Operation
}

func NewRegistry() *Registry { return &Registry{Ops: []Operation{}} }

func (r *Registry) Register(op Operation) {
	op.Method = strings.ToLower(op.Method)
	r.Ops = append(r.Ops, op)
}

// Response is a shorthand for a response object with an optional media type.
func Response(description, mediaType string) map[string]any {
	out := map[string]any{"description": description}
	if mediaType != "" {
		out["content"] = map[string]any{mediaType: map[string]any{}}
	}
	return out
}

// Build produces an OpenAPI 3.1 document of the registered operations.
// Operations are bearer-protected unless marked Public.
func (r *Registry) Build(serviceName, version string) map[string]any {
	paths := map[string]any{}
	scopeSet := map[string]struct{}{}
	for _, op := range r.Ops {
		if _, ok := paths[op.Path]; !ok {
			paths[op.Path] = map[string]any{}
		}
		m := map[string]any{
			"summary":   op.Summary,
			"tags":      op.Tags,
			"responses": op.Responses,
		}
		if op.Public {
			m["security"] = []map[string]any{}
		} else {
			scopes := op.Scopes
			if scopes == nil {
				scopes = []string{}
			}
			m["security"] = []map[string]any{{"bearer": scopes}}
			if len(op.Scopes) > 0 {
				m["x-required-scopes"] = op.Scopes
			}
		}
		for _, s := range op.Scopes {
			scopeSet[s] = struct{}{}
		}
		paths[op.Path].(map[string]any)[op.Method] = m
	}
	scopes := make([]string, 0, len(scopeSet))
	for s := range scopeSet {
		scopes = append(scopes, s)
	}
	sort.Strings(scopes)
	return map[string]any{
		"openapi": "3.1.0",
		"info":    map[string]any{"title": serviceName, "version": version},
		"paths":   paths,
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"bearer": map[string]any{
					"type":         "http",
					"scheme":       "bearer",
					"bearerFormat": "JWT",
					"x-scopes":     scopes,
				},
			},
		},
	}
}

// ServeHandler returns an HTTP handler that serves the built OpenAPI JSON.
func (r *Registry) ServeHandler(serviceName, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(r.Build(serviceName, version))
	}
}
