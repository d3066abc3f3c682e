// pkg/middleware/scope.go
package middleware

import (
	"context"
	"net/http"

	"mcpx/pkg/metrics"
	"mcpx/pkg/problems"
)

// local context key type (unique to this file)
type scopeCtxKey string

const (
	ctxScopesKey scopeCtxKey = "scopes"
)

// WithScopes stores scopes slice in context.
func WithScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, ctxScopesKey, scopes)
}

// ScopesFrom extracts scopes slice from context.
func ScopesFrom(ctx context.Context) []string {
	if v := ctx.Value(ctxScopesKey); v != nil {
		if s, ok := v.([]string); ok {
			return s
		}
	}
	return nil
}

// ScopeAllowed is the scope policy: an empty requirement always passes,
// otherwise one token must equal required exactly (case-sensitive).
func ScopeAllowed(required string, scopes []string) bool {
	if required == "" {
		return true
	}
	for _, s := range scopes {
		if s == required {
			return true
		}
	}
	return false
}

// RequireScope enforces ScopeAllowed on scopes placed in context by the
// authenticator. Mount it after Authenticator.Middleware.
func RequireScope(required string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if required == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ScopeAllowed(required, ScopesFrom(r.Context())) {
				metrics.AuthFailures.WithLabelValues("insufficient_scope").Inc()
				problems.Write(w, http.StatusForbidden, "insufficient-scope", "Forbidden", "insufficient_scope")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
