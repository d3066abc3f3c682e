// pkg/middleware/cors.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"mcpx/pkg/metrics"
)

const (
	corsAllowHeaders = "authorization,content-type"
	corsAllowMethods = "GET,POST,PUT,PATCH,DELETE,OPTIONS"
)

// OriginChecker decides whether an origin is on the allow-list.
type OriginChecker interface {
	IsAllowed(ctx context.Context, origin string) (bool, error)
}

// CORS echoes allowed origins back with credentialed CORS headers and answers
// every OPTIONS request with a bare 200 before any downstream handler runs.
//
// A lookup failure is logged and treated as "not allowed"; the request itself
// still proceeds and downstream auth decides on its own.
func CORS(checker OriginChecker, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				allowed, err := checker.IsAllowed(r.Context(), origin)
				switch {
				case err != nil:
					metrics.CORSDecisions.WithLabelValues("error").Inc()
					log.Warnw("allow-list lookup failed", "origin", origin, "err", err)
				case allowed:
					metrics.CORSDecisions.WithLabelValues("allowed").Inc()
					h := w.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Vary", "Origin")
					h.Set("Access-Control-Allow-Credentials", "true")
					h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
					h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				default:
					metrics.CORSDecisions.WithLabelValues("denied").Inc()
				}
			}
			if strings.EqualFold(r.Method, http.MethodOptions) {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
