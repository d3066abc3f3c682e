// pkg/middleware/auth.go
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"

	"mcpx/pkg/metrics"
	"mcpx/pkg/problems"
)

// AuthConfig parameterizes bearer validation. Authority and Audience come
// from the boot configuration.
type AuthConfig struct {
	Authority string
	Audience  string
	// QueryTokenPath is the only path (and its sub-paths) on which a token
	// may be passed as ?access_token=. EventSource cannot set headers.
	QueryTokenPath string
	MetadataTTL    time.Duration
	ClockSkew      time.Duration
	HTTPClient     *http.Client
}

// providerMetadata is the subset of the OpenID discovery document we use.
type providerMetadata struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// jwksCache caches JWKS sets per URL.
type jwksCache struct {
	mu   sync.RWMutex
	sets map[string]cachedJWKS
}

type cachedJWKS struct {
	set     jwk.Set
	expires time.Time
}

func (c *jwksCache) get(ctx context.Context, url string, ttl time.Duration, client *http.Client) (jwk.Set, error) {
	c.mu.RLock()
	if e, ok := c.sets[url]; ok && time.Now().Before(e.expires) {
		c.mu.RUnlock()
		return e.set, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sets == nil {
		c.sets = map[string]cachedJWKS{}
	}
	if e, ok := c.sets[url]; ok && time.Now().Before(e.expires) {
		return e.set, nil
	}
	set, err := jwk.Fetch(ctx, url, jwk.WithHTTPClient(client))
	if err != nil {
		return nil, err
	}
	c.sets[url] = cachedJWKS{set: set, expires: time.Now().Add(ttl)}
	return set, nil
}

// Authenticator validates bearer tokens against the authority's published keys.
type Authenticator struct {
	cfg    AuthConfig
	client *http.Client
	log    *zap.SugaredLogger
	keys   jwksCache

	metaMu      sync.RWMutex
	meta        providerMetadata
	metaExpires time.Time
}

// NewAuthenticator builds an Authenticator. Metadata and keys are fetched
// lazily on the first authenticated request.
func NewAuthenticator(cfg AuthConfig, log *zap.SugaredLogger) *Authenticator {
	if cfg.MetadataTTL <= 0 {
		cfg.MetadataTTL = 6 * time.Hour
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Authenticator{cfg: cfg, client: client, log: log}
}

func (a *Authenticator) metadata(ctx context.Context) (providerMetadata, error) {
	a.metaMu.RLock()
	if a.meta.JWKSURI != "" && time.Now().Before(a.metaExpires) {
		m := a.meta
		a.metaMu.RUnlock()
		return m, nil
	}
	a.metaMu.RUnlock()

	a.metaMu.Lock()
	defer a.metaMu.Unlock()
	if a.meta.JWKSURI != "" && time.Now().Before(a.metaExpires) {
		return a.meta, nil
	}
	url := strings.TrimRight(a.cfg.Authority, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return providerMetadata{}, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return providerMetadata{}, fmt.Errorf("discovery: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return providerMetadata{}, fmt.Errorf("discovery: %s returned %d", url, resp.StatusCode)
	}
	var m providerMetadata
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return providerMetadata{}, fmt.Errorf("discovery: %w", err)
	}
	if m.JWKSURI == "" {
		return providerMetadata{}, errors.New("discovery: jwks_uri missing")
	}
	if m.Issuer == "" {
		m.Issuer = a.cfg.Authority
	}
	a.meta, a.metaExpires = m, time.Now().Add(a.cfg.MetadataTTL)
	return m, nil
}

// Middleware rejects requests without a valid bearer token (401) and stores
// the token and its scopes in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := a.tokenFromRequest(r)
		if raw == "" {
			metrics.AuthFailures.WithLabelValues("missing_token").Inc()
			problems.Write(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", "missing bearer token")
			return
		}
		meta, err := a.metadata(r.Context())
		if err != nil {
			a.log.Errorw("identity provider metadata", "authority", a.cfg.Authority, "err", err)
			problems.Write(w, http.StatusServiceUnavailable, "auth-unavailable", "Authentication unavailable", "")
			return
		}
		set, err := a.keys.get(r.Context(), meta.JWKSURI, a.cfg.MetadataTTL, a.client)
		if err != nil {
			a.log.Errorw("jwks fetch", "url", meta.JWKSURI, "err", err)
			problems.Write(w, http.StatusServiceUnavailable, "auth-unavailable", "Authentication unavailable", "")
			return
		}
		jt, err := jwt.Parse([]byte(raw),
			jwt.WithKeySet(set, jws.WithInferAlgorithmFromKey(true)),
			jwt.WithIssuer(meta.Issuer),
			jwt.WithAudience(a.cfg.Audience),
			jwt.WithValidate(true),
			jwt.WithAcceptableSkew(a.cfg.ClockSkew),
		)
		if err != nil {
			metrics.AuthFailures.WithLabelValues("invalid_token").Inc()
			a.log.Debugw("token rejected", "err", err)
			problems.Write(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", "invalid token")
			return
		}
		ctx := WithScopes(r.Context(), scopesOf(jt))
		ctx = context.WithValue(ctx, ctxTokenKey{}, jt)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// tokenFromRequest prefers ?access_token= on the query-token path, then the
// Authorization header.
func (a *Authenticator) tokenFromRequest(r *http.Request) string {
	if a.cfg.QueryTokenPath != "" && hasPathSegmentsPrefix(r.URL.Path, a.cfg.QueryTokenPath) {
		if t := r.URL.Query().Get("access_token"); t != "" {
			return t
		}
	}
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("Bearer "):])
}

// hasPathSegmentsPrefix matches prefix against whole leading path segments, ignoring case.
func hasPathSegmentsPrefix(path, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if len(path) < len(prefix) || !strings.EqualFold(path[:len(prefix)], prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// scopesOf reads the space-delimited "scp" claim. Other claims such as
// "scope" are not consulted.
func scopesOf(jt jwt.Token) []string {
	v, ok := jt.Get("scp")
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		return strings.Fields(t)
	case []any:
		var out []string
		for _, s := range t {
			if str, ok := s.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

type ctxTokenKey struct{}

// Subject returns the "sub" claim of the authenticated token, if any.
func Subject(ctx context.Context) string {
	if jt, ok := ctx.Value(ctxTokenKey{}).(jwt.Token); ok {
		return jt.Subject()
	}
	return ""
}
