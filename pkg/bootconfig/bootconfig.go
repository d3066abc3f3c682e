// pkg/bootconfig/bootconfig.go
package bootconfig

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mcpx/pkg/store"
)

// Config keys read at startup.
const (
	KeyAuthority      = "Auth:Authority"
	KeyAudience       = "Auth:Audience"
	KeySSERequireAuth = "Security:SseRequireAuth"
	KeyRequiredScope  = "Auth:RequiredScope"
	KeyTenantID       = "AzureAd:TenantId"
)

var (
	ErrMissingTenant   = errors.New("AzureAd:TenantId missing for Authority computation")
	ErrMissingAudience = errors.New("Auth:Audience is required")
)

// Config is resolved once before the server accepts connections and is
// immutable afterwards. A change requires a restart.
type Config struct {
	Authority      string
	Audience       string
	SSERequireAuth bool
	RequiredScope  string // empty: no scope check
}

// AuthorityForTenant builds the Microsoft identity platform v2.0 authority.
func AuthorityForTenant(tenantID string) string {
	return "https://login.microsoftonline.com/" + tenantID + "/v2.0"
}

// Load reads the boot keys from dal. Any error is fatal to startup.
func Load(ctx context.Context, dal store.DAL) (Config, error) {
	var authority, audience, sseAuth, scope string
	for _, f := range []struct {
		key string
		dst *string
	}{
		{KeyAuthority, &authority},
		{KeyAudience, &audience},
		{KeySSERequireAuth, &sseAuth},
		{KeyRequiredScope, &scope},
	} {
		v, _, err := store.Lookup(ctx, dal, f.key)
		if err != nil {
			return Config{}, fmt.Errorf("boot config: %w", err)
		}
		*f.dst = v
	}

	if authority == "" {
		tenant, ok, err := store.Lookup(ctx, dal, KeyTenantID)
		if err != nil {
			return Config{}, fmt.Errorf("boot config: %w", err)
		}
		if !ok {
			return Config{}, ErrMissingTenant
		}
		authority = AuthorityForTenant(strings.TrimSpace(tenant))
	}
	if audience == "" {
		return Config{}, ErrMissingAudience
	}

	return Config{
		Authority:      authority,
		Audience:       audience,
		SSERequireAuth: ParseBool(sseAuth),
		RequiredScope:  strings.TrimSpace(scope),
	}, nil
}

// ParseBool accepts only "true" or "false" (case-insensitive, surrounding
// whitespace ignored). Anything else is false.
func ParseBool(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

// String renders the config for startup logs.
func (c Config) String() string {
	scope := c.RequiredScope
	if scope == "" {
		scope = "<none>"
	}
	return fmt.Sprintf("authority=%s audience=%s sse_require_auth=%t required_scope=%s",
		c.Authority, c.Audience, c.SSERequireAuth, scope)
}
