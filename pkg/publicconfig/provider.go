// pkg/publicconfig/provider.go
package publicconfig

import (
	"context"
	"strconv"
	"strings"

	"mcpx/pkg/bootconfig"
	"mcpx/pkg/origins"
	"mcpx/pkg/store"
)

// Non-secret keys exposed to the console. Nothing outside this list is ever read here.
const (
	KeyTenantID         = "AzureAd:TenantId"
	KeyClientID         = "AzureAd:ClientId"
	KeyRedirectURI      = "AzureAd:RedirectUri"
	KeyScope            = "AzureAd:Scope"
	KeyHeartbeatSeconds = "Sse:HeartbeatSeconds"
	KeySSERequireAuth   = "Security:SseRequireAuth"
)

var publicKeys = []string{
	KeyTenantID, KeyClientID, KeyRedirectURI, KeyScope, KeyHeartbeatSeconds, KeySSERequireAuth,
}

// DefaultHeartbeatSeconds is used in the payload when the stored value is missing or not a number.
const DefaultHeartbeatSeconds = 15

// OriginLister is satisfied by *origins.Provider.
type OriginLister interface {
	Get(ctx context.Context) (*origins.Set, error)
}

type AzureAD struct {
	TenantID    *string `json:"tenantId"`
	ClientID    *string `json:"clientId"`
	RedirectURI *string `json:"redirectUri"`
	Scope       *string `json:"scope"`
}

type SSE struct {
	HeartbeatSeconds int  `json:"heartbeatSeconds"`
	RequireAuth      bool `json:"requireAuth"`
}

type CORS struct {
	AllowedOrigins *origins.Set `json:"allowedOrigins"`
}

// Payload is the body of GET /config/public.
type Payload struct {
	AzureAD AzureAD `json:"azureAd"`
	SSE     SSE     `json:"sse"`
	CORS    CORS    `json:"cors"`
}

// Provider assembles the public configuration on every call; only the
// origin list is cached (by the allow-list provider).
type Provider struct {
	dal     store.DAL
	origins OriginLister
}

func New(dal store.DAL, origins OriginLister) *Provider {
	return &Provider{dal: dal, origins: origins}
}

// Get returns nil, nil when neither config values nor origins exist.
func (p *Provider) Get(ctx context.Context) (*Payload, error) {
	values := make(map[string]string, len(publicKeys))
	for _, k := range publicKeys {
		v, ok, err := store.Lookup(ctx, p.dal, k)
		if err != nil {
			return nil, err
		}
		if ok {
			values[k] = v
		}
	}

	allowed, err := p.origins.Get(ctx)
	if err != nil {
		return nil, err
	}

	if len(values) == 0 && allowed.Len() == 0 {
		return nil, nil
	}

	hb, ok := parseInt(values[KeyHeartbeatSeconds])
	if !ok {
		hb = DefaultHeartbeatSeconds
	}
	return &Payload{
		AzureAD: AzureAD{
			TenantID:    optional(values, KeyTenantID),
			ClientID:    optional(values, KeyClientID),
			RedirectURI: optional(values, KeyRedirectURI),
			Scope:       optional(values, KeyScope),
		},
		SSE: SSE{
			HeartbeatSeconds: hb,
			RequireAuth:      bootconfig.ParseBool(values[KeySSERequireAuth]),
		},
		CORS: CORS{AllowedOrigins: allowed},
	}, nil
}

// Heartbeat returns the stored heartbeat interval in seconds. ok is false
// when the key is absent or not an integer; callers choose their own default.
func (p *Provider) Heartbeat(ctx context.Context) (seconds int, ok bool, err error) {
	v, found, err := store.Lookup(ctx, p.dal, KeyHeartbeatSeconds)
	if err != nil || !found {
		return 0, false, err
	}
	seconds, ok = parseInt(v)
	return seconds, ok, nil
}

// parseInt accepts 32-bit integers only; anything wider counts as non-numeric.
func parseInt(v string) (int, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

func optional(m map[string]string, k string) *string {
	if v, ok := m[k]; ok {
		return &v
	}
	return nil
}
