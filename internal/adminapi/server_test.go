package adminapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpx/pkg/bootconfig"
	"mcpx/pkg/store"
)

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"mcpx-admin-api"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestReadiness(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, http.StatusOK, f.get(t, "/readiness", nil).Code)

	f.mem.Fail(errors.New("connection refused"))
	rec := f.get(t, "/readiness", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestPublicConfig(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/config/public", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"azureAd": {"tenantId": "tenant-1", "clientId": "client-1", "redirectUri": null, "scope": null},
		"sse": {"heartbeatSeconds": 1, "requireAuth": false},
		"cors": {"allowedOrigins": ["https://portal.example.com", "http://localhost:5173"]}
	}`, rec.Body.String())
}

func TestPublicConfig_EmptyStoreIs204(t *testing.T) {
	f := newFixture(t, nil)
	f.mem.SetOrigins()
	for _, k := range []string{"AzureAd:TenantId", "AzureAd:ClientId", "Sse:HeartbeatSeconds"} {
		f.mem.SetValue(k, "")
	}
	f.app.Origins().Invalidate()

	rec := f.get(t, "/config/public", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestPublicConfig_StoreErrorIs500(t *testing.T) {
	f := newFixture(t, nil)
	f.mem.Fail(errors.New("timeout"))

	rec := f.get(t, "/config/public", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "store-unavailable")
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	f := newFixture(t, nil)
	for _, path := range []string{"/config", "/access/allowlist"} {
		assert.Equal(t, http.StatusUnauthorized, f.get(t, path, nil).Code, path)
	}
}

func TestProtectedRoutes_RequireScope(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/config", bearer(f.idp.token(t, "User.Read")))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProtectedRoutes_NoScopeConfiguredAcceptsAnyToken(t *testing.T) {
	f := newFixture(t, func(c *bootconfig.Config) { c.RequiredScope = "" })
	rec := f.get(t, "/access/allowlist", bearer(f.idp.token(t, "User.Read")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetConfig(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/config", bearer(f.idp.token(t, "User.Read Access.Admin")))
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []struct {
		Key   string
		Value *string
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "AzureAd:ClientId", rows[0].Key)
	require.NotNil(t, rows[0].Value)
	assert.Equal(t, "client-1", *rows[0].Value)
}

func TestGetAllowList(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/access/allowlist", bearer(f.idp.token(t, "Access.Admin")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["https://portal.example.com","http://localhost:5173"]`, rec.Body.String())
}

func TestQueryTokenRejectedOutsideStream(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/config?access_token="+f.idp.token(t, "Access.Admin"), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORS_OnPublicRoute(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get(t, "/config/public", map[string]string{"Origin": "http://LOCALHOST:5173"})
	assert.Equal(t, "http://LOCALHOST:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = f.get(t, "/config/public", map[string]string{"Origin": "https://evil.example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightBypassesAuth(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/config", nil)
	req.Header.Set("Origin", "https://portal.example.com")
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://portal.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Body.String())
}

func TestAllowListIsCachedAcrossRequests(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i < 3; i++ {
		f.get(t, "/config/public", map[string]string{"Origin": "https://portal.example.com"})
	}
	assert.Equal(t, 1, f.mem.Calls(store.ProcAllowedOrigins))
}

func TestOpenAPIDocument(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/openapi.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	paths := doc["paths"].(map[string]any)
	for _, p := range []string{"/health", "/readiness", "/config/public", "/config", "/access/allowlist", "/sessions/stream", "/metrics"} {
		assert.Contains(t, paths, p)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.get(t, "/config/public", map[string]string{"Origin": "https://portal.example.com"})

	rec := f.get(t, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mcpx_cors_decisions_total")
}
