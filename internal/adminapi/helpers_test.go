package adminapi

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mcpx/pkg/bootconfig"
	"mcpx/pkg/store"
)

const (
	testAudience = "api://mcpx-admin"
	testScope    = "Access.Admin"
)

// identityProvider serves discovery and a one-key JWKS and mints tokens.
type identityProvider struct {
	srv  *httptest.Server
	priv jwk.Key
}

func newIdentityProvider(t *testing.T) *identityProvider {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	priv, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, priv.Set(jwk.KeyIDKey, "k1"))
	require.NoError(t, priv.Set(jwk.AlgorithmKey, jwa.RS256))
	pub, err := jwk.PublicKeyOf(priv)
	require.NoError(t, err)
	require.NoError(t, pub.Set(jwk.KeyIDKey, "k1"))
	require.NoError(t, pub.Set(jwk.AlgorithmKey, jwa.RS256))
	keys := jwk.NewSet()
	require.NoError(t, keys.AddKey(pub))

	idp := &identityProvider{priv: priv}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"issuer": idp.srv.URL, "jwks_uri": idp.srv.URL + "/keys"})
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(keys)
	})
	idp.srv = httptest.NewServer(mux)
	t.Cleanup(idp.srv.Close)
	return idp
}

func (idp *identityProvider) token(t *testing.T, scp string) string {
	t.Helper()
	tok, err := jwt.NewBuilder().
		Issuer(idp.srv.URL).
		Audience([]string{testAudience}).
		Subject("operator").
		Expiration(time.Now().Add(time.Hour)).
		Claim("scp", scp).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, idp.priv))
	require.NoError(t, err)
	return string(signed)
}

type fixture struct {
	mem *store.Memory
	idp *identityProvider
	app *App
	h   http.Handler
}

func newFixture(t *testing.T, boot func(*bootconfig.Config)) *fixture {
	t.Helper()
	idp := newIdentityProvider(t)
	mem := store.NewMemory(map[string]string{
		"AzureAd:TenantId":     "tenant-1",
		"AzureAd:ClientId":     "client-1",
		"Sse:HeartbeatSeconds": "1",
	}, []string{"https://portal.example.com", "https://PORTAL.example.com", "http://localhost:5173"})

	cfg := bootconfig.Config{Authority: idp.srv.URL, Audience: testAudience, RequiredScope: testScope}
	if boot != nil {
		boot(&cfg)
	}
	app := New(zap.NewNop().Sugar(), mem, Config{Boot: cfg, Version: "test"})
	return &fixture{mem: mem, idp: idp, app: app, h: app.Handler()}
}

func (f *fixture) get(t *testing.T, target string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func bearer(tok string) map[string]string { return map[string]string{"Authorization": "Bearer " + tok} }
