package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemory_QueryStringIsCaseInsensitive(t *testing.T) {
	m := NewMemory(map[string]string{"AzureAd:TenantId": "tenant-1"}, nil)

	v, err := m.QueryString(context.Background(), ProcConfigGetValue, KeyParam("azuread:tenantid"))
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "tenant-1", *v)

	v, err = m.QueryString(context.Background(), ProcConfigGetValue, KeyParam("missing"))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMemory_ConfigGetAllSortedByKey(t *testing.T) {
	m := NewMemory(map[string]string{"b": "2", "a": "1", "c": "3"}, nil)
	rows, err := m.Query(context.Background(), ProcConfigGetAll)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "a", rows[0].Key)
	assert.Equal(t, "b", rows[1].Key)
	assert.Equal(t, "c", rows[2].Key)
	assert.Equal(t, "3", *rows[2].Value)
}

func TestMemory_OriginsKeepStoreOrderAndDuplicates(t *testing.T) {
	m := NewMemory(nil, []string{"http://b", "http://a", "http://B"})
	rows, err := m.Query(context.Background(), ProcAllowedOrigins)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "http://b", *rows[0].Origin)
	assert.Equal(t, "http://a", *rows[1].Origin)
	assert.Equal(t, "http://B", *rows[2].Origin)

	n, err := m.Execute(context.Background(), ProcAllowedOrigins)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, 2, m.Calls(ProcAllowedOrigins))
}

func TestMemory_RejectsUnknownProcedure(t *testing.T) {
	m := NewMemory(nil, nil)
	_, err := m.Query(context.Background(), Proc("sp_users_delete_all"))
	assert.ErrorIs(t, err, ErrUnknownProcedure)
	_, err = m.QueryString(context.Background(), Proc("xp_cmdshell"))
	assert.ErrorIs(t, err, ErrUnknownProcedure)
}

func TestMemory_Fail(t *testing.T) {
	m := NewMemory(nil, []string{"http://a"})
	boom := errors.New("connection refused")
	m.Fail(boom)
	_, err := m.Query(context.Background(), ProcAllowedOrigins)
	assert.ErrorIs(t, err, boom)

	m.Fail(nil)
	_, err = m.Query(context.Background(), ProcAllowedOrigins)
	assert.NoError(t, err)
}

func TestNewMemoryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
config:
  AzureAd:TenantId: tenant-guid
  Sse:HeartbeatSeconds: "10"
origins:
  - http://localhost:5173
  - https://app.example.com
`), 0o600))

	m, err := NewMemoryFromFile(path, zap.NewNop().Sugar())
	require.NoError(t, err)

	v, ok, err := Lookup(context.Background(), m, "Sse:HeartbeatSeconds")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "10", v)

	rows, err := m.Query(context.Background(), ProcAllowedOrigins)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestLookup_BlankIsAbsent(t *testing.T) {
	m := NewMemory(map[string]string{"Auth:RequiredScope": "   "}, nil)
	_, ok, err := Lookup(context.Background(), m, "Auth:RequiredScope")
	require.NoError(t, err)
	assert.False(t, ok)
}
