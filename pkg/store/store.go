// pkg/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Proc names one of the stored procedures the admin API is allowed to call.
type Proc string

const (
	ProcConfigGetAll   Proc = "sp_config_get_all"
	ProcConfigGetValue Proc = "sp_config_get_value"
	ProcAllowedOrigins Proc = "sp_security_get_allowed_origins"
)

// ErrUnknownProcedure is returned for any procedure outside the allow-listed set.
var ErrUnknownProcedure = errors.New("store: unknown procedure")

var knownProcs = map[Proc]struct{}{
	ProcConfigGetAll:   {},
	ProcConfigGetValue: {},
	ProcAllowedOrigins: {},
}

// Check reports ErrUnknownProcedure when p is not part of the contract.
func (p Proc) Check() error {
	if _, ok := knownProcs[p]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProcedure, string(p))
	}
	return nil
}

// Param is a named procedure argument. Names are given without any
// backend-specific prefix (e.g. "key", not "@Key" or "p_key").
type Param struct {
	Name  string
	Value any
}

// KeyParam builds the single parameter of ProcConfigGetValue.
func KeyParam(key string) Param { return Param{Name: "key", Value: key} }

// Row is the typed projection of every row shape the API consumes.
// Config rows fill Key/Value; allow-list rows fill Origin.
type Row struct {
	Key    string
	Value  *string
	Origin *string
}

// DAL is the restricted stored-procedure contract. Implementations decode
// backend rows into Row before returning.
type DAL interface {
	// Execute runs proc and returns the number of rows it affected or produced.
	Execute(ctx context.Context, proc Proc, params ...Param) (int64, error)
	// Query runs proc and returns its rows.
	Query(ctx context.Context, proc Proc, params ...Param) ([]Row, error)
	// QueryString returns the first column of the first row, or nil when
	// there is no row or the value is null.
	QueryString(ctx context.Context, proc Proc, params ...Param) (*string, error)
}

// Lookup reads a single config value. Blank values are reported as absent.
func Lookup(ctx context.Context, dal DAL, key string) (string, bool, error) {
	v, err := dal.QueryString(ctx, ProcConfigGetValue, KeyParam(key))
	if err != nil {
		return "", false, fmt.Errorf("lookup %q: %w", key, err)
	}
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", false, nil
	}
	return *v, true, nil
}

func paramValue(params []Param, name string) (any, bool) {
	for _, p := range params {
		if strings.EqualFold(p.Name, name) {
			return p.Value, true
		}
	}
	return nil, false
}

func strPtr(s string) *string { return &s }
