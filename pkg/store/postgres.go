// pkg/store/postgres.go
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// pgConn is the subset of pgxpool.Pool the adapter needs.
type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// pgDAL implements DAL on top of PostgreSQL functions, one per Proc.
type pgDAL struct {
	conn   pgConn
	schema string
	log    *zap.SugaredLogger
}

// NewPostgres constructs a PostgreSQL-backed DAL. Procedures are resolved in
// the given schema ("public" when empty).
func NewPostgres(pool *pgxpool.Pool, schema string, log *zap.SugaredLogger) DAL {
	if strings.TrimSpace(schema) == "" {
		schema = "public"
	}
	return &pgDAL{conn: pool, schema: schema, log: log}
}

// callSQL renders `SELECT * FROM schema.proc(p_name => $1, ...)` with sanitized identifiers.
func (p *pgDAL) callSQL(proc Proc, params []Param) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(pgx.Identifier{p.schema, string(proc)}.Sanitize())
	b.WriteByte('(')
	args := make([]any, 0, len(params))
	for i, prm := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgx.Identifier{"p_" + strings.ToLower(prm.Name)}.Sanitize())
		fmt.Fprintf(&b, " => $%d", i+1)
		args = append(args, prm.Value)
	}
	b.WriteByte(')')
	return b.String(), args
}

func (p *pgDAL) Execute(ctx context.Context, proc Proc, params ...Param) (int64, error) {
	if err := proc.Check(); err != nil {
		return 0, err
	}
	sql, args := p.callSQL(proc, params)
	tag, err := p.conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("exec %s: %w", proc, err)
	}
	return tag.RowsAffected(), nil
}

func (p *pgDAL) Query(ctx context.Context, proc Proc, params ...Param) ([]Row, error) {
	if err := proc.Check(); err != nil {
		return nil, err
	}
	sql, args := p.callSQL(proc, params)
	rows, err := p.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", proc, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	var out []Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", proc, err)
		}
		out = append(out, decodeRow(names, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", proc, err)
	}
	return out, nil
}

func (p *pgDAL) QueryString(ctx context.Context, proc Proc, params ...Param) (*string, error) {
	if err := proc.Check(); err != nil {
		return nil, err
	}
	sql, args := p.callSQL(proc, params)
	rows, err := p.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", proc, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	vals, err := rows.Values()
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", proc, err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return stringOf(vals[0]), nil
}

// decodeRow maps column names case-insensitively onto Row.
func decodeRow(names []string, vals []any) Row {
	var r Row
	for i, name := range names {
		if i >= len(vals) {
			break
		}
		switch strings.ToLower(name) {
		case "key":
			if s := stringOf(vals[i]); s != nil {
				r.Key = *s
			}
		case "value":
			r.Value = stringOf(vals[i])
		case "origin":
			r.Origin = stringOf(vals[i])
		}
	}
	return r
}

func stringOf(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return strPtr(t)
	case []byte:
		return strPtr(string(t))
	default:
		return strPtr(fmt.Sprint(t))
	}
}
