package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the config and allow-list tables plus the three
// procedures the DAL calls. Safe to call repeatedly (idempotent).
// Only intended for local bring-up; production schemas are managed externally.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS app_config (
  config_key text PRIMARY KEY,
  config_value text,
  updated_at timestamptz NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS security_allowed_origin (
  id bigserial PRIMARY KEY,
  origin text NOT NULL,
  created_at timestamptz NOT NULL DEFAULT NOW()
);
CREATE OR REPLACE FUNCTION sp_config_get_all()
RETURNS TABLE ("Key" text, "Value" text)
LANGUAGE sql STABLE AS $$
  SELECT config_key, config_value FROM app_config ORDER BY config_key
$$;
CREATE OR REPLACE FUNCTION sp_config_get_value(p_key text)
RETURNS TABLE ("Value" text)
LANGUAGE sql STABLE AS $$
  SELECT config_value FROM app_config WHERE lower(config_key) = lower(p_key)
$$;
CREATE OR REPLACE FUNCTION sp_security_get_allowed_origins()
RETURNS TABLE ("Origin" text)
LANGUAGE sql STABLE AS $$
  SELECT origin FROM security_allowed_origin ORDER BY id
$$;
`)
	return err
}
