// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

type Config struct {
	Env      string
	HTTPAddr string // admin-api-service

	// Key/value store
	StoreDriver    string
	DatabaseURL    string
	EnsureSchema   bool
	RedisURL       string
	RedisKeyPrefix string
	SeedFile       string

	// Caches
	AllowListTTL          time.Duration
	AllowListSingleFlight bool
	JWKSTTL               time.Duration

	ShutdownTimeout  time.Duration
	DebugDoubleWrite bool
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:                   env("MCPX_ENV", "dev"),
		HTTPAddr:              env("ADMIN_HTTP_ADDR", ":8080"),
		StoreDriver:           strings.ToLower(env("STORE_DRIVER", "")),
		DatabaseURL:           env("SQL_CONN_STRING", env("DATABASE_URL", "")),
		EnsureSchema:          envBool("DB_ENSURE_SCHEMA", false),
		RedisURL:              env("REDIS_URL", ""),
		RedisKeyPrefix:        env("REDIS_KEY_PREFIX", "mcpx:"),
		SeedFile:              env("STORE_SEED_FILE", ""),
		AllowListTTL:          envSeconds("ALLOWLIST_TTL_SEC", 300),
		AllowListSingleFlight: envBool("ALLOWLIST_SINGLE_FLIGHT", false),
		JWKSTTL:               envSeconds("JWKS_TTL_SEC", 21600),
		ShutdownTimeout:       envSeconds("SHUTDOWN_TIMEOUT_SEC", 10),
		DebugDoubleWrite:      envBool("DEBUG_DOUBLE_WRITE", false),
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = defaultDriver(cfg)
	}
	if cfg.StoreDriver == DriverMemory && cfg.Env == "dev" && cfg.SeedFile == "" {
		log.Println("[WARN] no SQL_CONN_STRING / STORE_SEED_FILE set, using an empty in-memory store for dev")
	}
	return cfg
}

// defaultDriver picks postgres when a DSN is present and memory in dev.
// Outside dev with no DSN it returns "" and main refuses to start.
func defaultDriver(cfg Config) string {
	switch {
	case cfg.DatabaseURL != "":
		return DriverPostgres
	case cfg.Env == "dev":
		return DriverMemory
	default:
		return ""
	}
}

func env(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return b
	}
	return def
}

// envSeconds reads a positive whole number of seconds as a duration.
func envSeconds(k string, defSeconds int) time.Duration {
	secs := defSeconds
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && i > 0 {
			secs = i
		}
	}
	return time.Duration(secs) * time.Second
}
