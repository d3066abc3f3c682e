// cmd/admin-api-service/main.go
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mcpx/internal/adminapi"
	"mcpx/pkg/bootconfig"
	"mcpx/pkg/config"
	"mcpx/pkg/db"
	"mcpx/pkg/logger"
	"mcpx/pkg/store"
)

var version = "dev"

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, adminapi.ServiceName)
	defer log.Sync()

	dal, closeStore := openStore(cfg, log)
	defer closeStore()

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	boot, err := bootconfig.Load(bootCtx, dal)
	cancelBoot()
	if err != nil {
		log.Fatalw("boot configuration", "err", err)
	}
	log.Infow("boot configuration resolved", "config", boot.String())

	app := adminapi.New(log, dal, adminapi.Config{
		Boot:             boot,
		AllowListTTL:     cfg.AllowListTTL,
		SingleFlight:     cfg.AllowListSingleFlight,
		JWKSTTL:          cfg.JWKSTTL,
		DebugDoubleWrite: cfg.DebugDoubleWrite,
		Version:          version,
	})

	// Cancelled on shutdown so open event streams end instead of holding Shutdown open.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	go func() {
		log.Infow("admin-api listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	for s := range sig {
		if s == syscall.SIGHUP {
			app.Origins().Invalidate()
			continue
		}
		break
	}

	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnw("shutdown", "err", err)
	}
	fmt.Println("admin-api stopped")
}

// openStore builds the DAL for cfg.StoreDriver and returns its cleanup func.
func openStore(cfg config.Config, log *zap.SugaredLogger) (store.DAL, func()) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool := db.MustConnect(cfg, log)
		if pool == nil {
			log.Fatalw("postgres store selected but SQL_CONN_STRING / DATABASE_URL is empty")
		}
		if cfg.EnsureSchema {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := store.EnsureSchema(ctx, pool); err != nil {
				log.Fatalw("schema", "err", err)
			}
		}
		return store.NewPostgres(pool, "public", log), pool.Close
	case config.DriverRedis:
		rdb := db.MustRedis(cfg, log)
		if rdb == nil {
			log.Fatalw("redis store selected but REDIS_URL is empty")
		}
		return store.NewRedis(rdb, cfg.RedisKeyPrefix), func() { _ = rdb.Close() }
	case config.DriverMemory:
		if cfg.SeedFile == "" {
			return store.NewMemory(nil, nil), func() {}
		}
		mem, err := store.NewMemoryFromFile(cfg.SeedFile, log)
		if err != nil {
			log.Fatalw("memory store seed", "err", err)
		}
		return mem, func() {}
	case "":
		log.Fatalw("no store configured: set SQL_CONN_STRING or STORE_DRIVER", "env", cfg.Env)
	default:
		log.Fatalw("unknown STORE_DRIVER", "driver", cfg.StoreDriver)
	}
	return nil, func() {}
}
