// Command bearerauthd serves token session, refresh and introspection endpoints over a
// configurable refresh store.
//
// Configuration is read from the environment, optionally seeded from a .env file:
//
//	BEARERAUTH_SECRET      base64 HMAC secret (required)
//	STORE_BACKEND          memory | redis | postgres (default memory)
//	REDIS_URL              redis connection URL
//	DATABASE_DSN           postgres DSN
//	BEARERAUTH_PRINCIPALS  seed principals, "alice:USER,root:ADMIN"
//	SERVER_ADDR            listen address (default :8080)
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/bearerAuth"
	"github.com/MrEthical07/bearerAuth/postgres"
	"github.com/MrEthical07/bearerAuth/principal"
	"github.com/MrEthical07/bearerAuth/refresh"
	"github.com/MrEthical07/bearerAuth/refresh/redisstore"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bearerauthd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.close()

	builder := bearerAuth.New().
		WithConfig(cfg.Engine).
		WithRefreshStore(backend.store).
		WithPrincipalLookup(backend.lookup).
		WithLogger(logger)
	if cfg.Engine.Audit.Enabled {
		builder = builder.WithAuditSink(bearerAuth.NewJSONWriterSink(os.Stdout))
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           newRouter(engine, backend.lookup, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ServerAddr, "backend", cfg.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type backend struct {
	store  bearerAuth.RefreshStore
	lookup bearerAuth.PrincipalLookup
	close  func()
}

func openBackend(ctx context.Context, cfg daemonConfig, logger *slog.Logger) (*backend, error) {
	static := principal.NewStaticLookup(cfg.Principals...)

	switch cfg.Backend {
	case BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return &backend{
			store:  redisstore.New(client, cfg.Engine.Store.RedisPrefix),
			lookup: static,
			close:  func() { _ = client.Close() },
		}, nil

	case BackendPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		lookup := postgres.NewPrincipalLookup(db)
		for _, p := range cfg.Principals {
			if err := lookup.Upsert(ctx, p.Subject, p.Role); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("seed principal %s: %w", p.Subject, err)
			}
		}
		store := postgres.NewRefreshStore(db, nil)
		purgeCtx, cancel := context.WithCancel(ctx)
		go purgeLoop(purgeCtx, store, cfg.PurgeEvery, logger)
		return &backend{
			store:  store,
			lookup: lookup,
			close: func() {
				cancel()
				closeDB(db, logger)
			},
		}, nil

	default:
		return &backend{
			store:  refresh.NewMemoryStore(nil),
			lookup: static,
			close:  func() {},
		}, nil
	}
}

func purgeLoop(ctx context.Context, store *postgres.RefreshStore, every time.Duration, logger *slog.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				logger.Error("purge expired refresh tokens", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged expired refresh tokens", "count", n)
			}
		}
	}
}

func closeDB(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("close database", "error", err)
	}
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
