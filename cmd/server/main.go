package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rbergman/wordwall/internal/config"
	"github.com/rbergman/wordwall/internal/engine"
	"github.com/rbergman/wordwall/internal/hub"
	"github.com/rbergman/wordwall/internal/logging"
	"github.com/rbergman/wordwall/internal/postgres"
	"github.com/rbergman/wordwall/internal/redis"
	"github.com/rbergman/wordwall/internal/server"
	goredis "github.com/redis/go-redis/v9"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Starting wordwall", "env", cfg.AppEnv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return err
	}

	rdb, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()

	clock := clockwork.NewRealClock()

	sessions := postgres.NewSessionRepo(pool)
	words := redis.NewWordStore(rdb)
	cooldowns := redis.NewCooldownStore(rdb, cfg.SubmitCooldown)

	h := hub.NewHub(clock, cfg.MaxClientsPerSession)

	eng := engine.New(sessions, words, cooldowns, h)

	healthChecks := []server.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
		{Name: "redis", Check: pingRedis(rdb)},
	}
	srv := server.NewServer(cfg, eng, h, healthChecks)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("Shutting down", "signal", sig.String())
	case err := <-errCh:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	h.Stop()
	slog.Info("Shutdown complete")
	return nil
}

func pingRedis(rdb *goredis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
