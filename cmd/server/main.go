package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mediahub/mediahub/internal/analysis"
	"github.com/mediahub/mediahub/internal/api"
	"github.com/mediahub/mediahub/internal/cache"
	"github.com/mediahub/mediahub/internal/config"
	"github.com/mediahub/mediahub/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	st := store.NewPostgresStore(pool)

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer redisCache.Close()

	backend := analysis.NewHTTPBackend(cfg.AI)
	svc := analysis.NewService(st, backend, redisCache)

	router := api.NewRouter(api.Dependencies{
		Store:           st,
		Cache:           redisCache,
		Analysis:        svc,
		Backend:         backend,
		RateLimitPerMin: cfg.Server.RateLimitPerMin,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Drain in-flight analysis tasks so their outcomes get recorded.
	if err := svc.Shutdown(shutdownCtx); err != nil {
		slog.Warn("analysis tasks did not finish before deadline", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
