package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/secondbrainhq/secondbrain/internal/cache"
	"github.com/secondbrainhq/secondbrain/internal/config"
	"github.com/secondbrainhq/secondbrain/internal/db"
	httpx "github.com/secondbrainhq/secondbrain/internal/http"
	"github.com/secondbrainhq/secondbrain/internal/observability"
)

const aiCacheTTL = 24 * time.Hour

func main() {
	// Missing signing secret is a startup failure, never a runtime one.
	cfg, err := config.Load()

	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)

	// Tracing is best effort; the API runs fine without a collector.
	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, "secondbrain-api", cfg.OTLPEndpoint)

	if err != nil {
		log.Warn("tracer init failed, continuing without traces", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	initCtx, cancel := config.WithTimeout(10 * time.Second)
	err = db.EnsureSchema(initCtx, pool)
	cancel()

	if err != nil {
		log.Error("schema bootstrap failed", "err", err)
		os.Exit(1)
	}

	aiCache := newAICache(cfg, log)

	router := httpx.NewRouter(log, pool, cfg, aiCache)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "ai_configured", cfg.AIConfigured())

		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		_ = shutdownTracer(ctx)
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// newAICache prefers redis when configured and reachable, otherwise an
// in-process TTL map. The cache is an optimization either way.
func newAICache(cfg config.Config, log *slog.Logger) cache.Store {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(aiCacheTTL)
	}

	rc := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, aiCacheTTL)

	ctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if err := rc.Ping(ctx); err != nil {
		log.Warn("redis unreachable, using in-memory AI cache", "err", err)
		_ = rc.Close()
		return cache.NewMemory(aiCacheTTL)
	}

	return rc
}
