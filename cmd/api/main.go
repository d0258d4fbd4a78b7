package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/userhub/engine/internal/api"
	"github.com/userhub/engine/internal/api/handlers"
	"github.com/userhub/engine/internal/app"
	"github.com/userhub/engine/internal/queue/tasks"
	"github.com/userhub/engine/internal/services"
	"github.com/userhub/engine/pkg/config"
	"github.com/userhub/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting userhub engine",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("cache", cfg.CacheDriver),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	core, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialise dependencies", zap.Error(err))
	}
	defer core.Close()
	log.Info("Database connected successfully")

	// Async ingest needs the task queue, which lives in Redis.
	var enq handlers.Enqueuer
	if cfg.RedisURL != "" {
		opt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		client := asynq.NewClient(opt)
		defer client.Close()
		enq = tasks.NewEnqueuer(client)
	}

	if cfg.SeedCount > 0 {
		seed(ctx, enq, core.Service, cfg.SeedCount)
	}

	router := api.NewRouter(ctx, api.Dependencies{
		UsersHandler: handlers.NewUsersHandler(core.Service, enq, cfg.FetchMaxCount),
		HealthHandler: handlers.NewHealthHandler(map[string]handlers.Check{
			"database": core.Ping,
			"cache":    core.Cache.Ping,
		}),
		CORSOrigins:    cfg.CORSOrigins(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		TrustProxy:     cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.FetchTimeout*time.Duration(cfg.FetchMaxAttempts) + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}

// seed loads the initial batch of users. With a task queue the work goes to
// the worker; otherwise it runs in the background of this process.
func seed(ctx context.Context, enq handlers.Enqueuer, svc services.UserService, count int) {
	if enq != nil {
		if _, err := enq.EnqueueFetch(ctx, count); err == nil {
			return
		}
		logger.L().Warn("seed enqueue failed, ingesting in-process", zap.Int("count", count))
	}
	go func() {
		if _, err := svc.FetchAndSave(ctx, count); err != nil {
			logger.L().Error("seed ingest failed", zap.Int("count", count), zap.Error(err))
		}
	}()
}
