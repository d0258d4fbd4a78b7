package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/userhub/engine/internal/app"
	"github.com/userhub/engine/internal/queue/tasks"
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

	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required by the worker")
	}
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		log.Fatal("invalid REDIS_URL", zap.Error(err))
	}

	ctx := context.Background()
	core, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal("failed to initialise dependencies", zap.Error(err))
	}
	defer core.Close()

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
		Logger:      log.Sugar(),
	})

	mux := asynq.NewServeMux()
	handler := tasks.NewFetchTaskHandler(core.Service)
	mux.HandleFunc(tasks.TypeFetchUsers, handler.HandleFetch)

	errCh := make(chan error, 1)
	go func() {
		log.Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("worker stopped with error", zap.Error(err))
	}

	// asynq.Server.Shutdown waits for in-flight tasks up to its ShutdownTimeout.
	srv.Shutdown()
}
