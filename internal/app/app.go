package app

import (
	"context"
	"fmt"

	"github.com/userhub/engine/internal/randomuser"
	"github.com/userhub/engine/internal/repository"
	"github.com/userhub/engine/internal/services"
	"github.com/userhub/engine/pkg/cache"
	"github.com/userhub/engine/pkg/config"
	"github.com/userhub/engine/pkg/database"
	"github.com/userhub/engine/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Core is the dependency graph shared by the API and the worker.
type Core struct {
	DB      *gorm.DB
	Cache   cache.Cache
	Users   repository.UserRepository
	Fetcher *randomuser.Client
	Service services.UserService
}

// Build opens the database and cache and wires the user service.
func Build(ctx context.Context, cfg *config.Config) (*Core, error) {
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, database.Options{Verbose: cfg.AppEnv != "production"})
	if err != nil {
		return nil, err
	}

	c, err := NewCache(cfg)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	fetcher, err := randomuser.New(randomuser.Options{
		BaseURL:     cfg.RandomUserAPIURL,
		BatchSize:   cfg.FetchBatchSize,
		MaxAttempts: cfg.FetchMaxAttempts,
		Timeout:     cfg.FetchTimeout,
	})
	if err != nil {
		_ = c.Close()
		closeDB(db)
		return nil, err
	}

	users := repository.NewUserRepository(db)
	svc := services.NewUserService(users, fetcher, c, services.UserServiceOptions{
		CacheTTL:      cfg.CacheTTL,
		MaxFetchCount: cfg.FetchMaxCount,
	})
	return &Core{DB: db, Cache: c, Users: users, Fetcher: fetcher, Service: svc}, nil
}

// NewCache selects the cache backend named by CACHE_DRIVER.
func NewCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.CacheDriver {
	case "memory":
		return cache.NewMemory(cfg.CacheMemorySize, cfg.CacheTTL), nil
	case "redis":
		return cache.NewRedis(cache.RedisOptions{URL: cfg.RedisURL, OpTimeout: cfg.CacheOpTimeout})
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.CacheDriver)
	}
}

// Ping reports whether the database answers.
func (c *Core) Ping(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Core) Close() {
	if err := c.Cache.Close(); err != nil {
		logger.L().Warn("cache close failed", zap.Error(err))
	}
	closeDB(c.DB)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.L().Warn("database close failed", zap.Error(err))
		}
	}
}
