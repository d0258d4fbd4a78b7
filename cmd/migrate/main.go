package main

import (
	"context"
	"fmt"
	"os"

	"github.com/userhub/engine/pkg/config"
	"github.com/userhub/engine/pkg/database"
	"github.com/userhub/engine/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.OpenPostgres(context.Background(), cfg.DatabaseURL, database.Options{Verbose: true})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := runMigrations(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
