package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/userhub/engine/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options tune how the pool is opened.
type Options struct {
	// Verbose enables warn-level query logging (development and test environments).
	Verbose    bool
	MaxRetries uint64
}

// OpenPostgres opens a Gorm PostgreSQL connection with retry and sane pooling defaults.
func OpenPostgres(ctx context.Context, dsn string, opts Options) (*gorm.DB, error) {
	var db *gorm.DB

	if opts.MaxRetries == 0 {
		opts.MaxRetries = 5
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 500 * time.Millisecond
	eb.MaxInterval = 5 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, opts.MaxRetries), ctx)

	open := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), GormConfig(opts.Verbose))
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.L().Warn("postgres not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
	}
	if err := backoff.RetryNotify(open, policy, notify); err != nil {
		return nil, fmt.Errorf("open postgres failed after retries: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db db() error: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctxPing); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// GormConfig is shared by every dialect the engine opens. Driver errors are left
// untranslated so callers can read the violated constraint name.
func GormConfig(verbose bool) *gorm.Config {
	level := gormlogger.Silent
	if verbose {
		level = gormlogger.Warn
	}
	return &gorm.Config{
		Logger:  zapGormLogger{zap: logger.L(), level: level},
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

type zapGormLogger struct {
	zap   *zap.Logger
	level gormlogger.LogLevel
}

func (l zapGormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	l.level = level
	return l
}

func (l zapGormLogger) Info(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.zap.Sugar().Infof(s, args...)
	}
}

func (l zapGormLogger) Warn(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.zap.Sugar().Warnf(s, args...)
	}
}

func (l zapGormLogger) Error(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.zap.Sugar().Errorf(s, args...)
	}
}

func (l zapGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == gormlogger.Silent {
		return
	}
	sql, rows := fc()
	dur := time.Since(begin)
	// Unique violations are expected during batch ingest and reported by the service.
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && !IsUniqueViolation(err) {
		l.zap.Error("gorm query error", zap.Duration("duration", dur), zap.Int64("rows", rows), zap.String("sql", sql), zap.Error(err))
		return
	}
	l.zap.Debug("gorm query", zap.Duration("duration", dur), zap.Int64("rows", rows), zap.String("sql", sql))
}

// IsUniqueViolation reports whether err is a unique-constraint failure from Postgres or SQLite.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
