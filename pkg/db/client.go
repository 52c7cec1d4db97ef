package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/framesmith/framesmith-backend/pkg/config"
	"github.com/framesmith/framesmith-backend/pkg/logger"
	"github.com/sethvargo/go-retry"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client wraps the shared GORM connection.
type Client struct {
	conn       *gorm.DB
	log        *logger.Logger
	maxRetries uint64
	backoff    retryBackoffConfig
}

type retryBackoffConfig struct {
	base config.DBConfig
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New boots a GORM client using the provided configuration.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	})

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	gormCfg := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}

	applyPoolSettings(sqlDB, cfg)

	if logg != nil {
		logg.Info(ctx, "database connection established")
	}

	return FromConn(conn, cfg, logg), nil
}

// FromConn wraps an existing GORM connection; used by tests running on sqlite.
func FromConn(conn *gorm.DB, cfg config.DBConfig, logg *logger.Logger) *Client {
	maxRetries := uint64(cfg.TxMaxRetries)
	if maxRetries == 0 {
		maxRetries = 3
	}
	if cfg.TxRetryBackoff <= 0 {
		cfg.TxRetryBackoff = 25 * time.Millisecond
	}
	return &Client{
		conn:       conn,
		log:        logg,
		maxRetries: maxRetries,
		backoff:    retryBackoffConfig{base: cfg},
	}
}

func applyPoolSettings(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx executes fn inside a transaction at the driver's default isolation,
// rolling back on error/panic.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.WithTxOptions(ctx, nil, fn)
}

// WithTxOptions executes fn inside a transaction with explicit options,
// rolling back on error/panic.
func (c *Client) WithTxOptions(ctx context.Context, opts *sql.TxOptions, fn func(tx *gorm.DB) error) error {
	if opts != nil && c.conn.Dialector.Name() == "sqlite" {
		// sqlite transactions are already serializable and the driver
		// rejects explicit isolation levels.
		opts = nil
	}
	var tx *gorm.DB
	if opts != nil {
		tx = c.conn.WithContext(ctx).Begin(opts)
	} else {
		tx = c.conn.WithContext(ctx).Begin()
	}
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// WithTxRetry runs fn like WithTxOptions but transparently retries the whole
// transaction on serialization failures, deadlocks, and dropped connections.
// fn must be safe to re-execute from scratch: it may not carry mutable state
// across attempts, and mutating workflows are expected to guard themselves
// with a precomputed-identity existence check as their first read.
func (c *Client) WithTxRetry(ctx context.Context, opts *sql.TxOptions, fn func(tx *gorm.DB) error) error {
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff.base.TxRetryBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.WithTxOptions(ctx, opts, fn)
		if err == nil {
			return nil
		}
		if IsRetryable(err) {
			if c.log != nil {
				c.log.Warn(ctx, "retrying transaction after transient failure: "+err.Error())
			}
			return retry.RetryableError(err)
		}
		return err
	})
}

// Serializable is the isolation used by checkout and staff order creation:
// the promo usage check-then-insert is a phantom-read hazard below it.
func Serializable() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}

// RepeatableRead is the isolation used by status transitions and cancellation.
func RepeatableRead() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
}
