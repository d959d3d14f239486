// Package infra opens the external dependencies of the server (PostgreSQL
// and Redis) and waits for them to answer before the server starts.
package infra

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
)

const (
	defaultStartupTimeout = 30 * time.Second
	pingTimeout           = 2 * time.Second
)

type Infra struct {
	DB    *sql.DB
	Redis redis.UniversalClient
}

// NewRedisClient returns a client for the revocation ledger. All traffic
// goes to the configured primary.
func NewRedisClient(cfg *config.Config) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// Setup opens the database pool and the Redis client and waits until both
// answer a ping, retrying with exponential backoff for up to
// defaultStartupTimeout.
func Setup(ctx context.Context, cfg *config.Config, l logging.Logger) (*Infra, error) {
	db, err := repomanager.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	inf := &Infra{DB: db, Redis: NewRedisClient(cfg)}

	if err := WaitFor(ctx, l, "postgres", inf.PingDB, defaultStartupTimeout); err != nil {
		return nil, multierror.Append(err, inf.Close()).ErrorOrNil()
	}
	l.Info(ctx, "database ready")

	if err := WaitFor(ctx, l, "redis", inf.PingRedis, defaultStartupTimeout); err != nil {
		return nil, multierror.Append(err, inf.Close()).ErrorOrNil()
	}
	l.Info(ctx, "redis ready", "address", cfg.RedisAddr)

	return inf, nil
}

func (i *Infra) PingDB(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return i.DB.PingContext(ctx)
}

func (i *Infra) PingRedis(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return i.Redis.Ping(ctx).Err()
}

// WaitFor retries ping until it succeeds, ctx ends or maxElapsed passes.
func WaitFor(ctx context.Context, l logging.Logger, name string, ping func(context.Context) error, maxElapsed time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = maxElapsed

	err := backoff.RetryNotify(
		func() error { return ping(ctx) },
		backoff.WithContext(b, ctx),
		func(err error, next time.Duration) {
			l.Warn(ctx, "dependency not ready", "dependency", name, "error", err, "retry_in", next)
		},
	)
	if err != nil {
		return fmt.Errorf("%s unavailable: %w", name, err)
	}
	return nil
}

// Close releases both connections, reporting every failure.
func (i *Infra) Close() error {
	var result *multierror.Error
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("redis close: %w", err))
		}
	}
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("db close: %w", err))
		}
	}
	return result.ErrorOrNil()
}
