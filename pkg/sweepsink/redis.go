package sweepsink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/illmade-knight/go-doccache/pkg/doccache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds the configuration for the Redis client and the hash the
// reporter writes to.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Key is the hash that holds sweep statistics. Defaults to "doccache:sweeps:<cache name>".
	Key string
}

// RedisHashClient is the subset of *redis.Client used by RedisReporter.
type RedisHashClient interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd
}

// NewRedisClient creates a Redis client and pings the server to ensure
// connectivity before returning.
func NewRedisClient(ctx context.Context, cfg *RedisConfig, logger zerolog.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", cfg.Addr).Msg("Successfully connected to Redis.")
	return rdb, nil
}

// RedisReporter keeps the latest sweep and running totals in a Redis hash so
// any instance or dashboard can read them.
type RedisReporter struct {
	client    RedisHashClient
	key       string
	cacheName string
	logger    zerolog.Logger
}

// NewRedisReporter creates a reporter writing to the hash named by cfg.Key.
func NewRedisReporter(client RedisHashClient, cfg *RedisConfig, cacheName string, logger zerolog.Logger) (*RedisReporter, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	key := ""
	if cfg != nil {
		key = cfg.Key
	}
	if key == "" {
		key = "doccache:sweeps:" + cacheName
	}
	return &RedisReporter{
		client:    client,
		key:       key,
		cacheName: cacheName,
		logger:    logger.With().Str("component", "RedisSweepReporter").Str("redis_key", key).Logger(),
	}, nil
}

// Report overwrites the last-sweep fields and increments the totals.
func (r *RedisReporter) Report(ctx context.Context, report doccache.SweepReport) error {
	rec := NewSweepRecord(r.cacheName, report)
	err := r.client.HSet(ctx, r.key,
		"last_sweep_id", rec.SweepID,
		"last_sweep_at", rec.FinishedAt.Format(time.RFC3339Nano),
		"last_removed", rec.Removed,
		"remaining", rec.Remaining,
		"last_error", rec.Error,
	).Err()
	if err != nil {
		return fmt.Errorf("redis hset for %s: %w", r.key, err)
	}
	if err := r.client.HIncrBy(ctx, r.key, "total_removed", int64(rec.Removed)).Err(); err != nil {
		return fmt.Errorf("redis hincrby total_removed for %s: %w", r.key, err)
	}
	if err := r.client.HIncrBy(ctx, r.key, "sweeps", 1).Err(); err != nil {
		return fmt.Errorf("redis hincrby sweeps for %s: %w", r.key, err)
	}
	r.logger.Debug().Str("sweep_id", rec.SweepID).Msg("Stored sweep statistics in Redis.")
	return nil
}
