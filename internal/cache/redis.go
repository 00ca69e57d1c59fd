package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// keyPrefix namespaces asset entries in a shared Redis instance.
const keyPrefix = "asset:"

// RedisStore is a Store backed by Redis, for deployments that share the
// asset cache across replicas. Expiry is delegated to Redis TTLs.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisStore creates a RedisStore and verifies connectivity.
func NewRedisStore(addr, password string, db int, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("cache: ping redis %s: %w", addr, err)
	}
	return &RedisStore{
		client: client,
		logger: logger.With("component", "redis_cache"),
	}, nil
}

// Get returns the bytes stored under key. Redis errors degrade to a miss so
// an unavailable store never fails the request.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		r.logger.Warn("redis get failed, treating as miss", "key", key, "err", err)
		return nil, false
	}
	return val, true
}

// Set stores val under key for ttl.
func (r *RedisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, keyPrefix+key, val, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
