package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisService owns the Redis connection shared by the event broadcaster
// and the SSE handler.
type RedisService struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisService connects using a redis:// URL. A bare host:port is
// accepted too.
func NewRedisService(redisURL string, logger *slog.Logger) *RedisService {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}
	return &RedisService{
		client: redis.NewClient(opts),
		logger: logger,
	}
}

// Client returns the underlying client.
func (r *RedisService) Client() *redis.Client {
	return r.client
}

func (r *RedisService) Ping(ctx context.Context) error {
	cmd := r.client.Ping(ctx)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	r.logger.Debug("Redis ping successful", "result", cmd.Val())
	return nil
}

func (r *RedisService) Close() error {
	return r.client.Close()
}
