package config

// Redis backs the token store, the response cache and the rate limiter.
// If the server is unreachable at startup the constructor returns nil and
// callers degrade: tokens fall back to an in-process store, caching and
// rate limiting are disabled.

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a Redis client from REDIS_URL (a redis:// or
// rediss:// URL) or, failing that, REDIS_HOST/REDIS_PORT/REDIS_PASSWORD/
// REDIS_DB. Returns nil when the server does not answer a ping.
func NewRedisClient() *redis.Client {
	var opts *redis.Options
	if raw := os.Getenv("REDIS_URL"); raw != "" {
		parsed, err := redis.ParseURL(raw)
		if err != nil {
			return nil
		}
		opts = parsed
	} else {
		addr := getenv("REDIS_ADDR", "")
		if host := os.Getenv("REDIS_HOST"); host != "" {
			addr = host + ":" + getenv("REDIS_PORT", "6379")
		}
		if addr == "" {
			addr = "localhost:6379"
		}
		opts = &redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
