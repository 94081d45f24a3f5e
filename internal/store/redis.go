package store

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis at the given URL and verifies the
// connection. Redis backs the API rate limiter only; conversation state
// never lives here.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
