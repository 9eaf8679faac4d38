package cache

import (
	"context"
	"time"

	"crosspost/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// NewCache connects to Redis. The client is returned even when the ping
// fails so callers can run without a cache.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     username,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		logger.GetLogger().WithField("addr", addr).WithField("error", err).Warn("Redis not reachable")
		return client, err
	}
	return client, nil
}
