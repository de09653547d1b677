package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// InitRedis connects and pings. Cached data is left in place: every entry
// is a copy of a postgres row and is rewritten on the next save.
func InitRedis(addr string, db int) (*RedisClient, error) {
	rc, err := NewRedisClient(addr, db)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		rc.client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	zap.S().Info("Successfully connected to Redis")
	return rc, nil
}

// CloseRedis gracefully closes the Redis connection
func CloseRedis(rc *RedisClient) error {
	if err := rc.client.Close(); err != nil {
		return fmt.Errorf("error closing Redis connection: %v", err)
	}
	return nil
}
