package config

import (
	"Scorekeep/services/redis"

	"go.uber.org/zap"
)

// Connect_redis returns nil without error when no redis url is configured.
func Connect_redis(c RedisConfig) (*redis.RedisClient, error) {
	if c.URL == "" {
		zap.S().Info("Redis not configured, active games are read from PostgreSQL only")
		return nil, nil
	}
	redisClient, err := redis.InitRedis(c.URL, c.DB)
	if err != nil {
		return nil, err
	}
	zap.S().Info("Redis connection established")
	return redisClient, nil
}
