package redis

import (
	"context"
	"fmt"
	"time"

	redis_models "Scorekeep/models/redis"
	redis_utils "Scorekeep/services/redis/utils"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// SaveActiveGame caches a user's snapshot
// Key format: "user:{id}:active_game"
func (rc *RedisClient) SaveActiveGame(ctx context.Context, game *redis_models.ActiveGame, ttl time.Duration) error {
	key := redis_utils.FormatActiveGameKey(game.UserID)
	data, err := sonic.Marshal(game)
	if err != nil {
		return fmt.Errorf("error marshaling active game: %v", err)
	}
	return rc.client.Set(ctx, key, data, ttl).Err()
}

// GetActiveGame returns nil, nil on a cache miss
// Key format: "user:{id}:active_game"
func (rc *RedisClient) GetActiveGame(ctx context.Context, userID uint) (*redis_models.ActiveGame, error) {
	key := redis_utils.FormatActiveGameKey(userID)
	data, err := rc.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting active game: %v", err)
	}

	var game redis_models.ActiveGame
	if err := sonic.Unmarshal(data, &game); err != nil {
		return nil, fmt.Errorf("error unmarshaling active game: %v", err)
	}
	return &game, nil
}

// DeleteActiveGame evicts a user's snapshot
func (rc *RedisClient) DeleteActiveGame(ctx context.Context, userID uint) error {
	if err := rc.client.Del(ctx, redis_utils.FormatActiveGameKey(userID)).Err(); err != nil {
		return fmt.Errorf("error deleting active game: %v", err)
	}
	return nil
}
