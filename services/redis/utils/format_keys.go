package utils

/**
 * Key builders for the Redis cache, so every caller agrees on the
 * "user:{id}:active_game" layout.
 */

import "fmt"

func FormatActiveGameKey(userID uint) string {
	return fmt.Sprintf("user:%d:active_game", userID)
}
