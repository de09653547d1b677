package redis

import (
	"encoding/json"
	"time"
)

// ActiveGame is the cached copy of a user's active game snapshot
type ActiveGame struct {
	UserID    uint            `json:"user_id"`    // Matches active_games.user_id
	GameType  string          `json:"game_type"`  // Matches active_games.game_type
	GameState json.RawMessage `json:"game_state"` // Canonical encoding, matches active_games.game_state
	Version   int64           `json:"version"`    // Matches active_games.version
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
