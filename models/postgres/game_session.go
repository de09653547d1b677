package postgres

import (
	"time"

	game_constants "Scorekeep/constants/game"
	"Scorekeep/models"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
)

/*
 * 'GameSession' is one invitation round started by a creator. Its id is the
 * client visible game id ("<gametype>-<unixmillis>-<random>"). Players holds
 * the submitted player list with the team slots resolved at creation.
 */
type GameSession struct {
	ID        string         `gorm:"primaryKey;size:100;not null" json:"gameId"`
	GameType  string         `gorm:"size:20;not null" json:"gameType"`
	CreatorID uint           `gorm:"not null;index" json:"creatorId"`
	State     string         `gorm:"size:20;not null;default:'pending';index:idx_game_sessions_state_created,priority:1" json:"state"`
	Players   datatypes.JSON `gorm:"type:jsonb" json:"players"`
	CreatedAt time.Time      `gorm:"index:idx_game_sessions_state_created,priority:2" json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// PlayerList decodes the stored player list.
func (s *GameSession) PlayerList() ([]models.PlayerEntry, error) {
	if len(s.Players) == 0 {
		return nil, nil
	}
	var players []models.PlayerEntry
	if err := sonic.Unmarshal(s.Players, &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (s *GameSession) SetPlayerList(players []models.PlayerEntry) error {
	raw, err := sonic.Marshal(players)
	if err != nil {
		return err
	}
	s.Players = datatypes.JSON(raw)
	return nil
}

// IsOpen reports whether the session can still be cancelled.
func (s *GameSession) IsOpen() bool {
	return s.State == game_constants.SessionPending || s.State == game_constants.SessionReady
}
