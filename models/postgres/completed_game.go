package postgres

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/*
 * 'CompletedGame' is the append-only record of a finished game. SourceKey
 * identifies the snapshot it was built from, so finishing twice after a crash
 * does not duplicate it. FinalScores maps each player slot (or team id in
 * s7ab) to a FinalScore and Winner lists the winning keys.
 */
type CompletedGame struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index:idx_completed_games_user_type,priority:1" json:"userId"`
	GameType    string         `gorm:"size:20;not null;index:idx_completed_games_user_type,priority:2" json:"gameType"`
	SourceKey   string         `gorm:"size:255;not null;uniqueIndex" json:"-"`
	FinalScores datatypes.JSON `gorm:"type:jsonb" json:"finalScores"`
	Winner      string         `gorm:"size:255" json:"winner"`
	Rounds      int            `gorm:"not null;default:0" json:"rounds"`
	GameState   datatypes.JSON `gorm:"type:jsonb;not null" json:"gameState"`
	StartedAt   time.Time      `json:"startedAt"`
	FinishedAt  time.Time      `gorm:"index" json:"finishedAt"`
}

// FinalScore is one entry of CompletedGame.FinalScores. Names are not
// unique, the map key is.
type FinalScore struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Winner bool   `json:"winner,omitempty"`
}

func (g *CompletedGame) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
