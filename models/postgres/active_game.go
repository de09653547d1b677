package postgres

import (
	"time"

	"gorm.io/datatypes"
)

/*
 * 'ActiveGame' is the in-progress game snapshot of a user. There is at most
 * one row per user; saves replace the whole document and bump Version.
 */
type ActiveGame struct {
	UserID    uint           `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	GameType  string         `gorm:"size:20;not null" json:"gameType"`
	GameState datatypes.JSON `gorm:"type:jsonb;not null" json:"gameState"`
	Version   int64          `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
