package postgres

import (
	"time"

	game_constants "Scorekeep/constants/game"
)

/*
 * 'GameInvitation' represents an invitation of a registered user to one seat
 * (team slot) of a game session. Rows only move out of 'pending' and are
 * never deleted. (game_id, team_slot) is unique.
 */
type GameInvitation struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	GameID            string    `gorm:"size:100;not null;uniqueIndex:idx_game_invitations_slot,priority:1" json:"gameId"`
	GameType          string    `gorm:"size:20;not null" json:"gameType"`
	InvitedBy         uint      `gorm:"not null;index" json:"invitedBy"`
	InvitedByUsername string    `gorm:"size:50" json:"invitedByUsername"`
	InvitedUser       uint      `gorm:"not null;index:idx_game_invitations_user_status,priority:1" json:"invitedUser"`
	InvitedUsername   string    `gorm:"size:50" json:"invitedUsername"`
	TeamSlot          string    `gorm:"size:50;not null;uniqueIndex:idx_game_invitations_slot,priority:2" json:"teamSlot"`
	Status            string    `gorm:"size:20;not null;default:'pending';index:idx_game_invitations_user_status,priority:2" json:"status"`
	ExpiresAt         time.Time `gorm:"not null" json:"expiresAt"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (i *GameInvitation) IsPending() bool {
	return i.Status == game_constants.InvitationPending
}

func (i *GameInvitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
