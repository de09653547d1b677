package models

import (
	"encoding/json"
	"time"
)

// PlayerEntry is one seat of a submitted player list. Free text names of
// people without an account are sent with IsRegistered=false.
type PlayerEntry struct {
	Username     string `json:"username"`
	IsRegistered bool   `json:"isRegistered"`
	TeamSlot     string `json:"teamSlot,omitempty"`
	UserID       uint   `json:"userId,omitempty"`
}

// CreateInvitationsRequest is the body of POST /api/game-invitations
type CreateInvitationsRequest struct {
	GameType string        `json:"gameType" binding:"required"`
	Players  []PlayerEntry `json:"players" binding:"required"`
	GameID   string        `json:"gameId"`
}

// RespondInvitationRequest is the body of the HTTP response fallback
type RespondInvitationRequest struct {
	Response string `json:"response" binding:"required"`
}

// SaveActiveGameRequest is the body of POST /api/active-game
type SaveActiveGameRequest struct {
	GameType  string          `json:"gameType"`
	GameState json.RawMessage `json:"gameState" binding:"required"`
}

// StartGameRequest carries the creator's initial game state. When it is
// omitted a round zero state is built from the seated players.
type StartGameRequest struct {
	GameState json.RawMessage `json:"gameState"`
}

// RecordRoundRequest is the body of POST /api/active-game/rounds
type RecordRoundRequest struct {
	Scores map[string]int `json:"scores" binding:"required"`
}

// LoginRequest accepts both form and JSON encodings.
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// RealtimeConfig tells clients how often to re-poll their invitations.
type RealtimeConfig struct {
	PollIntervalSeconds  int `json:"pollIntervalSeconds"`
	InvitationTTLSeconds int `json:"invitationTtlSeconds"`
}

// ActiveGameResponse is the read model of GET /api/active-game
type ActiveGameResponse struct {
	HasActiveGame bool            `json:"hasActiveGame"`
	GameType      string          `json:"gameType,omitempty"`
	GameState     json.RawMessage `json:"gameState,omitempty"`
	Version       int64           `json:"version,omitempty"`
	CreatedAt     *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time      `json:"updatedAt,omitempty"`
}
