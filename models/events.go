package models

import "time"

// Payloads pushed over the realtime channel.

type GameInvitationEvent struct {
	InvitationID uint      `json:"invitationId"`
	GameID       string    `json:"gameId"`
	GameType     string    `json:"gameType"`
	InvitedBy    string    `json:"invitedBy"`
	TeamSlot     string    `json:"teamSlot"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type InvitationResponseEvent struct {
	InvitationID uint   `json:"invitationId"`
	Response     string `json:"response"`
	GameID       string `json:"gameId"`
	PlayerName   string `json:"playerName"`
	TeamSlot     string `json:"teamSlot"`
}

type InvitationResponseSentEvent struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SessionEvent struct {
	GameID string `json:"gameId"`
}

type ErrorEvent struct {
	Error string `json:"error"`
}
