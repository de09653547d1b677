package controllers

import (
	"net/http"
	"strconv"

	game_constants "Scorekeep/constants/game"
	"Scorekeep/middleware"
	"Scorekeep/models"
	"Scorekeep/models/postgres"

	"github.com/gin-gonic/gin"
)

// currentUser answers 401 itself when the request carries no identity.
func currentUser(c *gin.Context) (uint, bool) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return id, ok
}

// gameTypeParam returns the :gameType path segment, empty on routes that
// do not carry one.
func gameTypeParam(c *gin.Context) (string, bool) {
	gameType := c.Param("gameType")
	if gameType != "" && !game_constants.IsValidGameType(gameType) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unknown game type: " + gameType})
		return "", false
	}
	return gameType, true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(v), true
}

func activeGameResponse(g *postgres.ActiveGame) models.ActiveGameResponse {
	if g == nil {
		return models.ActiveGameResponse{HasActiveGame: false}
	}
	createdAt, updatedAt := g.CreatedAt, g.UpdatedAt
	return models.ActiveGameResponse{
		HasActiveGame: true,
		GameType:      g.GameType,
		GameState:     []byte(g.GameState),
		Version:       g.Version,
		CreatedAt:     &createdAt,
		UpdatedAt:     &updatedAt,
	}
}

func nonNilInvitations(invs []postgres.GameInvitation) []postgres.GameInvitation {
	if invs == nil {
		return []postgres.GameInvitation{}
	}
	return invs
}
