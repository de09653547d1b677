package controllers

import (
	"io"
	"net/http"

	"Scorekeep/models"
	"Scorekeep/utils"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// @Summary Session status
// @Description State and acceptance aggregate of a session, for clients recovering after a reconnect
// @Tags sessions
// @Produce json
// @Param gameId path string true "Session id"
// @Success 200 {object} object{gameId=string,gameType=string,state=string,creatorId=integer,allAccepted=boolean}
// @Failure 404 {object} object{error=string}
// @Router /api/game-sessions/{gameId} [get]
// @Security ApiKeyAuth
func GetGameSession(o GameOrchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		view, err := o.SessionStatus(c.Request.Context(), userID, c.Param("gameId"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"gameId":      view.Session.ID,
			"gameType":    view.Session.GameType,
			"state":       view.Session.State,
			"creatorId":   view.Session.CreatorID,
			"players":     view.Players,
			"invitations": nonNilInvitations(view.Invitations),
			"aggregate":   view.Aggregate,
			"allAccepted": view.Aggregate.AllAccepted(),
		})
	}
}

// @Summary Starts a ready session
// @Description Creator only. Stores the initial game state as the creator's active game. Without a body a round zero state is built from the seated players.
// @Tags sessions
// @Accept json
// @Produce json
// @Param gameId path string true "Session id"
// @Param request body models.StartGameRequest false "Initial game state"
// @Success 200 {object} models.ActiveGameResponse
// @Failure 400 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Router /api/game-sessions/{gameId}/start [post]
// @Security ApiKeyAuth
func StartGameSession(o GameOrchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req models.StartGameRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		game, err := o.StartGame(c.Request.Context(), userID, c.Param("gameId"), req.GameState)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, activeGameResponse(game))
	}
}

// @Summary Cancels a session
// @Description Creator only, any time before the game starts. Pending invitations are cancelled and invitees notified.
// @Tags sessions
// @Produce json
// @Param gameId path string true "Session id"
// @Success 200 {object} object{message=string,gameId=string}
// @Failure 404 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Router /api/game-sessions/{gameId}/cancel [post]
// @Security ApiKeyAuth
func CancelGameSession(o GameOrchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		gameID := c.Param("gameId")
		if err := o.CancelSession(c.Request.Context(), userID, gameID); err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Session cancelled", "gameId": gameID})
	}
}
