package controllers

import (
	"context"
	"net/http"

	"Scorekeep/models"
	"Scorekeep/models/postgres"
	"Scorekeep/services/gamestate"
	"Scorekeep/utils"

	"github.com/gin-gonic/gin"
)

type ActiveGames interface {
	GetActiveGame(ctx context.Context, userID uint) (*postgres.ActiveGame, error)
	SaveActiveGame(ctx context.Context, userID uint, gameType string, rawState []byte) (*postgres.ActiveGame, error)
	RecordRound(ctx context.Context, userID uint, scores map[string]int) (*postgres.ActiveGame, error)
	DeleteActiveGame(ctx context.Context, userID uint) error
	DeleteActiveGameOfType(ctx context.Context, userID uint, gameType string) (bool, error)
}

// @Summary Active game of the caller
// @Description Returns hasActiveGame=false when there is none. The /api/games/{gameType} variant only reports a game of that type.
// @Tags active-game
// @Produce json
// @Param gameType path string false "chkan, s7ab or jaki"
// @Success 200 {object} models.ActiveGameResponse
// @Failure 400 {object} object{error=string}
// @Router /api/active-game [get]
// @Router /api/games/{gameType}/active-game [get]
// @Security ApiKeyAuth
func GetActiveGame(games ActiveGames) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		gameType, ok := gameTypeParam(c)
		if !ok {
			return
		}
		game, err := games.GetActiveGame(c.Request.Context(), userID)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		if game != nil && gameType != "" && game.GameType != gameType {
			game = nil
		}
		c.JSON(http.StatusOK, activeGameResponse(game))
	}
}

// @Summary Saves the active game
// @Description Replaces the caller's snapshot. The game type comes from the path, the body, or the gameType tag of the state, in that order.
// @Tags active-game
// @Accept json
// @Produce json
// @Param gameType path string false "chkan, s7ab or jaki"
// @Param request body models.SaveActiveGameRequest true "Game state"
// @Success 200 {object} models.ActiveGameResponse
// @Failure 400 {object} object{error=string}
// @Router /api/active-game [post]
// @Router /api/games/{gameType}/active-game [post]
// @Security ApiKeyAuth
func SaveActiveGame(games ActiveGames) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		gameType, ok := gameTypeParam(c)
		if !ok {
			return
		}
		var req models.SaveActiveGameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "gameState is required"})
			return
		}

		switch {
		case gameType != "" && req.GameType != "" && req.GameType != gameType:
			c.JSON(http.StatusBadRequest, gin.H{"error": "gameType does not match the path"})
			return
		case gameType == "" && req.GameType != "":
			gameType = req.GameType
		case gameType == "":
			state, err := gamestate.DecodeTagged(req.GameState)
			if err != nil {
				utils.RespondError(c, err)
				return
			}
			gameType = state.GameType()
		}

		game, err := games.SaveActiveGame(c.Request.Context(), userID, gameType, req.GameState)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, activeGameResponse(game))
	}
}

// @Summary Deletes the active game
// @Description Abandons the caller's game without recording it. The /api/games/{gameType} variant leaves a game of another type alone.
// @Tags active-game
// @Produce json
// @Param gameType path string false "chkan, s7ab or jaki"
// @Success 200 {object} object{message=string}
// @Router /api/active-game [delete]
// @Router /api/games/{gameType}/active-game [delete]
// @Security ApiKeyAuth
func DeleteActiveGame(games ActiveGames) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		gameType, ok := gameTypeParam(c)
		if !ok {
			return
		}
		if gameType != "" {
			deleted, err := games.DeleteActiveGameOfType(c.Request.Context(), userID, gameType)
			if err != nil {
				utils.RespondError(c, err)
				return
			}
			if !deleted {
				c.JSON(http.StatusOK, gin.H{"message": "No active " + gameType + " game"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Active game deleted"})
			return
		}
		if err := games.DeleteActiveGame(c.Request.Context(), userID); err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Active game deleted"})
	}
}

// @Summary Records a round
// @Description Applies one round of scores, keyed by team slot or team id, to the caller's active game
// @Tags active-game
// @Accept json
// @Produce json
// @Param request body models.RecordRoundRequest true "Scores of the round"
// @Success 200 {object} models.ActiveGameResponse
// @Failure 400 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Router /api/active-game/rounds [post]
// @Security ApiKeyAuth
func RecordRound(games ActiveGames) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req models.RecordRoundRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scores are required"})
			return
		}
		game, err := games.RecordRound(c.Request.Context(), userID, req.Scores)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, activeGameResponse(game))
	}
}
