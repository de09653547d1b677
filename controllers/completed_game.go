package controllers

import (
	"context"
	"net/http"
	"strconv"

	"Scorekeep/models/postgres"
	"Scorekeep/utils"

	"github.com/gin-gonic/gin"
)

type CompletedGames interface {
	FinishGame(ctx context.Context, userID uint, gameType string) (*postgres.CompletedGame, error)
	ListCompletedGames(ctx context.Context, userID uint, gameType string, limit int) ([]postgres.CompletedGame, error)
}

// @Summary Completed games of the caller
// @Tags completed-games
// @Produce json
// @Param gameType path string true "chkan, s7ab or jaki"
// @Param limit query int false "At most this many, newest first"
// @Success 200 {array} postgres.CompletedGame
// @Failure 400 {object} object{error=string}
// @Router /api/games/{gameType}/completed-games [get]
// @Security ApiKeyAuth
func ListCompletedGames(games CompletedGames) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		gameType, ok := gameTypeParam(c)
		if !ok {
			return
		}
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
				return
			}
			limit = n
		}
		list, err := games.ListCompletedGames(c.Request.Context(), userID, gameType, limit)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		if list == nil {
			list = []postgres.CompletedGame{}
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary Finishes the active game
// @Description Records the caller's active game of this type as completed and clears the snapshot. Retrying after a failure does not duplicate the record.
// @Tags completed-games
// @Produce json
// @Param gameType path string true "chkan, s7ab or jaki"
// @Success 200 {object} postgres.CompletedGame
// @Failure 404 {object} object{error=string}
// @Failure 500 {object} object{error=string}
// @Router /api/games/{gameType}/completed-games [post]
// @Security ApiKeyAuth
func FinishGame(games CompletedGames) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		gameType, ok := gameTypeParam(c)
		if !ok {
			return
		}
		game, err := games.FinishGame(c.Request.Context(), userID, gameType)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, game)
	}
}
