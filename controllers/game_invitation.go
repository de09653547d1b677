package controllers

import (
	"context"
	"net/http"
	"strings"

	"Scorekeep/models"
	"Scorekeep/models/postgres"
	"Scorekeep/services/orchestrator"
	"Scorekeep/utils"

	"github.com/gin-gonic/gin"
)

// GameOrchestrator is the session workflow the HTTP layer drives.
type GameOrchestrator interface {
	SendGameInvitations(ctx context.Context, creatorID uint, req models.CreateInvitationsRequest) (*orchestrator.SendResult, error)
	HandleResponse(ctx context.Context, responderID, invitationID uint, response string) (*orchestrator.ResponseResult, error)
	SessionStatus(ctx context.Context, userID uint, gameID string) (*orchestrator.SessionView, error)
	StartGame(ctx context.Context, creatorID uint, gameID string, rawState []byte) (*postgres.ActiveGame, error)
	CancelSession(ctx context.Context, creatorID uint, gameID string) error
}

type PendingInvitations interface {
	GetPendingInvitationsForUser(ctx context.Context, userID uint) ([]postgres.GameInvitation, error)
}

// @Summary Invites players to a new game session
// @Description Creates the session and one invitation per registered player other than the caller. Team slots default to seat order.
// @Tags invitations
// @Accept json
// @Produce json
// @Param request body models.CreateInvitationsRequest true "Game type and player list"
// @Success 200 {object} object{invitationsSent=integer,gameId=string,state=string}
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Failure 500 {object} object{error=string}
// @Router /api/game-invitations [post]
// @Security ApiKeyAuth
func CreateGameInvitations(o GameOrchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req models.CreateInvitationsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "gameType and players are required"})
			return
		}

		res, err := o.SendGameInvitations(c.Request.Context(), userID, req)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"invitationsSent": res.InvitationsSent,
			"gameId":          res.GameID,
			"state":           res.State,
		})
	}
}

// @Summary Lists the invitations of a session
// @Description Visible to the creator and to invited players
// @Tags invitations
// @Produce json
// @Param gameId path string true "Session id"
// @Success 200 {array} postgres.GameInvitation
// @Failure 404 {object} object{error=string}
// @Router /api/game-invitations/{gameId} [get]
// @Security ApiKeyAuth
func GetSessionInvitations(o GameOrchestrator) gin.HandlerFunc {
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
		c.JSON(http.StatusOK, nonNilInvitations(view.Invitations))
	}
}

// @Summary Accepts or declines an invitation
// @Description HTTP fallback of the respond_to_invitation socket event
// @Tags invitations
// @Accept json
// @Produce json
// @Param invitationId path int true "Invitation id"
// @Param request body models.RespondInvitationRequest true "accepted or declined"
// @Success 200 {object} object{invitation=postgres.GameInvitation,state=string,aggregate=object}
// @Failure 400 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Router /api/game-invitations/{invitationId}/respond [post]
// @Security ApiKeyAuth
func RespondToInvitation(o GameOrchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		invitationID, ok := uintParam(c, "invitationId")
		if !ok {
			return
		}
		var req models.RespondInvitationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "response is required"})
			return
		}

		response := strings.ToLower(strings.TrimSpace(req.Response))
		res, err := o.HandleResponse(c.Request.Context(), userID, invitationID, response)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"invitation": res.Invitation,
			"state":      res.State,
			"aggregate":  res.Aggregate,
		})
	}
}

// @Summary Pending invitations of the caller
// @Description Used after a reconnect and by the polling fallback. Expired rows are included with their expiresAt.
// @Tags invitations
// @Produce json
// @Success 200 {array} postgres.GameInvitation
// @Router /api/my-invitations [get]
// @Security ApiKeyAuth
func GetMyInvitations(invitations PendingInvitations) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		invs, err := invitations.GetPendingInvitationsForUser(c.Request.Context(), userID)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, nonNilInvitations(invs))
	}
}
