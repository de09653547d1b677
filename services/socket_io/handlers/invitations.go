package handlers

import (
	"context"
	"strings"
	"time"

	game_constants "Scorekeep/constants/game"
	"Scorekeep/models"
	"Scorekeep/services/orchestrator"
	socketio_types "Scorekeep/services/socket_io/types"
	"Scorekeep/utils/apperr"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type InvitationResponder interface {
	HandleResponse(ctx context.Context, responderID, invitationID uint, response string) (*orchestrator.ResponseResult, error)
}

// HandleRespondToInvitation answers an invitation on behalf of the logged in
// user. The outcome is always reported back with invitation_response_sent.
func HandleRespondToInvitation(client socketio_types.Conn, state *ConnState, responder InvitationResponder,
	timeout time.Duration) func(args ...interface{}) {
	return func(args ...interface{}) {
		reply := func(success bool, message string) {
			client.Emit(game_constants.EventInvitationResponseSent, models.InvitationResponseSentEvent{Success: success, Message: message})
		}

		userID := state.UserID()
		if userID == 0 {
			reply(false, "Send user_login before responding to invitations")
			return
		}
		if len(args) < 1 {
			reply(false, "invitationId and response are required")
			return
		}
		payload, ok := args[0].(map[string]interface{})
		if !ok {
			reply(false, "invitationId and response are required")
			return
		}
		invitationID, ok := toUint(payload["invitationId"])
		response, _ := payload["response"].(string)
		response = strings.ToLower(strings.TrimSpace(response))
		if !ok || invitationID == 0 || response == "" {
			reply(false, "invitationId and response are required")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		result, err := responder.HandleResponse(ctx, userID, invitationID, response)
		switch {
		case err == nil:
		case errors.Is(err, apperr.ErrNotFound):
			zap.S().Infof("[RESPOND-NOTFOUND] user %d, invitation %d: %v", userID, invitationID, err)
			reply(false, "Invitation not found")
			return
		case errors.Is(err, apperr.ErrInvalidState):
			zap.S().Infof("[RESPOND-STATE] user %d, invitation %d: %v", userID, invitationID, err)
			reply(false, "Invitation is no longer pending")
			return
		case errors.Is(err, apperr.ErrValidation):
			reply(false, apperr.PublicMessage(err))
			return
		default:
			zap.S().Errorf("[RESPOND-ERROR] user %d, invitation %d: %v", userID, invitationID, err)
			reply(false, "Failed to record response")
			return
		}

		zap.S().Infof("[RESPOND] user %d %s invitation %d of game %s (state %s)",
			userID, response, invitationID, result.Invitation.GameID, result.State)
		reply(true, "Response recorded")
	}
}
