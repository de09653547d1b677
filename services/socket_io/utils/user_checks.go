package socketio_utils

import (
	game_constants "Scorekeep/constants/game"
	"Scorekeep/middleware"
	"Scorekeep/models"

	"github.com/pkg/errors"
	"github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

var ErrMissingToken = errors.New("missing authorization token")

// AuthenticateHandshake reads auth.authorization from the handshake and
// returns the user id of its token. Without requireAuth a socket that sends
// no token is let through as anonymous (id 0); a bad token is always refused.
func AuthenticateHandshake(auth interface{}, secret string, requireAuth bool) (uint, error) {
	authData, _ := auth.(map[string]interface{})
	token, _ := authData["authorization"].(string)
	if token == "" {
		if requireAuth {
			return 0, ErrMissingToken
		}
		return 0, nil
	}
	claims, err := middleware.ParseToken(secret, token)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// VerifyUserConnection authenticates a new socket. On failure the client is
// told why and false is returned.
func VerifyUserConnection(client *socket.Socket, secret string, requireAuth bool) (uint, bool) {
	userID, err := AuthenticateHandshake(client.Handshake().Auth, secret, requireAuth)
	if err != nil {
		zap.S().Warnf("[SOCKET-AUTH] refused socket %s: %v", client.Id(), err)
		client.Emit(game_constants.EventError, models.ErrorEvent{
			Error: "Authentication failed. Send 'Bearer <token>' in the 'authorization' field of the handshake auth.",
		})
		return 0, false
	}
	return userID, true
}
