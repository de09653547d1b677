package handlers

import (
	"sync"

	game_constants "Scorekeep/constants/game"
	"Scorekeep/models"
	socketio_types "Scorekeep/services/socket_io/types"

	"go.uber.org/zap"
)

// ConnState is the identity attached to one socket connection. authUserID
// comes from the handshake token and is zero for anonymous dev sockets.
type ConnState struct {
	mutex      sync.Mutex
	authUserID uint
	userID     uint
}

func NewConnState(authUserID uint) *ConnState {
	return &ConnState{authUserID: authUserID}
}

// UserID is the id announced with user_login, zero before that.
func (s *ConnState) UserID() uint {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.userID
}

// HandleUserLogin registers the connection under the announced user id.
func HandleUserLogin(client socketio_types.Conn, state *ConnState, registry *socketio_types.Registry) func(args ...interface{}) {
	return func(args ...interface{}) {
		if len(args) < 1 {
			client.Emit(game_constants.EventError, models.ErrorEvent{Error: "user_login requires a user id"})
			return
		}
		userID, ok := toUint(args[0])
		if !ok || userID == 0 {
			zap.S().Warnf("[LOGIN-ERROR] socket %s sent an invalid user id: %v", client.ID(), args[0])
			client.Emit(game_constants.EventError, models.ErrorEvent{Error: "user_login requires a user id"})
			return
		}

		state.mutex.Lock()
		if state.authUserID != 0 && state.authUserID != userID {
			state.mutex.Unlock()
			zap.S().Warnf("[LOGIN-ERROR] socket %s authenticated as %d announced %d", client.ID(), state.authUserID, userID)
			client.Emit(game_constants.EventError, models.ErrorEvent{Error: "user id does not match the authenticated user"})
			return
		}
		prev := state.userID
		state.userID = userID
		state.mutex.Unlock()

		if prev != 0 && prev != userID {
			registry.Unregister(prev, client)
		}
		if replaced := registry.Register(userID, client); replaced != nil {
			zap.S().Infof("[LOGIN] user %d moved from socket %s to %s", userID, replaced.ID(), client.ID())
		} else {
			zap.S().Infof("[LOGIN] user %d registered on socket %s", userID, client.ID())
		}
	}
}

// HandleDisconnecting drops the registry mapping of this connection.
func HandleDisconnecting(client socketio_types.Conn, state *ConnState, registry *socketio_types.Registry) func(args ...interface{}) {
	return func(args ...interface{}) {
		userID := state.UserID()
		if userID == 0 {
			return
		}
		if registry.Unregister(userID, client) {
			zap.S().Infof("[DISCONNECT] user %d left, %d connected", userID, registry.Count())
		} else {
			zap.S().Debugf("[DISCONNECT] socket %s of user %d was already replaced", client.ID(), userID)
		}
	}
}
