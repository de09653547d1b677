package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	game_constants "Scorekeep/constants/game"
	"Scorekeep/models"
	"Scorekeep/models/postgres"
	"Scorekeep/services/orchestrator"
	socketio_types "Scorekeep/services/socket_io/types"
	"Scorekeep/utils/apperr"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitted struct {
	event string
	args  []interface{}
}

type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []emitted
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Emit(event string, args ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{event, args})
}

func (f *fakeConn) last(t *testing.T) emitted {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.events)
	return f.events[len(f.events)-1]
}

type fakeResponder struct {
	err   error
	calls []uint
}

func (f *fakeResponder) HandleResponse(ctx context.Context, responderID, invitationID uint, response string) (*orchestrator.ResponseResult, error) {
	f.calls = append(f.calls, invitationID)
	if f.err != nil {
		return nil, f.err
	}
	return &orchestrator.ResponseResult{
		Invitation: &postgres.GameInvitation{ID: invitationID, GameID: "jaki-123", Status: response},
		State:      game_constants.SessionPending,
	}, nil
}

func TestUserLoginRegisters(t *testing.T) {
	registry := socketio_types.NewRegistry()
	conn := &fakeConn{id: "s1"}
	state := NewConnState(0)

	HandleUserLogin(conn, state, registry)(float64(2))

	got, ok := registry.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, "s1", got.ID())
	assert.Equal(t, uint(2), state.UserID())

	HandleDisconnecting(conn, state, registry)()
	_, ok = registry.Lookup(2)
	assert.False(t, ok)
}

func TestUserLoginRejectsOtherIdentity(t *testing.T) {
	registry := socketio_types.NewRegistry()
	conn := &fakeConn{id: "s1"}

	HandleUserLogin(conn, NewConnState(5), registry)("6")

	assert.Equal(t, 0, registry.Count())
	ev := conn.last(t)
	assert.Equal(t, game_constants.EventError, ev.event)
}

func TestUserLoginInvalidID(t *testing.T) {
	registry := socketio_types.NewRegistry()
	conn := &fakeConn{id: "s1"}
	login := HandleUserLogin(conn, NewConnState(0), registry)

	login()
	login("abc")
	login(float64(-1))
	login(1.5)

	assert.Equal(t, 0, registry.Count())
	assert.Len(t, conn.events, 4)
}

func TestReconnectKeepsNewestSocket(t *testing.T) {
	registry := socketio_types.NewRegistry()
	oldConn, newConn := &fakeConn{id: "old"}, &fakeConn{id: "new"}
	oldState, newState := NewConnState(0), NewConnState(0)

	HandleUserLogin(oldConn, oldState, registry)(float64(3))
	HandleUserLogin(newConn, newState, registry)(float64(3))
	HandleDisconnecting(oldConn, oldState, registry)()

	got, ok := registry.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, "new", got.ID())
}

func responseSent(t *testing.T, conn *fakeConn) models.InvitationResponseSentEvent {
	t.Helper()
	ev := conn.last(t)
	require.Equal(t, game_constants.EventInvitationResponseSent, ev.event)
	require.Len(t, ev.args, 1)
	return ev.args[0].(models.InvitationResponseSentEvent)
}

func TestRespondToInvitation(t *testing.T) {
	registry := socketio_types.NewRegistry()
	conn := &fakeConn{id: "s1"}
	state := NewConnState(0)
	responder := &fakeResponder{}
	respond := HandleRespondToInvitation(conn, state, responder, time.Second)

	respond(map[string]interface{}{"invitationId": float64(9), "response": "accepted"})
	assert.False(t, responseSent(t, conn).Success, "must log in first")
	assert.Empty(t, responder.calls)

	HandleUserLogin(conn, state, registry)(float64(2))

	respond(map[string]interface{}{"response": "accepted"})
	assert.False(t, responseSent(t, conn).Success)

	respond(map[string]interface{}{"invitationId": json.Number("9"), "response": " Accepted "})
	sent := responseSent(t, conn)
	assert.True(t, sent.Success)
	assert.Equal(t, []uint{9}, responder.calls)
}

func TestRespondToInvitationFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"unknown invitation", apperr.NotFound("invitation 9 not found"), "Invitation not found"},
		{"already answered", apperr.InvalidState("invitation 9 is already accepted"), "Invitation is no longer pending"},
		{"bad response", apperr.Validation("response must be accepted or declined"), "response must be accepted or declined"},
		{"database down", errors.New("connection refused"), "Failed to record response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{id: "s1"}
			state := NewConnState(0)
			HandleUserLogin(conn, state, socketio_types.NewRegistry())(float64(2))

			HandleRespondToInvitation(conn, state, &fakeResponder{err: tt.err}, time.Second)(
				map[string]interface{}{"invitationId": "9", "response": "accepted"})

			sent := responseSent(t, conn)
			assert.False(t, sent.Success)
			assert.Equal(t, tt.message, sent.Message)
		})
	}
}

func TestToUint(t *testing.T) {
	for _, v := range []interface{}{float64(7), 7, int64(7), uint(7), "7", json.Number("7")} {
		id, ok := toUint(v)
		assert.True(t, ok, "%T", v)
		assert.Equal(t, uint(7), id)
	}
	for _, v := range []interface{}{nil, "x", -3, float64(2.5), true} {
		_, ok := toUint(v)
		assert.False(t, ok, "%v", v)
	}
}
