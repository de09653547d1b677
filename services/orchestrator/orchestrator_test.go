package orchestrator

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	game_constants "Scorekeep/constants/game"
	"Scorekeep/models"
	"Scorekeep/models/postgres"
	"Scorekeep/services/gamestate"
	"Scorekeep/services/ledger"
	"Scorekeep/utils/apperr"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invitationRows struct {
	mu         sync.Mutex
	nextID     uint
	rows       map[uint]*postgres.GameInvitation
	failCancel int
}

func (m *invitationRows) CreateInvitations(ctx context.Context, rows []*postgres.GameInvitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.nextID++
		r.ID = m.nextID
		row := *r
		m.rows[r.ID] = &row
	}
	return nil
}

func (m *invitationRows) GetInvitation(ctx context.Context, id uint) (*postgres.GameInvitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, apperr.NotFound("invitation %d not found", id)
	}
	row := *r
	return &row, nil
}

func (m *invitationRows) filter(match func(*postgres.GameInvitation) bool) []postgres.GameInvitation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []postgres.GameInvitation
	for _, r := range m.rows {
		if match(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *invitationRows) ListBySession(ctx context.Context, gameID string) ([]postgres.GameInvitation, error) {
	return m.filter(func(r *postgres.GameInvitation) bool { return r.GameID == gameID }), nil
}

func (m *invitationRows) ListPendingForUser(ctx context.Context, userID uint) ([]postgres.GameInvitation, error) {
	return m.filter(func(r *postgres.GameInvitation) bool { return r.InvitedUser == userID && r.IsPending() }), nil
}

func (m *invitationRows) ResolvePending(ctx context.Context, id uint, status string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || !r.IsPending() {
		return false, nil
	}
	r.Status = status
	return true, nil
}

func (m *invitationRows) CancelPending(ctx context.Context, gameID string, at time.Time) ([]postgres.GameInvitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCancel > 0 {
		m.failCancel--
		return nil, errors.New("connection reset")
	}
	var out []postgres.GameInvitation
	for _, r := range m.rows {
		if r.GameID == gameID && r.IsPending() {
			r.Status = game_constants.InvitationCancelled
			out = append(out, *r)
		}
	}
	return out, nil
}

type userTable map[string]postgres.User

func (u userTable) FindByID(ctx context.Context, id uint) (*postgres.User, error) {
	for _, user := range u {
		if user.ID == id {
			found := user
			return &found, nil
		}
	}
	return nil, apperr.NotFound("user %d not found", id)
}

func (u userTable) FindByUsernames(ctx context.Context, usernames []string) (map[string]postgres.User, error) {
	out := make(map[string]postgres.User)
	for _, name := range usernames {
		if user, ok := u[name]; ok {
			out[name] = user
		}
	}
	return out, nil
}

const (
	carol uint = 1
	alice uint = 2
	bob   uint = 3
	dave  uint = 4
)

var users = userTable{
	"carol": {ID: carol, Username: "carol"},
	"alice": {ID: alice, Username: "alice"},
	"bob":   {ID: bob, Username: "bob"},
	"dave":  {ID: dave, Username: "dave"},
}

type memorySessions struct {
	mu   sync.Mutex
	rows map[string]postgres.GameSession
}

func (m *memorySessions) Create(ctx context.Context, session *postgres.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[session.ID]; ok {
		return apperr.Validation("game %s already exists", session.ID)
	}
	m.rows[session.ID] = *session
	return nil
}

func (m *memorySessions) Get(ctx context.Context, id string) (*postgres.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, apperr.NotFound("game %s not found", id)
	}
	return &s, nil
}

func (m *memorySessions) UpdateState(ctx context.Context, id, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok || s.State != from {
		return false, nil
	}
	s.State = to
	m.rows[id] = s
	return true, nil
}

func (m *memorySessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memorySessions) ListStale(ctx context.Context, states []string, before time.Time) ([]postgres.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []postgres.GameSession
	for _, s := range m.rows {
		for _, st := range states {
			if s.State == st && s.CreatedAt.Before(before) {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (m *memorySessions) state(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].State
}

type memorySnapshots struct {
	mu         sync.Mutex
	games      map[uint]postgres.ActiveGame
	failDelete int
}

func (m *memorySnapshots) GetActiveGame(ctx context.Context, userID uint) (*postgres.ActiveGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[userID]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (m *memorySnapshots) SaveActiveGame(ctx context.Context, userID uint, gameType string, rawState []byte) (*postgres.ActiveGame, error) {
	canonical, _, err := gamestate.Canonicalize(gameType, rawState)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g := postgres.ActiveGame{UserID: userID, GameType: gameType, GameState: canonical, Version: m.games[userID].Version + 1}
	m.games[userID] = g
	return &g, nil
}

func (m *memorySnapshots) DeleteActiveGame(ctx context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete > 0 {
		m.failDelete--
		return errors.New("connection reset")
	}
	delete(m.games, userID)
	return nil
}

type sentEvent struct {
	userID  uint
	event   string
	payload interface{}
}

type recordingNotifier struct {
	mu      sync.Mutex
	offline map[uint]bool
	sent    []sentEvent
}

func (n *recordingNotifier) Notify(userID uint, event string, payload interface{}) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.offline[userID] {
		return false
	}
	n.sent = append(n.sent, sentEvent{userID, event, payload})
	return true
}

func (n *recordingNotifier) events(userID uint, event string) []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentEvent
	for _, e := range n.sent {
		if e.userID == userID && e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	orch      *Orchestrator
	sessions  *memorySessions
	snapshots *memorySnapshots
	notifier  *recordingNotifier
	ledger    *ledger.Ledger
	rows      *invitationRows
}

func newFixture() *fixture {
	rows := &invitationRows{rows: make(map[uint]*postgres.GameInvitation)}
	l := ledger.NewLedger(rows, users, ledger.Options{})
	f := &fixture{
		rows:      rows,
		sessions:  &memorySessions{rows: make(map[string]postgres.GameSession)},
		snapshots: &memorySnapshots{games: make(map[uint]postgres.ActiveGame)},
		notifier:  &recordingNotifier{offline: make(map[uint]bool)},
		ledger:    l,
	}
	f.orch = New(l, f.sessions, f.snapshots, f.notifier)
	return f
}

func invitationFor(t *testing.T, res *SendResult, userID uint) uint {
	t.Helper()
	for _, inv := range res.Invitations {
		if inv.InvitedUser == userID {
			return inv.ID
		}
	}
	t.Fatalf("no invitation for user %d", userID)
	return 0
}

func TestTwoRegisteredPlayersBothAccept(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	res, err := f.orch.SendGameInvitations(ctx, carol, models.CreateInvitationsRequest{
		GameType: game_constants.GameTypeJaki,
		GameID:   "jaki-123",
		Players: []models.PlayerEntry{
			{Username: "alice", IsRegistered: true},
			{Username: "bob", IsRegistered: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "jaki-123", res.GameID)
	assert.Equal(t, 2, res.InvitationsSent)
	assert.Equal(t, game_constants.SessionPending, res.State)
	assert.Equal(t, Aggregate{"player1": false, "player2": false}, res.Aggregate)

	pushed := f.notifier.events(alice, game_constants.EventGameInvitation)
	require.Len(t, pushed, 1)
	ev := pushed[0].payload.(models.GameInvitationEvent)
	assert.Equal(t, "carol", ev.InvitedBy)
	assert.Equal(t, "player1", ev.TeamSlot)

	first, err := f.orch.HandleResponse(ctx, alice, invitationFor(t, res, alice), game_constants.InvitationAccepted)
	require.NoError(t, err)
	assert.True(t, first.Delivered)
	assert.Equal(t, game_constants.SessionPending, first.State)

	second, err := f.orch.HandleResponse(ctx, bob, invitationFor(t, res, bob), game_constants.InvitationAccepted)
	require.NoError(t, err)
	assert.Equal(t, Aggregate{"player1": true, "player2": true}, second.Aggregate)
	assert.Equal(t, game_constants.SessionReady, second.State)
	assert.Equal(t, game_constants.SessionReady, f.sessions.state("jaki-123"))

	assert.Len(t, f.notifier.events(carol, game_constants.EventInvitationResponse), 2)
	assert.Len(t, f.notifier.events(carol, game_constants.EventSessionReady), 1)
}

func TestGuestAndDeclineStaysPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	res, err := f.orch.SendGameInvitations(ctx, carol, models.CreateInvitationsRequest{
		GameType: game_constants.GameTypeJaki,
		Players: []models.PlayerEntry{
			{Username: "Guest", IsRegistered: false},
			{Username: "bob", IsRegistered: true},
		},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^jaki-\d+-.+$`, res.GameID)
	assert.Equal(t, 1, res.InvitationsSent)
	assert.Equal(t, Aggregate{"player1": true, "player2": false}, res.Aggregate)

	out, err := f.orch.HandleResponse(ctx, bob, invitationFor(t, res, bob), game_constants.InvitationDeclined)
	require.NoError(t, err)
	assert.Equal(t, game_constants.SessionPending, out.State)
	assert.Equal(t, []string{"player2"}, out.Aggregate.Waiting())

	require.NoError(t, f.orch.CancelSession(ctx, carol, res.GameID))
	assert.Equal(t, game_constants.SessionCancelled, f.sessions.state(res.GameID))
}

func TestAggregateIgnoresResponseOrder(t *testing.T) {
	ctx := context.Background()
	players := []models.PlayerEntry{
		{Username: "alice", IsRegistered: true},
		{Username: "bob", IsRegistered: true},
		{Username: "dave", IsRegistered: true},
	}
	answers := map[uint]string{
		alice: game_constants.InvitationAccepted,
		bob:   game_constants.InvitationDeclined,
		dave:  game_constants.InvitationAccepted,
	}

	var results []Aggregate
	for _, order := range [][]uint{{alice, bob, dave}, {dave, bob, alice}, {bob, alice, dave}} {
		f := newFixture()
		res, err := f.orch.SendGameInvitations(ctx, carol, models.CreateInvitationsRequest{
			GameType: game_constants.GameTypeChkan,
			GameID:   "chkan-1",
			Players:  players,
		})
		require.NoError(t, err)

		var last *ResponseResult
		for _, user := range order {
			last, err = f.orch.HandleResponse(ctx, user, invitationFor(t, res, user), answers[user])
			require.NoError(t, err)
		}
		results = append(results, last.Aggregate)
	}
	for _, agg := range results[1:] {
		assert.Equal(t, results[0], agg)
	}
	assert.Equal(t, Aggregate{"player1": true, "player2": false, "player3": true}, results[0])
}

func TestNoInvitationsMeansReady(t *testing.T) {
	f := newFixture()
	res, err := f.orch.SendGameInvitations(context.Background(), carol, models.CreateInvitationsRequest{
		GameType: game_constants.GameTypeJaki,
		Players: []models.PlayerEntry{
			{Username: "carol", IsRegistered: true},
			{Username: "Guest"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.InvitationsSent)
	assert.Equal(t, game_constants.SessionReady, res.State)
	assert.True(t, res.Aggregate.AllAccepted())
}

func TestSendRollsBackOnLedgerFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.orch.SendGameInvitations(ctx, carol, models.CreateInvitationsRequest{
		GameType: game_constants.GameTypeJaki,
		GameID:   "jaki-9",
		Players: []models.PlayerEntry{
			{Username: "alice", IsRegistered: true},
			{Username: "mallory", IsRegistered: true},
		},
	})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.sessions.Get(ctx, "jaki-9")
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "session row must be removed")
}

func TestSendValidation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		req  models.CreateInvitationsRequest
	}{
		{"unknown game type", models.CreateInvitationsRequest{GameType: "poker", Players: []models.PlayerEntry{{Username: "a"}, {Username: "b"}}}},
		{"too few players", models.CreateInvitationsRequest{GameType: game_constants.GameTypeJaki, Players: []models.PlayerEntry{{Username: "a"}}}},
		{"s7ab needs four", models.CreateInvitationsRequest{GameType: game_constants.GameTypeS7ab, Players: []models.PlayerEntry{{Username: "a"}, {Username: "b"}}}},
		{"blank name", models.CreateInvitationsRequest{GameType: game_constants.GameTypeJaki, Players: []models.PlayerEntry{{Username: "a"}, {Username: "  "}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newFixture().orch.SendGameInvitations(ctx, carol, tt.req)
			assert.True(t, errors.Is(err, apperr.ErrValidation), "got %v", err)
		})
	}

	f := newFixture()
	req := models.CreateInvitationsRequest{GameType: game_constants.GameTypeJaki, GameID: "jaki-1", Players: []models.PlayerEntry{{Username: "a"}, {Username: "b"}}}
	_, err := f.orch.SendGameInvitations(ctx, carol, req)
	require.NoError(t, err)
	_, err = f.orch.SendGameInvitations(ctx, carol, req)
	assert.True(t, errors.Is(err, apperr.ErrValidation), "duplicate game id")
}

func TestS7abSlots(t *testing.T) {
	f := newFixture()
	res, err := f.orch.SendGameInvitations(context.Background(), carol, models.CreateInvitationsRequest{
		GameType: game_constants.GameTypeS7ab,
		Players: []models.PlayerEntry{
			{Username: "carol", IsRegistered: true},
			{Username: "alice", IsRegistered: true},
			{Username: "bob", IsRegistered: true},
			{Username: "Guest"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Aggregate{
		"team1-player1": true,
		"team1-player2": false,
		"team2-player1": false,
		"team2-player2": true,
	}, res.Aggregate)
}

func readySession(t *testing.T, f *fixture) string {
	t.Helper()
	ctx := context.Background()
	res, err := f.orch.SendGameInvitations(ctx, carol, models.CreateInvitationsRequest{
		GameType: game_constants.GameTypeJaki,
		GameID:   "jaki-77",
		Players: []models.PlayerEntry{
			{Username: "carol", IsRegistered: true},
			{Username: "alice", IsRegistered: true},
		},
	})
	require.NoError(t, err)
	_, err = f.orch.HandleResponse(ctx, alice, invitationFor(t, res, alice), game_constants.InvitationAccepted)
	require.NoError(t, err)
	require.Equal(t, game_constants.SessionReady, f.sessions.state(res.GameID))
	return res.GameID
}

func TestStartGame(t *testing.T) {
	ctx := context.Background()

	t.Run("builds round zero state", func(t *testing.T) {
		f := newFixture()
		gameID := readySession(t, f)

		_, err := f.orch.StartGame(ctx, alice, gameID, nil)
		assert.True(t, errors.Is(err, apperr.ErrNotFound), "only the creator starts")

		game, err := f.orch.StartGame(ctx, carol, gameID, nil)
		require.NoError(t, err)
		assert.Equal(t, game_constants.SessionStarted, f.sessions.state(gameID))

		state, err := gamestate.Decode(game_constants.GameTypeJaki, game.GameState)
		require.NoError(t, err)
		assert.Equal(t, gameID, gamestate.GameID(state))
		players := gamestate.Players(state)
		require.Len(t, players, 2)
		assert.Equal(t, alice, players[1].UserID)

		_, err = f.orch.StartGame(ctx, carol, gameID, nil)
		assert.True(t, errors.Is(err, apperr.ErrInvalidState))
	})

	t.Run("rejects a state for other seats", func(t *testing.T) {
		f := newFixture()
		gameID := readySession(t, f)
		s, err := gamestate.New(game_constants.GameTypeJaki, gameID, []gamestate.Player{
			{Name: "x", TeamSlot: "player1"},
			{Name: "y", TeamSlot: "player9"},
		}, nil)
		require.NoError(t, err)
		raw, err := gamestate.Encode(s)
		require.NoError(t, err)

		_, err = f.orch.StartGame(ctx, carol, gameID, raw)
		assert.True(t, errors.Is(err, apperr.ErrValidation))
		assert.Equal(t, game_constants.SessionReady, f.sessions.state(gameID))
	})

	t.Run("not before ready", func(t *testing.T) {
		f := newFixture()
		_, err := f.orch.SendGameInvitations(ctx, carol, models.CreateInvitationsRequest{
			GameType: game_constants.GameTypeJaki,
			GameID:   "jaki-5",
			Players:  []models.PlayerEntry{{Username: "alice", IsRegistered: true}, {Username: "bob", IsRegistered: true}},
		})
		require.NoError(t, err)
		_, err = f.orch.StartGame(ctx, carol, "jaki-5", nil)
		assert.True(t, errors.Is(err, apperr.ErrInvalidState))
	})
}

func TestCancelSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	res, err := f.orch.SendGameInvitations(ctx, carol, models.CreateInvitationsRequest{
		GameType: game_constants.GameTypeJaki,
		GameID:   "jaki-8",
		Players:  []models.PlayerEntry{{Username: "alice", IsRegistered: true}, {Username: "bob", IsRegistered: true}},
	})
	require.NoError(t, err)
	_, err = f.orch.HandleResponse(ctx, alice, invitationFor(t, res, alice), game_constants.InvitationAccepted)
	require.NoError(t, err)

	assert.True(t, errors.Is(f.orch.CancelSession(ctx, alice, "jaki-8"), apperr.ErrNotFound))
	require.NoError(t, f.orch.CancelSession(ctx, carol, "jaki-8"))

	invs, err := f.ledger.GetInvitationsForSession(ctx, "jaki-8")
	require.NoError(t, err)
	statuses := map[uint]string{}
	for _, inv := range invs {
		statuses[inv.InvitedUser] = inv.Status
	}
	assert.Equal(t, game_constants.InvitationAccepted, statuses[alice])
	assert.Equal(t, game_constants.InvitationCancelled, statuses[bob])
	assert.Len(t, f.notifier.events(bob, game_constants.EventSessionCancelled), 1)
	assert.Empty(t, f.notifier.events(alice, game_constants.EventSessionCancelled))

	require.NoError(t, f.orch.CancelSession(ctx, carol, "jaki-8"))
	assert.Len(t, f.notifier.events(bob, game_constants.EventSessionCancelled), 1)

	_, err = f.orch.HandleResponse(ctx, bob, invitationFor(t, res, bob), game_constants.InvitationAccepted)
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
}

func TestCancelAfterStoreFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("invitations not withdrawn", func(t *testing.T) {
		f := newFixture()
		res, err := f.orch.SendGameInvitations(ctx, carol, models.CreateInvitationsRequest{
			GameType: game_constants.GameTypeJaki,
			GameID:   "jaki-p",
			Players:  []models.PlayerEntry{{Username: "alice", IsRegistered: true}, {Username: "bob", IsRegistered: true}},
		})
		require.NoError(t, err)

		f.rows.failCancel = 1
		require.Error(t, f.orch.CancelSession(ctx, carol, "jaki-p"))
		assert.Equal(t, game_constants.SessionPending, f.sessions.state("jaki-p"))

		require.NoError(t, f.orch.CancelSession(ctx, carol, "jaki-p"))
		assert.Equal(t, game_constants.SessionCancelled, f.sessions.state("jaki-p"))

		_, err = f.orch.HandleResponse(ctx, alice, invitationFor(t, res, alice), game_constants.InvitationAccepted)
		assert.True(t, errors.Is(err, apperr.ErrInvalidState))
	})

	t.Run("snapshot not removed", func(t *testing.T) {
		f := newFixture()
		gameID := readySession(t, f)
		state, err := gamestate.New(game_constants.GameTypeJaki, gameID, []gamestate.Player{
			{Name: "carol", TeamSlot: "player1"},
			{Name: "alice", TeamSlot: "player2"},
		}, nil)
		require.NoError(t, err)
		raw, err := gamestate.Encode(state)
		require.NoError(t, err)
		_, err = f.snapshots.SaveActiveGame(ctx, carol, game_constants.GameTypeJaki, raw)
		require.NoError(t, err)

		f.snapshots.failDelete = 1
		require.Error(t, f.orch.CancelSession(ctx, carol, gameID))
		require.NoError(t, f.orch.CancelSession(ctx, carol, gameID))

		left, err := f.snapshots.GetActiveGame(ctx, carol)
		require.NoError(t, err)
		assert.Nil(t, left)
		assert.Equal(t, game_constants.SessionCancelled, f.sessions.state(gameID))
	})

	t.Run("started game stays started", func(t *testing.T) {
		f := newFixture()
		gameID := readySession(t, f)
		_, err := f.orch.StartGame(ctx, carol, gameID, nil)
		require.NoError(t, err)
		assert.True(t, errors.Is(f.orch.CancelSession(ctx, carol, gameID), apperr.ErrInvalidState))
	})
}

func TestCancelKeepsUnrelatedSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	other, err := gamestate.New(game_constants.GameTypeJaki, "jaki-other", []gamestate.Player{
		{Name: "x", TeamSlot: "player1"},
		{Name: "y", TeamSlot: "player2"},
	}, nil)
	require.NoError(t, err)
	raw, err := gamestate.Encode(other)
	require.NoError(t, err)
	_, err = f.snapshots.SaveActiveGame(ctx, carol, game_constants.GameTypeJaki, raw)
	require.NoError(t, err)

	gameID := readySession(t, f)
	require.NoError(t, f.orch.CancelSession(ctx, carol, gameID))

	kept, err := f.snapshots.GetActiveGame(ctx, carol)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestSessionStatusVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	gameID := readySession(t, f)

	view, err := f.orch.SessionStatus(ctx, alice, gameID)
	require.NoError(t, err)
	assert.Equal(t, game_constants.SessionReady, view.Session.State)
	assert.True(t, view.Aggregate.AllAccepted())

	_, err = f.orch.SessionStatus(ctx, dave, gameID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestResponseToOfflineInviter(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.notifier.offline[carol] = true

	res, err := f.orch.SendGameInvitations(ctx, carol, models.CreateInvitationsRequest{
		GameType: game_constants.GameTypeJaki,
		Players:  []models.PlayerEntry{{Username: "carol", IsRegistered: true}, {Username: "alice", IsRegistered: true}},
	})
	require.NoError(t, err)

	out, err := f.orch.HandleResponse(ctx, alice, invitationFor(t, res, alice), game_constants.InvitationAccepted)
	require.NoError(t, err)
	assert.False(t, out.Delivered)
	assert.Equal(t, game_constants.SessionReady, out.State)
}

func TestCancelStaleSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	start := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	f.orch.now = func() time.Time { return start }

	for _, id := range []string{"jaki-a", "jaki-b"} {
		_, err := f.orch.SendGameInvitations(ctx, carol, models.CreateInvitationsRequest{
			GameType: game_constants.GameTypeJaki,
			GameID:   id,
			Players:  []models.PlayerEntry{{Username: "alice", IsRegistered: true}, {Username: "bob", IsRegistered: true}},
		})
		require.NoError(t, err)
	}
	f.orch.now = func() time.Time { return start.Add(48 * time.Hour) }
	_, err := f.orch.SendGameInvitations(ctx, carol, models.CreateInvitationsRequest{
		GameType: game_constants.GameTypeJaki,
		GameID:   "jaki-fresh",
		Players:  []models.PlayerEntry{{Username: "alice", IsRegistered: true}, {Username: "bob", IsRegistered: true}},
	})
	require.NoError(t, err)

	n, err := f.orch.CancelStaleSessions(ctx, start.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, game_constants.SessionCancelled, f.sessions.state("jaki-a"))
	assert.Equal(t, game_constants.SessionCancelled, f.sessions.state("jaki-b"))
	assert.Equal(t, game_constants.SessionPending, f.sessions.state("jaki-fresh"))
}

func TestSessionTable(t *testing.T) {
	assert.True(t, sessionStates.CanTransition(game_constants.SessionIdle, game_constants.SessionReady))
	assert.False(t, sessionStates.CanTransition(game_constants.SessionPending, game_constants.SessionStarted))
	assert.False(t, sessionStates.CanTransition(game_constants.SessionCancelled, game_constants.SessionPending))
	assert.True(t, sessionStates.IsTerminal(game_constants.SessionStarted))
}

func TestSlotFor(t *testing.T) {
	assert.Equal(t, "player3", SlotFor(game_constants.GameTypeChkan, 2))
	assert.Equal(t, "team2-player1", SlotFor(game_constants.GameTypeS7ab, 2))
}

func TestAggregateApply(t *testing.T) {
	agg := SeedAggregate([]models.PlayerEntry{
		{Username: "carol", TeamSlot: "player1"},
		{Username: "alice", TeamSlot: "player2"},
		{Username: "bob", TeamSlot: "player3"},
	}, []postgres.GameInvitation{
		{TeamSlot: "player2", Status: game_constants.InvitationPending},
		{TeamSlot: "player3", Status: game_constants.InvitationPending},
	})
	assert.Equal(t, []string{"player2", "player3"}, agg.Waiting())

	agg.Apply("player2", game_constants.InvitationAccepted)
	agg.Apply("player9", game_constants.InvitationAccepted)
	assert.Equal(t, []string{"player3"}, agg.Waiting())
	assert.Len(t, agg, 3)

	agg.Apply("player3", game_constants.InvitationDeclined)
	assert.False(t, agg.AllAccepted())
	agg.Apply("player3", game_constants.InvitationAccepted)
	assert.True(t, agg.AllAccepted())
}
