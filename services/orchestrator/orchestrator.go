package orchestrator

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	game_constants "Scorekeep/constants/game"
	"Scorekeep/models"
	"Scorekeep/models/postgres"
	"Scorekeep/services/gamestate"
	"Scorekeep/services/metrics"
	"Scorekeep/utils/apperr"
	"Scorekeep/utils/statemachine"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Ledger interface {
	CreateInvitations(ctx context.Context, creatorID uint, sessionID, gameType string, players []models.PlayerEntry) ([]postgres.GameInvitation, error)
	RespondToInvitation(ctx context.Context, invitationID, responderID uint, response string) (*postgres.GameInvitation, error)
	GetInvitationsForSession(ctx context.Context, sessionID string) ([]postgres.GameInvitation, error)
	CancelSession(ctx context.Context, sessionID string) ([]postgres.GameInvitation, error)
}

type SessionStore interface {
	Create(ctx context.Context, session *postgres.GameSession) error
	Get(ctx context.Context, id string) (*postgres.GameSession, error)
	UpdateState(ctx context.Context, id, from, to string) (bool, error)
	Delete(ctx context.Context, id string) error
	ListStale(ctx context.Context, states []string, before time.Time) ([]postgres.GameSession, error)
}

type Snapshots interface {
	GetActiveGame(ctx context.Context, userID uint) (*postgres.ActiveGame, error)
	SaveActiveGame(ctx context.Context, userID uint, gameType string, rawState []byte) (*postgres.ActiveGame, error)
	DeleteActiveGame(ctx context.Context, userID uint) error
}

// Notifier pushes an event to a user if they are connected. It reports
// whether a connection was found.
type Notifier interface {
	Notify(userID uint, event string, payload interface{}) bool
}

var sessionStates = statemachine.New[string]().
	Allow(game_constants.SessionIdle, game_constants.SessionPending, game_constants.SessionReady).
	Allow(game_constants.SessionPending, game_constants.SessionReady, game_constants.SessionCancelled).
	Allow(game_constants.SessionReady, game_constants.SessionStarted, game_constants.SessionCancelled).
	Terminal(game_constants.SessionStarted, game_constants.SessionCancelled)

const fanOutLimit = 8

// Orchestrator drives a game session from the submitted player list to a
// started game.
type Orchestrator struct {
	ledger    Ledger
	sessions  SessionStore
	snapshots Snapshots
	notifier  Notifier
	now       func() time.Time
}

func New(ledger Ledger, sessions SessionStore, snapshots Snapshots, notifier Notifier) *Orchestrator {
	return &Orchestrator{
		ledger:    ledger,
		sessions:  sessions,
		snapshots: snapshots,
		notifier:  notifier,
		now:       time.Now,
	}
}

type SendResult struct {
	GameID          string
	InvitationsSent int
	State           string
	Aggregate       Aggregate
	Invitations     []postgres.GameInvitation
}

type ResponseResult struct {
	Invitation *postgres.GameInvitation
	// Delivered is false when the inviter had no live connection.
	Delivered bool
	State     string
	Aggregate Aggregate
}

type SessionView struct {
	Session     *postgres.GameSession
	Players     []models.PlayerEntry
	Invitations []postgres.GameInvitation
	Aggregate   Aggregate
}

// SendGameInvitations creates the session and its invitations and pushes a
// game_invitation to every invitee. When nobody needed inviting the session
// is ready at once. On error nothing is left behind.
func (o *Orchestrator) SendGameInvitations(ctx context.Context, creatorID uint, req models.CreateInvitationsRequest) (*SendResult, error) {
	rules, ok := game_constants.RulesFor(req.GameType)
	if !ok {
		return nil, apperr.Validation("unknown game type %q", req.GameType)
	}
	if n := len(req.Players); n < rules.MinPlayers || n > rules.MaxPlayers {
		return nil, apperr.Validation("%s needs between %d and %d players, got %d", req.GameType, rules.MinPlayers, rules.MaxPlayers, n)
	}
	players, err := AssignSlots(req.GameType, req.Players)
	if err != nil {
		return nil, err
	}

	now := o.now()
	gameID := strings.TrimSpace(req.GameID)
	if gameID == "" {
		if gameID, err = NewSessionID(req.GameType, now); err != nil {
			return nil, errors.Wrap(err, "generating game id")
		}
	}
	if _, err := o.sessions.Get(ctx, gameID); err == nil {
		return nil, apperr.Validation("game %s already exists", gameID)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	session := &postgres.GameSession{
		ID:        gameID,
		GameType:  req.GameType,
		CreatorID: creatorID,
		State:     game_constants.SessionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := session.SetPlayerList(players); err != nil {
		return nil, errors.Wrap(err, "encoding player list")
	}
	if err := o.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	invs, err := o.ledger.CreateInvitations(ctx, creatorID, gameID, req.GameType, players)
	if err != nil {
		if delErr := o.sessions.Delete(ctx, gameID); delErr != nil {
			zap.S().Errorf("[INVITE-ERROR] rolling back game %s: %v", gameID, delErr)
		}
		return nil, err
	}
	metrics.SessionTransitions.WithLabelValues(game_constants.SessionPending).Inc()
	metrics.InvitationsCreated.WithLabelValues(req.GameType).Add(float64(len(invs)))

	if len(invs) == 0 {
		if err := o.transition(ctx, session, game_constants.SessionReady); err != nil {
			return nil, err
		}
	}

	delivered := o.pushInvitations(ctx, invs)
	zap.S().Infof("[INVITE] game %s created by user %d: %d sent, %d delivered live, state %s",
		gameID, creatorID, len(invs), delivered, session.State)

	return &SendResult{
		GameID:          gameID,
		InvitationsSent: len(invs),
		State:           session.State,
		Aggregate:       SeedAggregate(players, invs),
		Invitations:     invs,
	}, nil
}

func (o *Orchestrator) pushInvitations(ctx context.Context, invs []postgres.GameInvitation) int {
	var delivered atomic.Int32
	var g errgroup.Group
	g.SetLimit(fanOutLimit)
	for _, inv := range invs {
		inv := inv
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if o.notify(inv.InvitedUser, game_constants.EventGameInvitation, models.GameInvitationEvent{
				InvitationID: inv.ID,
				GameID:       inv.GameID,
				GameType:     inv.GameType,
				InvitedBy:    inv.InvitedByUsername,
				TeamSlot:     inv.TeamSlot,
				ExpiresAt:    inv.ExpiresAt,
			}) {
				delivered.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(delivered.Load())
}

// HandleResponse records an invitee's answer, relays it to the inviter and
// moves the session to ready once every seat is confirmed. Failures after
// the answer is stored are logged, not returned: the answer stands.
func (o *Orchestrator) HandleResponse(ctx context.Context, responderID, invitationID uint, response string) (*ResponseResult, error) {
	inv, err := o.ledger.RespondToInvitation(ctx, invitationID, responderID, response)
	if err != nil {
		metrics.InvitationResponses.WithLabelValues(response, outcome(err)).Inc()
		return nil, err
	}
	metrics.InvitationResponses.WithLabelValues(response, "ok").Inc()

	result := &ResponseResult{Invitation: inv}
	result.Delivered = o.notify(inv.InvitedBy, game_constants.EventInvitationResponse, models.InvitationResponseEvent{
		InvitationID: inv.ID,
		Response:     inv.Status,
		GameID:       inv.GameID,
		PlayerName:   inv.InvitedUsername,
		TeamSlot:     inv.TeamSlot,
	})

	session, err := o.sessions.Get(ctx, inv.GameID)
	if err != nil {
		zap.S().Warnf("[INVITE-RESPOND] game %s of invitation %d: %v", inv.GameID, inv.ID, err)
		return result, nil
	}
	view, err := o.view(ctx, session)
	if err != nil {
		zap.S().Errorf("[INVITE-RESPOND-ERROR] rebuilding aggregate of game %s: %v", session.ID, err)
		result.State = session.State
		return result, nil
	}
	// The listing may predate the answer just stored.
	view.Aggregate.Apply(inv.TeamSlot, inv.Status)
	result.Aggregate = view.Aggregate

	if session.State == game_constants.SessionPending && view.Aggregate.AllAccepted() {
		if err := o.transition(ctx, session, game_constants.SessionReady); err != nil {
			zap.S().Warnf("[INVITE-RESPOND] game %s not moved to ready: %v", session.ID, err)
		} else {
			o.notify(session.CreatorID, game_constants.EventSessionReady, models.SessionEvent{GameID: session.ID})
		}
	} else if waiting := view.Aggregate.Waiting(); len(waiting) > 0 {
		zap.S().Debugf("[INVITE-RESPOND] game %s still waiting on %s", session.ID, strings.Join(waiting, ", "))
	}
	result.State = session.State
	return result, nil
}

// SessionStatus is visible to the creator and to every invitee.
func (o *Orchestrator) SessionStatus(ctx context.Context, userID uint, gameID string) (*SessionView, error) {
	session, err := o.sessions.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	view, err := o.view(ctx, session)
	if err != nil {
		return nil, err
	}
	if session.CreatorID == userID {
		return view, nil
	}
	for _, inv := range view.Invitations {
		if inv.InvitedUser == userID {
			return view, nil
		}
	}
	return nil, apperr.NotFound("game %s not found", gameID)
}

// StartGame stores the creator's initial snapshot and marks the session
// started. rawState may be empty, in which case a round zero state is built
// from the seated players.
func (o *Orchestrator) StartGame(ctx context.Context, creatorID uint, gameID string, rawState []byte) (*postgres.ActiveGame, error) {
	session, err := o.ownedSession(ctx, creatorID, gameID)
	if err != nil {
		return nil, err
	}
	if !sessionStates.CanTransition(session.State, game_constants.SessionStarted) {
		return nil, apperr.InvalidState("game %s is %s and cannot be started", gameID, session.State)
	}
	view, err := o.view(ctx, session)
	if err != nil {
		return nil, err
	}

	raw, err := initialState(session, view, rawState)
	if err != nil {
		return nil, err
	}
	game, err := o.snapshots.SaveActiveGame(ctx, creatorID, session.GameType, raw)
	if err != nil {
		return nil, err
	}
	if err := o.transition(ctx, session, game_constants.SessionStarted); err != nil {
		if delErr := o.snapshots.DeleteActiveGame(ctx, creatorID); delErr != nil {
			zap.S().Errorf("[START-ERROR] removing snapshot of game %s: %v", gameID, delErr)
		}
		return nil, err
	}
	zap.S().Infof("[START] game %s started by user %d", gameID, creatorID)
	return game, nil
}

func initialState(session *postgres.GameSession, view *SessionView, rawState []byte) ([]byte, error) {
	if len(strings.TrimSpace(string(rawState))) == 0 || string(rawState) == "null" {
		userBySlot := make(map[string]uint, len(view.Invitations))
		for _, inv := range view.Invitations {
			userBySlot[inv.TeamSlot] = inv.InvitedUser
		}
		players := make([]gamestate.Player, len(view.Players))
		for i, p := range view.Players {
			players[i] = gamestate.Player{Name: p.Username, UserID: userBySlot[p.TeamSlot], TeamSlot: p.TeamSlot}
			if players[i].UserID == 0 {
				players[i].UserID = p.UserID
			}
		}
		state, err := gamestate.New(session.GameType, session.ID, players, nil)
		if err != nil {
			return nil, err
		}
		return gamestate.Encode(state)
	}

	state, err := gamestate.Decode(session.GameType, rawState)
	if err != nil {
		return nil, err
	}
	seated := make(map[string]bool, len(view.Players))
	for _, p := range view.Players {
		seated[p.TeamSlot] = true
	}
	statePlayers := gamestate.Players(state)
	if len(statePlayers) != len(seated) {
		return nil, apperr.Validation("initial state seats %d players, game %s has %d", len(statePlayers), session.ID, len(seated))
	}
	for _, p := range statePlayers {
		if !seated[p.TeamSlot] {
			return nil, apperr.Validation("initial state seats unknown slot %q", p.TeamSlot)
		}
	}
	return rawState, nil
}

// CancelSession is allowed to the creator before the game starts.
func (o *Orchestrator) CancelSession(ctx context.Context, creatorID uint, gameID string) error {
	session, err := o.ownedSession(ctx, creatorID, gameID)
	if err != nil {
		return err
	}
	return o.cancel(ctx, session)
}

// CancelStaleSessions cancels every session still waiting or ready that was
// created before cutoff. It keeps going past individual failures and
// returns the first one.
func (o *Orchestrator) CancelStaleSessions(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := o.sessions.ListStale(ctx, []string{game_constants.SessionPending, game_constants.SessionReady}, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "listing stale sessions")
	}
	var firstErr error
	cancelled := 0
	for i := range stale {
		if err := o.cancel(ctx, &stale[i]); err != nil {
			zap.S().Warnf("[SWEEP] game %s: %v", stale[i].ID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		cancelled++
	}
	return cancelled, firstErr
}

// cancel withdraws the pending invitations before the session is marked
// cancelled, so a failure leaves the session open and the call can be
// repeated. Cancelling a cancelled session runs the cleanup again.
func (o *Orchestrator) cancel(ctx context.Context, session *postgres.GameSession) error {
	if !session.IsOpen() && session.State != game_constants.SessionCancelled {
		return apperr.InvalidState("game %s is %s and cannot be cancelled", session.ID, session.State)
	}

	cancelled, err := o.ledger.CancelSession(ctx, session.ID)
	if err != nil {
		return err
	}
	for _, inv := range cancelled {
		o.notify(inv.InvitedUser, game_constants.EventSessionCancelled, models.SessionEvent{GameID: session.ID})
	}

	if session.IsOpen() {
		if err := o.transition(ctx, session, game_constants.SessionCancelled); err != nil {
			return err
		}
	}
	if err := o.discardCreatorSnapshot(ctx, session); err != nil {
		return err
	}
	zap.S().Infof("[CANCEL] game %s cancelled, %d pending invitations withdrawn", session.ID, len(cancelled))
	return nil
}

// discardCreatorSnapshot removes the creator's snapshot unless it is
// tagged with a different game id.
func (o *Orchestrator) discardCreatorSnapshot(ctx context.Context, session *postgres.GameSession) error {
	game, err := o.snapshots.GetActiveGame(ctx, session.CreatorID)
	if err != nil {
		return err
	}
	if game == nil {
		return nil
	}
	if state, err := gamestate.Decode(game.GameType, game.GameState); err == nil {
		if id := gamestate.GameID(state); id != "" && id != session.ID {
			return nil
		}
	}
	return o.snapshots.DeleteActiveGame(ctx, session.CreatorID)
}

func (o *Orchestrator) ownedSession(ctx context.Context, creatorID uint, gameID string) (*postgres.GameSession, error) {
	session, err := o.sessions.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if session.CreatorID != creatorID {
		return nil, apperr.NotFound("game %s not found", gameID)
	}
	return session, nil
}

func (o *Orchestrator) view(ctx context.Context, session *postgres.GameSession) (*SessionView, error) {
	players, err := session.PlayerList()
	if err != nil {
		return nil, errors.Wrapf(err, "decoding players of game %s", session.ID)
	}
	invs, err := o.ledger.GetInvitationsForSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	return &SessionView{
		Session:     session,
		Players:     players,
		Invitations: invs,
		Aggregate:   SeedAggregate(players, invs),
	}, nil
}

func (o *Orchestrator) transition(ctx context.Context, session *postgres.GameSession, to string) error {
	if err := sessionStates.Check(session.State, to); err != nil {
		return apperr.InvalidState("game %s: %v (allowed: %v)", session.ID, err, sessionStates.Targets(session.State))
	}
	ok, err := o.sessions.UpdateState(ctx, session.ID, session.State, to)
	if err != nil {
		return errors.Wrapf(err, "moving game %s to %s", session.ID, to)
	}
	if !ok {
		return apperr.InvalidState("game %s changed state concurrently", session.ID)
	}
	session.State = to
	metrics.SessionTransitions.WithLabelValues(to).Inc()
	return nil
}

func (o *Orchestrator) notify(userID uint, event string, payload interface{}) bool {
	if o.notifier == nil {
		return false
	}
	return o.notifier.Notify(userID, event, payload)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, apperr.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
