package ledger

import (
	"context"
	"strings"
	"time"

	game_constants "Scorekeep/constants/game"
	"Scorekeep/models"
	"Scorekeep/models/postgres"
	"Scorekeep/utils/apperr"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Store is the persistence the ledger needs. Implementations must make
// CreateInvitations all-or-nothing and ResolvePending conditional on the row
// still being pending.
type Store interface {
	CreateInvitations(ctx context.Context, rows []*postgres.GameInvitation) error
	GetInvitation(ctx context.Context, id uint) (*postgres.GameInvitation, error)
	ListBySession(ctx context.Context, gameID string) ([]postgres.GameInvitation, error)
	ListPendingForUser(ctx context.Context, userID uint) ([]postgres.GameInvitation, error)
	ResolvePending(ctx context.Context, id uint, status string, at time.Time) (bool, error)
	CancelPending(ctx context.Context, gameID string, at time.Time) ([]postgres.GameInvitation, error)
}

// UserDirectory resolves registered users.
type UserDirectory interface {
	FindByID(ctx context.Context, id uint) (*postgres.User, error)
	FindByUsernames(ctx context.Context, usernames []string) (map[string]postgres.User, error)
}

type Options struct {
	TTL           time.Duration
	EnforceExpiry bool
}

// Ledger owns the lifecycle of invitation rows.
type Ledger struct {
	store Store
	users UserDirectory
	opts  Options
	now   func() time.Time
}

func NewLedger(store Store, users UserDirectory, opts Options) *Ledger {
	if opts.TTL <= 0 {
		opts.TTL = game_constants.DefaultInvitationTTL
	}
	return &Ledger{store: store, users: users, opts: opts, now: time.Now}
}

// TTL is how long a new invitation is advertised as open.
func (l *Ledger) TTL() time.Duration { return l.opts.TTL }

// CreateInvitations writes one pending row per registered player other than
// the creator and returns them. players must already carry their team slots.
// len(result) is the number of invitations sent, which differs from the
// number of players whenever the creator or free text names are seated.
func (l *Ledger) CreateInvitations(ctx context.Context, creatorID uint, sessionID, gameType string, players []models.PlayerEntry) ([]postgres.GameInvitation, error) {
	if sessionID == "" {
		return nil, apperr.Validation("game id is required")
	}
	if !game_constants.IsValidGameType(gameType) {
		return nil, apperr.Validation("unknown game type %q", gameType)
	}
	if len(players) == 0 {
		return nil, apperr.Validation("player list is empty")
	}

	creator, err := l.users.FindByID(ctx, creatorID)
	if err != nil {
		return nil, errors.Wrap(err, "loading invitation creator")
	}

	slots := make(map[string]bool, len(players))
	var usernames []string
	for _, p := range players {
		slot := strings.TrimSpace(p.TeamSlot)
		if slot == "" {
			return nil, apperr.Validation("player %q has an empty team slot", p.Username)
		}
		if slots[slot] {
			return nil, apperr.Validation("duplicate team slot %q", slot)
		}
		slots[slot] = true
		if p.IsRegistered {
			usernames = append(usernames, strings.TrimSpace(p.Username))
		}
	}

	existing, err := l.store.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "loading existing invitations")
	}
	for _, inv := range existing {
		if slots[inv.TeamSlot] {
			return nil, apperr.Validation("team slot %q is already taken in game %s", inv.TeamSlot, sessionID)
		}
	}

	known, err := l.users.FindByUsernames(ctx, usernames)
	if err != nil {
		return nil, errors.Wrap(err, "resolving invited users")
	}

	now := l.now()
	var rows []*postgres.GameInvitation
	for _, p := range players {
		if !p.IsRegistered {
			continue
		}
		username := strings.TrimSpace(p.Username)
		user, ok := known[username]
		if !ok {
			return nil, apperr.Validation("player %q is not a registered user", username)
		}
		if user.ID == creator.ID {
			continue
		}
		rows = append(rows, &postgres.GameInvitation{
			GameID:            sessionID,
			GameType:          gameType,
			InvitedBy:         creator.ID,
			InvitedByUsername: creator.Username,
			InvitedUser:       user.ID,
			InvitedUsername:   user.Username,
			TeamSlot:          strings.TrimSpace(p.TeamSlot),
			Status:            game_constants.InvitationPending,
			ExpiresAt:         now.Add(l.opts.TTL),
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	if len(rows) > 0 {
		if err := l.store.CreateInvitations(ctx, rows); err != nil {
			return nil, err
		}
	}

	out := make([]postgres.GameInvitation, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	zap.S().Infof("[INVITE] game %s: %d invitations for %d players", sessionID, len(out), len(players))
	return out, nil
}

// RespondToInvitation moves a pending invitation to accepted or declined.
// Responding twice fails; the first answer stands.
func (l *Ledger) RespondToInvitation(ctx context.Context, invitationID, responderID uint, response string) (*postgres.GameInvitation, error) {
	if response != game_constants.InvitationAccepted && response != game_constants.InvitationDeclined {
		return nil, apperr.Validation("response must be %q or %q", game_constants.InvitationAccepted, game_constants.InvitationDeclined)
	}

	inv, err := l.store.GetInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.InvitedUser != responderID {
		return nil, apperr.NotFound("invitation %d not found", invitationID)
	}
	if !inv.IsPending() {
		return nil, apperr.InvalidState("invitation %d is already %s", invitationID, inv.Status)
	}
	now := l.now()
	if l.opts.EnforceExpiry && inv.IsExpired(now) {
		return nil, apperr.InvalidState("invitation %d expired at %s", invitationID, inv.ExpiresAt.Format(time.RFC3339))
	}

	ok, err := l.store.ResolvePending(ctx, invitationID, response, now)
	if err != nil {
		return nil, errors.Wrap(err, "updating invitation status")
	}
	if !ok {
		return nil, apperr.InvalidState("invitation %d was resolved concurrently", invitationID)
	}

	inv.Status = response
	inv.UpdatedAt = now
	return inv, nil
}

func (l *Ledger) GetInvitationsForSession(ctx context.Context, sessionID string) ([]postgres.GameInvitation, error) {
	invs, err := l.store.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "listing session invitations")
	}
	return invs, nil
}

// GetPendingInvitationsForUser backs the reconnect poll. Expired rows that
// are still pending are included.
func (l *Ledger) GetPendingInvitationsForUser(ctx context.Context, userID uint) ([]postgres.GameInvitation, error) {
	invs, err := l.store.ListPendingForUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "listing pending invitations")
	}
	return invs, nil
}

// CancelSession moves every still pending invitation of the session to
// cancelled and returns those rows.
func (l *Ledger) CancelSession(ctx context.Context, sessionID string) ([]postgres.GameInvitation, error) {
	cancelled, err := l.store.CancelPending(ctx, sessionID, l.now())
	if err != nil {
		return nil, errors.Wrap(err, "cancelling session invitations")
	}
	return cancelled, nil
}
