package ledger

import (
	"context"
	"time"

	game_constants "Scorekeep/constants/game"
	"Scorekeep/models/postgres"
	"Scorekeep/utils/apperr"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// GormStore keeps invitations in the game_invitations table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateInvitations(ctx context.Context, rows []*postgres.GameInvitation) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(rows).Error
	})
	if isUniqueViolation(err) {
		return apperr.Validation("a team slot of this game already has an invitation")
	}
	return errors.Wrap(err, "inserting invitations")
}

func (s *GormStore) GetInvitation(ctx context.Context, id uint) (*postgres.GameInvitation, error) {
	var inv postgres.GameInvitation
	if err := s.db.WithContext(ctx).First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("invitation %d not found", id)
		}
		return nil, errors.Wrapf(err, "loading invitation %d", id)
	}
	return &inv, nil
}

func (s *GormStore) ListBySession(ctx context.Context, gameID string) ([]postgres.GameInvitation, error) {
	var invs []postgres.GameInvitation
	err := s.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("team_slot").
		Find(&invs).Error
	return invs, err
}

func (s *GormStore) ListPendingForUser(ctx context.Context, userID uint) ([]postgres.GameInvitation, error) {
	var invs []postgres.GameInvitation
	err := s.db.WithContext(ctx).
		Where("invited_user = ? AND status = ?", userID, game_constants.InvitationPending).
		Order("created_at DESC").
		Find(&invs).Error
	return invs, err
}

func (s *GormStore) ResolvePending(ctx context.Context, id uint, status string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&postgres.GameInvitation{}).
		Where("id = ? AND status = ?", id, game_constants.InvitationPending).
		Updates(map[string]interface{}{"status": status, "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) CancelPending(ctx context.Context, gameID string, at time.Time) ([]postgres.GameInvitation, error) {
	var cancelled []postgres.GameInvitation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("game_id = ? AND status = ?", gameID, game_constants.InvitationPending).
			Find(&cancelled).Error; err != nil {
			return err
		}
		if len(cancelled) == 0 {
			return nil
		}
		return tx.Model(&postgres.GameInvitation{}).
			Where("game_id = ? AND status = ?", gameID, game_constants.InvitationPending).
			Updates(map[string]interface{}{"status": game_constants.InvitationCancelled, "updated_at": at}).Error
	})
	if err != nil {
		return nil, err
	}
	for i := range cancelled {
		cancelled[i].Status = game_constants.InvitationCancelled
		cancelled[i].UpdatedAt = at
	}
	return cancelled, nil
}

// GormUserDirectory reads the users table.
type GormUserDirectory struct {
	db *gorm.DB
}

func NewGormUserDirectory(db *gorm.DB) *GormUserDirectory {
	return &GormUserDirectory{db: db}
}

func (d *GormUserDirectory) FindByID(ctx context.Context, id uint) (*postgres.User, error) {
	var user postgres.User
	if err := d.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user %d not found", id)
		}
		return nil, errors.Wrapf(err, "loading user %d", id)
	}
	return &user, nil
}

func (d *GormUserDirectory) FindByUsernames(ctx context.Context, usernames []string) (map[string]postgres.User, error) {
	out := make(map[string]postgres.User, len(usernames))
	if len(usernames) == 0 {
		return out, nil
	}
	var users []postgres.User
	if err := d.db.WithContext(ctx).Where("username IN ?", usernames).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.Username] = u
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// FindByUsername is the lookup used by /login.
func (d *GormUserDirectory) FindByUsername(ctx context.Context, username string) (*postgres.User, error) {
	var user postgres.User
	if err := d.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user %q not found", username)
		}
		return nil, errors.Wrapf(err, "loading user %q", username)
	}
	return &user, nil
}
