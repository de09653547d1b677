package orchestrator

import (
	"context"
	"time"

	"Scorekeep/models/postgres"
	"Scorekeep/utils/apperr"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// GormSessionStore keeps sessions in the game_sessions table.
type GormSessionStore struct {
	db *gorm.DB
}

func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{db: db}
}

func (s *GormSessionStore) Create(ctx context.Context, session *postgres.GameSession) error {
	err := s.db.WithContext(ctx).Create(session).Error
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.Is(err, gorm.ErrDuplicatedKey) || (errors.As(err, &pqErr) && pqErr.Code == "23505") {
		return apperr.Validation("game %s already exists", session.ID)
	}
	return errors.Wrap(err, "inserting game session")
}

func (s *GormSessionStore) Get(ctx context.Context, id string) (*postgres.GameSession, error) {
	var session postgres.GameSession
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("game %s not found", id)
		}
		return nil, errors.Wrapf(err, "loading game %s", id)
	}
	return &session, nil
}

// UpdateState moves the session only if it is still in from.
func (s *GormSessionStore) UpdateState(ctx context.Context, id, from, to string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&postgres.GameSession{}).
		Where("id = ? AND state = ?", id, from).
		Updates(map[string]interface{}{"state": to, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormSessionStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&postgres.GameSession{}).Error
}

func (s *GormSessionStore) ListStale(ctx context.Context, states []string, before time.Time) ([]postgres.GameSession, error) {
	var sessions []postgres.GameSession
	err := s.db.WithContext(ctx).
		Where("state IN ? AND created_at < ?", states, before).
		Order("created_at").
		Find(&sessions).Error
	return sessions, err
}
