package snapshot

import (
	"context"

	"Scorekeep/models/postgres"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps snapshots in the active_games table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Get returns nil, nil when the user has no row.
func (s *GormStore) Get(ctx context.Context, userID uint) (*postgres.ActiveGame, error) {
	var game postgres.ActiveGame
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// Upsert inserts the row or replaces every column of the existing one.
func (s *GormStore) Upsert(ctx context.Context, game *postgres.ActiveGame) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"game_type", "game_state", "version", "created_at", "updated_at"}),
	}).Create(game).Error
}

func (s *GormStore) Delete(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&postgres.ActiveGame{}).Error
}
