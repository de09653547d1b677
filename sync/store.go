package sync

import (
	"context"

	"Scorekeep/models/postgres"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormCompletedStore struct {
	db *gorm.DB
}

func NewGormCompletedStore(db *gorm.DB) *GormCompletedStore {
	return &GormCompletedStore{db: db}
}

func (s *GormCompletedStore) Insert(ctx context.Context, game *postgres.CompletedGame) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "source_key"}}, DoNothing: true}).
		Create(game)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormCompletedStore) List(ctx context.Context, userID uint, gameType string, limit int) ([]postgres.CompletedGame, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if gameType != "" {
		q = q.Where("game_type = ?", gameType)
	}
	var games []postgres.CompletedGame
	err := q.Order("finished_at DESC").Limit(limit).Find(&games).Error
	return games, err
}
