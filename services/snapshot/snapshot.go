package snapshot

import (
	"context"
	"strconv"
	"time"

	"Scorekeep/models/postgres"
	redis_models "Scorekeep/models/redis"
	"Scorekeep/services/gamestate"
	"Scorekeep/services/metrics"
	"Scorekeep/utils/apperr"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
)

// Store persists one active game row per user.
type Store interface {
	Get(ctx context.Context, userID uint) (*postgres.ActiveGame, error)
	Upsert(ctx context.Context, game *postgres.ActiveGame) error
	Delete(ctx context.Context, userID uint) error
}

// Cache is an optional read-through copy of the store.
type Cache interface {
	GetActiveGame(ctx context.Context, userID uint) (*redis_models.ActiveGame, error)
	SaveActiveGame(ctx context.Context, game *redis_models.ActiveGame, ttl time.Duration) error
	DeleteActiveGame(ctx context.Context, userID uint) error
}

// Service is the active game snapshot store. Writes for one user are
// serialized; different users never contend.
type Service struct {
	store    Store
	cache    Cache
	cacheTTL time.Duration
	locks    *keyedMutex
	fill     singleflight.Group
	now      func() time.Time
}

// NewService builds the store. cache may be nil.
func NewService(store Store, cache Cache, cacheTTL time.Duration) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// GetActiveGame returns nil when the user has no game in progress.
func (s *Service) GetActiveGame(ctx context.Context, userID uint) (*postgres.ActiveGame, error) {
	if s.cache != nil {
		cached, err := s.cache.GetActiveGame(ctx, userID)
		if err != nil {
			zap.S().Warnf("[SNAPSHOT-CACHE] read for user %d failed, using postgres: %v", userID, err)
		} else if cached != nil {
			return fromCache(cached), nil
		}
	}

	v, err, _ := s.fill.Do(strconv.FormatUint(uint64(userID), 10), func() (interface{}, error) {
		unlock := s.locks.Lock(userID)
		defer unlock()

		game, err := s.store.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		if game != nil {
			s.cacheSet(ctx, game)
		}
		return game, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "loading active game")
	}
	game, _ := v.(*postgres.ActiveGame)
	if game == nil {
		return nil, nil
	}
	out := *game
	return &out, nil
}

// SaveActiveGame validates rawState for gameType and replaces the user's
// snapshot with it. The stored document is the canonical encoding.
func (s *Service) SaveActiveGame(ctx context.Context, userID uint, gameType string, rawState []byte) (*postgres.ActiveGame, error) {
	canonical, _, err := gamestate.Canonicalize(gameType, rawState)
	if err != nil {
		metrics.SnapshotSaves.WithLabelValues("invalid").Inc()
		return nil, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.write(ctx, userID, gameType, canonical)
}

// RecordRound applies one round to the stored game and saves the result.
// Load, reduce and save happen under the user's write lock.
func (s *Service) RecordRound(ctx context.Context, userID uint, scores map[string]int) (*postgres.ActiveGame, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	current, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "loading active game")
	}
	if current == nil {
		return nil, apperr.NotFound("no active game")
	}
	state, err := gamestate.Decode(current.GameType, current.GameState)
	if err != nil {
		return nil, errors.Wrap(err, "decoding stored game state")
	}
	next, err := gamestate.ApplyRound(state, scores)
	if err != nil {
		return nil, err
	}
	encoded, err := gamestate.Encode(next)
	if err != nil {
		return nil, errors.Wrap(err, "encoding game state")
	}
	return s.write(ctx, userID, current.GameType, encoded)
}

// write must be called with the user's lock held.
func (s *Service) write(ctx context.Context, userID uint, gameType string, canonical []byte) (*postgres.ActiveGame, error) {
	existing, err := s.store.Get(ctx, userID)
	if err != nil {
		metrics.SnapshotSaves.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "loading active game")
	}

	// postgres keeps microseconds; the cached copy must match it.
	now := s.now().Truncate(time.Microsecond)
	game := &postgres.ActiveGame{
		UserID:    userID,
		GameType:  gameType,
		GameState: datatypes.JSON(canonical),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing != nil {
		game.Version = existing.Version + 1
		if sameGame(existing, gameType, canonical) {
			game.CreatedAt = existing.CreatedAt
		}
	}

	if err := s.store.Upsert(ctx, game); err != nil {
		metrics.SnapshotSaves.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "saving active game")
	}
	metrics.SnapshotSaves.WithLabelValues("ok").Inc()
	s.cacheSet(ctx, game)

	out := *game
	return &out, nil
}

// sameGame reports whether next continues the game held in existing. An
// untagged state whose round count went down is a new game.
func sameGame(existing *postgres.ActiveGame, gameType string, next []byte) bool {
	if existing.GameType != gameType {
		return false
	}
	prev, err := gamestate.Decode(existing.GameType, existing.GameState)
	if err != nil {
		return false
	}
	cur, err := gamestate.Decode(gameType, next)
	if err != nil {
		return false
	}
	if gamestate.GameID(prev) != gamestate.GameID(cur) {
		return false
	}
	return gamestate.GameID(cur) != "" || gamestate.CurrentRound(cur) >= gamestate.CurrentRound(prev)
}

func (s *Service) DeleteActiveGame(ctx context.Context, userID uint) error {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.remove(ctx, userID)
}

// DeleteActiveGameOfType removes the user's snapshot only when it holds a
// gameType game, and reports whether it did.
func (s *Service) DeleteActiveGameOfType(ctx context.Context, userID uint, gameType string) (bool, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	existing, err := s.store.Get(ctx, userID)
	if err != nil {
		return false, errors.Wrap(err, "loading active game")
	}
	if existing == nil || existing.GameType != gameType {
		return false, nil
	}
	if err := s.remove(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

// remove must be called with the user's lock held.
func (s *Service) remove(ctx context.Context, userID uint) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		return errors.Wrap(err, "deleting active game")
	}
	if s.cache != nil {
		if err := s.cache.DeleteActiveGame(ctx, userID); err != nil {
			zap.S().Errorf("[SNAPSHOT-CACHE] evicting user %d failed: %v", userID, err)
		}
	}
	return nil
}

// cacheSet refreshes the cached copy. If that fails the entry is evicted so
// a later read cannot see an older version than postgres holds.
func (s *Service) cacheSet(ctx context.Context, game *postgres.ActiveGame) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveActiveGame(ctx, toCache(game), s.cacheTTL); err != nil {
		zap.S().Warnf("[SNAPSHOT-CACHE] write for user %d failed: %v", game.UserID, err)
		if err := s.cache.DeleteActiveGame(ctx, game.UserID); err != nil {
			zap.S().Errorf("[SNAPSHOT-CACHE] evicting user %d failed: %v", game.UserID, err)
		}
	}
}

func toCache(g *postgres.ActiveGame) *redis_models.ActiveGame {
	return &redis_models.ActiveGame{
		UserID:    g.UserID,
		GameType:  g.GameType,
		GameState: []byte(g.GameState),
		Version:   g.Version,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func fromCache(c *redis_models.ActiveGame) *postgres.ActiveGame {
	return &postgres.ActiveGame{
		UserID:    c.UserID,
		GameType:  c.GameType,
		GameState: datatypes.JSON(c.GameState),
		Version:   c.Version,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
