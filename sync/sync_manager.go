package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Scorekeep/models/postgres"
	"Scorekeep/services/gamestate"
	"Scorekeep/services/metrics"
	"Scorekeep/utils/apperr"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// completedNamespace derives a stable CompletedGame id from its source key.
var completedNamespace = uuid.MustParse("6b1f5a64-3f0e-4b7a-9a55-2f3c8e4d9b10")

type Snapshots interface {
	GetActiveGame(ctx context.Context, userID uint) (*postgres.ActiveGame, error)
	DeleteActiveGame(ctx context.Context, userID uint) error
}

// CompletedStore appends finished games. Insert reports false when a row
// with the same source key already exists.
type CompletedStore interface {
	Insert(ctx context.Context, game *postgres.CompletedGame) (bool, error)
	List(ctx context.Context, userID uint, gameType string, limit int) ([]postgres.CompletedGame, error)
}

// SyncManager moves a finished game from the active snapshot to the
// completed table.
type SyncManager struct {
	snapshots Snapshots
	completed CompletedStore
	now       func() time.Time
}

// NewSyncManager creates a new instance of the synchronization manager
func NewSyncManager(snapshots Snapshots, completed CompletedStore) *SyncManager {
	return &SyncManager{snapshots: snapshots, completed: completed, now: time.Now}
}

// FinishGame records the user's active game as completed, then deletes the
// snapshot. If the process dies between the two steps the snapshot is still
// there and calling FinishGame again completes the job without a duplicate.
// gameType may be empty to finish whatever game is active.
func (sm *SyncManager) FinishGame(ctx context.Context, userID uint, gameType string) (*postgres.CompletedGame, error) {
	snap, err := sm.snapshots.GetActiveGame(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap == nil || (gameType != "" && snap.GameType != gameType) {
		return nil, apperr.NotFound("no active game to finish")
	}

	game, err := BuildCompletedGame(snap, sm.now())
	if err != nil {
		return nil, err
	}

	inserted, err := sm.completed.Insert(ctx, game)
	if err != nil {
		return nil, errors.Wrapf(err, "recording completed game of user %d", userID)
	}
	if inserted {
		metrics.CompletedGames.WithLabelValues(game.GameType).Inc()
	} else {
		zap.S().Infof("[FINISH] game %s of user %d was already recorded, removing snapshot", game.SourceKey, userID)
	}

	if err := sm.snapshots.DeleteActiveGame(ctx, userID); err != nil {
		return nil, errors.Wrapf(err, "removing snapshot of user %d", userID)
	}
	zap.S().Infof("[FINISH] user %d finished a %s game after %d rounds", userID, game.GameType, game.Rounds)
	return game, nil
}

func (sm *SyncManager) ListCompletedGames(ctx context.Context, userID uint, gameType string, limit int) ([]postgres.CompletedGame, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	games, err := sm.completed.List(ctx, userID, gameType, limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing completed games")
	}
	return games, nil
}

// BuildCompletedGame derives the completed record from the snapshot alone.
// The result is the same for the same snapshot apart from FinishedAt.
func BuildCompletedGame(snap *postgres.ActiveGame, finishedAt time.Time) (*postgres.CompletedGame, error) {
	state, err := gamestate.Decode(snap.GameType, snap.GameState)
	if err != nil {
		return nil, errors.Wrap(err, "stored game state is unreadable")
	}

	winners := gamestate.Winner(state)
	won := make(map[string]bool, len(winners))
	for _, key := range winners {
		won[key] = true
	}
	scores := make(map[string]postgres.FinalScore)
	for key, total := range gamestate.Totals(state) {
		scores[key] = postgres.FinalScore{Name: gamestate.DisplayName(state, key), Score: total, Winner: won[key]}
	}
	rawScores, err := sonic.ConfigStd.Marshal(scores)
	if err != nil {
		return nil, errors.Wrap(err, "encoding final scores")
	}

	startedAt := snap.CreatedAt.Truncate(time.Microsecond)
	sourceKey := fmt.Sprintf("%d-%s-%d", snap.UserID, gamestate.GameID(state), startedAt.UnixMicro())
	return &postgres.CompletedGame{
		ID:          uuid.NewSHA1(completedNamespace, []byte(sourceKey)),
		UserID:      snap.UserID,
		GameType:    snap.GameType,
		SourceKey:   sourceKey,
		FinalScores: datatypes.JSON(rawScores),
		Winner:      strings.Join(winners, ","),
		Rounds:      gamestate.CurrentRound(state),
		GameState:   snap.GameState,
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
	}, nil
}
