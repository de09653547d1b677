package orchestrator

import (
	"fmt"
	"strings"
	"time"

	game_constants "Scorekeep/constants/game"
	"Scorekeep/models"
	"Scorekeep/utils/apperr"

	"github.com/teris-io/shortid"
)

// SlotFor returns the positional team slot of seat index i.
func SlotFor(gameType string, i int) string {
	rules, _ := game_constants.RulesFor(gameType)
	if rules.Teams && rules.PlayersPerTeam > 0 {
		return fmt.Sprintf("team%d-player%d", i/rules.PlayersPerTeam+1, i%rules.PlayersPerTeam+1)
	}
	return fmt.Sprintf("player%d", i+1)
}

// AssignSlots trims names and fills in missing team slots. Client supplied
// slots are kept.
func AssignSlots(gameType string, players []models.PlayerEntry) ([]models.PlayerEntry, error) {
	out := make([]models.PlayerEntry, len(players))
	for i, p := range players {
		p.Username = strings.TrimSpace(p.Username)
		if p.Username == "" {
			return nil, apperr.Validation("player %d has no name", i+1)
		}
		p.TeamSlot = strings.TrimSpace(p.TeamSlot)
		if p.TeamSlot == "" {
			p.TeamSlot = SlotFor(gameType, i)
		}
		out[i] = p
	}
	return out, nil
}

// NewSessionID builds "<gametype>-<unixmillis>-<random>".
func NewSessionID(gameType string, now time.Time) (string, error) {
	suffix, err := shortid.Generate()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%s", gameType, now.UnixMilli(), suffix), nil
}
