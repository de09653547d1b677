package gamestate

import (
	"sort"

	game_constants "Scorekeep/constants/game"
)

// ApplyRound returns a copy of s with one more round recorded. scores must
// hold exactly one entry per ScoreKeys(s). The dealer moves one seat on.
// s itself is left untouched.
func ApplyRound(s State, scores map[string]int) (State, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := checkScoreKeys(ScoreKeys(s), scores); err != nil {
		return nil, err
	}

	next := s.clone()
	c := next.common()
	recorded := make(map[string]int, len(scores))
	for k, v := range scores {
		recorded[k] = v
	}
	c.CurrentRound++
	c.Rounds = append(c.Rounds, Round{Number: c.CurrentRound, Scores: recorded, Dealer: c.Dealer})
	c.Dealer = (c.Dealer + 1) % len(c.Players)
	return next, nil
}

// Totals sums every recorded round per score key.
func Totals(s State) map[string]int {
	keys := ScoreKeys(s)
	totals := make(map[string]int, len(keys))
	for _, k := range keys {
		totals[k] = 0
	}
	for _, r := range s.common().Rounds {
		for k, v := range r.Scores {
			totals[k] += v
		}
	}
	return totals
}

// Winner returns the score keys holding the best total, sorted. Ties yield
// several keys; a game with no rounds has no winner.
func Winner(s State) []string {
	if len(s.common().Rounds) == 0 {
		return nil
	}
	rules, _ := game_constants.RulesFor(s.GameType())
	totals := Totals(s)

	var best int
	var winners []string
	first := true
	for _, k := range ScoreKeys(s) {
		v := totals[k]
		better := v > best
		if rules.LowestWins {
			better = v < best
		}
		switch {
		case first || better:
			best, winners, first = v, []string{k}, false
		case v == best:
			winners = append(winners, k)
		}
	}
	sort.Strings(winners)
	return winners
}

// DisplayName maps a score key to what a scoreboard shows: the player name
// for a slot, the team name (or id) for a team.
func DisplayName(s State, key string) string {
	if t, ok := s.(*S7abState); ok {
		for _, team := range t.Teams {
			if team.ID == key {
				if team.Name != "" {
					return team.Name
				}
				return team.ID
			}
		}
		return key
	}
	for _, p := range s.common().Players {
		if p.TeamSlot == key {
			return p.Name
		}
	}
	return key
}
