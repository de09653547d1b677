package gamestate

import (
	"slices"
	"strings"

	game_constants "Scorekeep/constants/game"
	"Scorekeep/utils/apperr"
)

// State is the stored document of an in-progress game. The set of
// implementations is closed: ChkanState, S7abState and JakiState.
type State interface {
	GameType() string
	Validate() error
	common() *Common
	clone() State
}

type Player struct {
	Name     string `json:"name"`
	UserID   uint   `json:"userId,omitempty"`
	TeamSlot string `json:"teamSlot"`
}

// Round scores are keyed by team slot in individual games and by team id in
// team games.
type Round struct {
	Number int            `json:"number"`
	Scores map[string]int `json:"scores"`
	Dealer int            `json:"dealer"`
}

// Common holds the fields every game type shares.
type Common struct {
	Type         string   `json:"gameType"`
	GameID       string   `json:"gameId,omitempty"`
	Players      []Player `json:"players"`
	Rounds       []Round  `json:"rounds"`
	CurrentRound int      `json:"currentRound"`
	Dealer       int      `json:"dealer"`
	DealerSeed   *int64   `json:"dealerSeed,omitempty"`
}

func (c *Common) GameType() string { return c.Type }

func (c *Common) common() *Common { return c }

func (c *Common) copyCommon() Common {
	out := *c
	out.Players = slices.Clone(c.Players)
	out.Rounds = make([]Round, len(c.Rounds))
	for i, r := range c.Rounds {
		scores := make(map[string]int, len(r.Scores))
		for k, v := range r.Scores {
			scores[k] = v
		}
		out.Rounds[i] = Round{Number: r.Number, Scores: scores, Dealer: r.Dealer}
	}
	if c.DealerSeed != nil {
		seed := *c.DealerSeed
		out.DealerSeed = &seed
	}
	return out
}

func (c *Common) slots() []string {
	out := make([]string, len(c.Players))
	for i, p := range c.Players {
		out[i] = p.TeamSlot
	}
	return out
}

func (c *Common) validate(expectedType string, keys []string) error {
	if c.Type != expectedType {
		return apperr.Validation("game state is tagged %q, expected %q", c.Type, expectedType)
	}
	rules, _ := game_constants.RulesFor(expectedType)
	if n := len(c.Players); n < rules.MinPlayers || n > rules.MaxPlayers {
		return apperr.Validation("%s needs between %d and %d players, got %d", expectedType, rules.MinPlayers, rules.MaxPlayers, n)
	}

	seen := make(map[string]bool, len(c.Players))
	for _, p := range c.Players {
		if p.Name == "" {
			return apperr.Validation("player in slot %q has no name", p.TeamSlot)
		}
		if p.TeamSlot == "" {
			return apperr.Validation("player %q has no team slot", p.Name)
		}
		if seen[p.TeamSlot] {
			return apperr.Validation("duplicate team slot %q", p.TeamSlot)
		}
		seen[p.TeamSlot] = true
	}

	if c.Dealer < 0 || c.Dealer >= len(c.Players) {
		return apperr.Validation("dealer index %d out of range", c.Dealer)
	}
	if c.CurrentRound != len(c.Rounds) {
		return apperr.Validation("currentRound %d does not match %d recorded rounds", c.CurrentRound, len(c.Rounds))
	}
	for i, r := range c.Rounds {
		if r.Number != i+1 {
			return apperr.Validation("round %d is numbered %d", i+1, r.Number)
		}
		if r.Dealer < 0 || r.Dealer >= len(c.Players) {
			return apperr.Validation("round %d dealer index %d out of range", r.Number, r.Dealer)
		}
		if err := checkScoreKeys(keys, r.Scores); err != nil {
			return apperr.Validation("round %d: %s", r.Number, apperr.PublicMessage(err))
		}
	}
	return nil
}

func checkScoreKeys(keys []string, scores map[string]int) error {
	if len(scores) != len(keys) {
		return apperr.Validation("expected %d scores, got %d", len(keys), len(scores))
	}
	for _, k := range keys {
		if _, ok := scores[k]; !ok {
			return apperr.Validation("missing score for %q", k)
		}
	}
	return nil
}

// ChkanState is an individual game where the lowest total wins.
type ChkanState struct {
	Common
	ScoreLimit int `json:"scoreLimit,omitempty"`
}

func (s *ChkanState) Validate() error {
	if s.ScoreLimit < 0 {
		return apperr.Validation("scoreLimit must not be negative")
	}
	return s.Common.validate(game_constants.GameTypeChkan, s.slots())
}

func (s *ChkanState) clone() State {
	return &ChkanState{Common: s.copyCommon(), ScoreLimit: s.ScoreLimit}
}

// JakiState is an individual game where the highest total wins.
type JakiState struct {
	Common
	TargetScore int `json:"targetScore,omitempty"`
}

func (s *JakiState) Validate() error {
	if s.TargetScore < 0 {
		return apperr.Validation("targetScore must not be negative")
	}
	return s.Common.validate(game_constants.GameTypeJaki, s.slots())
}

func (s *JakiState) clone() State {
	return &JakiState{Common: s.copyCommon(), TargetScore: s.TargetScore}
}

type Team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name,omitempty"`
	Members []string `json:"members"`
}

// S7abState is played by two teams of two; the highest team total wins.
type S7abState struct {
	Common
	Teams       []Team `json:"teams"`
	TargetScore int    `json:"targetScore,omitempty"`
}

func (s *S7abState) Validate() error {
	rules, _ := game_constants.RulesFor(game_constants.GameTypeS7ab)
	if s.TargetScore < 0 {
		return apperr.Validation("targetScore must not be negative")
	}
	if len(s.Teams) != rules.TeamCount {
		return apperr.Validation("s7ab needs %d teams, got %d", rules.TeamCount, len(s.Teams))
	}

	slots := make(map[string]bool, len(s.Players))
	for _, slot := range s.slots() {
		slots[slot] = true
	}
	ids := make(map[string]bool, len(s.Teams))
	assigned := make(map[string]bool, len(s.Players))
	for _, team := range s.Teams {
		if team.ID == "" || ids[team.ID] {
			return apperr.Validation("team ids must be unique and non-empty")
		}
		ids[team.ID] = true
		if len(team.Members) != rules.PlayersPerTeam {
			return apperr.Validation("team %q needs %d members, got %d", team.ID, rules.PlayersPerTeam, len(team.Members))
		}
		for _, m := range team.Members {
			if !slots[m] {
				return apperr.Validation("team %q references unknown slot %q", team.ID, m)
			}
			if assigned[m] {
				return apperr.Validation("slot %q belongs to more than one team", m)
			}
			assigned[m] = true
		}
	}
	return s.Common.validate(game_constants.GameTypeS7ab, s.teamIDs())
}

func (s *S7abState) teamIDs() []string {
	out := make([]string, len(s.Teams))
	for i, t := range s.Teams {
		out[i] = t.ID
	}
	return out
}

func (s *S7abState) clone() State {
	teams := make([]Team, len(s.Teams))
	for i, t := range s.Teams {
		teams[i] = Team{ID: t.ID, Name: t.Name, Members: slices.Clone(t.Members)}
	}
	return &S7abState{Common: s.copyCommon(), Teams: teams, TargetScore: s.TargetScore}
}

// ScoreKeys lists the keys a round must score, in table order.
func ScoreKeys(s State) []string {
	if t, ok := s.(*S7abState); ok {
		return t.teamIDs()
	}
	return s.common().slots()
}

// Players returns a copy of the seated players.
func Players(s State) []Player {
	return slices.Clone(s.common().Players)
}

func GameID(s State) string {
	return s.common().GameID
}

// CurrentRound is the number of rounds recorded so far.
func CurrentRound(s State) int {
	return s.common().CurrentRound
}

func empty(gameType string) (State, error) {
	switch gameType {
	case game_constants.GameTypeChkan:
		return &ChkanState{}, nil
	case game_constants.GameTypeJaki:
		return &JakiState{}, nil
	case game_constants.GameTypeS7ab:
		return &S7abState{}, nil
	default:
		return nil, apperr.Validation("unknown game type %q", gameType)
	}
}

// New builds the round-zero state for a table. S7ab teams are formed from
// the "team<N>-" prefix of each slot.
func New(gameType, gameID string, players []Player, dealerSeed *int64) (State, error) {
	s, err := empty(gameType)
	if err != nil {
		return nil, err
	}
	c := s.common()
	c.Type = gameType
	c.GameID = gameID
	c.Players = slices.Clone(players)
	c.Rounds = []Round{}
	if dealerSeed != nil && len(players) > 0 {
		seed := *dealerSeed
		c.DealerSeed = &seed
		c.Dealer = int(((seed % int64(len(players))) + int64(len(players))) % int64(len(players)))
	}
	if t, ok := s.(*S7abState); ok {
		t.Teams = teamsFromSlots(players)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func teamsFromSlots(players []Player) []Team {
	var teams []Team
	index := make(map[string]int)
	for _, p := range players {
		id, _, _ := strings.Cut(p.TeamSlot, "-")
		pos, ok := index[id]
		if !ok {
			pos = len(teams)
			index[id] = pos
			teams = append(teams, Team{ID: id})
		}
		teams[pos].Members = append(teams[pos].Members, p.TeamSlot)
	}
	return teams
}
