package game_constants

import "time"

// Supported game types. The value doubles as the gameType tag of a stored
// game state and as the prefix of generated session ids.
const (
	GameTypeChkan = "chkan"
	GameTypeS7ab  = "s7ab"
	GameTypeJaki  = "jaki"
)

// Invitation statuses
const (
	InvitationPending   = "pending"
	InvitationAccepted  = "accepted"
	InvitationDeclined  = "declined"
	InvitationCancelled = "cancelled"
)

// Session states. IDLE has no persisted row.
const (
	SessionIdle      = "idle"
	SessionPending   = "pending"
	SessionReady     = "ready"
	SessionStarted   = "started"
	SessionCancelled = "cancelled"
)

// Realtime event names
const (
	EventUserLogin              = "user_login"
	EventRespondToInvitation    = "respond_to_invitation"
	EventGameInvitation         = "game_invitation"
	EventInvitationResponse     = "invitation_response"
	EventInvitationResponseSent = "invitation_response_sent"
	EventSessionReady           = "session_ready"
	EventSessionCancelled       = "session_cancelled"
	EventError                  = "error"
)

const DefaultInvitationTTL = 5 * time.Minute
const DefaultPollInterval = 15 * time.Second
const DefaultSessionMaxAge = 24 * time.Hour

// Rules describes the table shape of a game type.
type Rules struct {
	Teams          bool
	TeamCount      int
	PlayersPerTeam int
	MinPlayers     int
	MaxPlayers     int
	LowestWins     bool
}

var rules = map[string]Rules{
	GameTypeChkan: {MinPlayers: 2, MaxPlayers: 6, LowestWins: true},
	GameTypeJaki:  {MinPlayers: 2, MaxPlayers: 6},
	GameTypeS7ab:  {Teams: true, TeamCount: 2, PlayersPerTeam: 2, MinPlayers: 4, MaxPlayers: 4},
}

func RulesFor(gameType string) (Rules, bool) {
	r, ok := rules[gameType]
	return r, ok
}

func IsValidGameType(gameType string) bool {
	_, ok := rules[gameType]
	return ok
}

// GameTypes returns the supported types in a stable order.
func GameTypes() []string {
	return []string{GameTypeChkan, GameTypeS7ab, GameTypeJaki}
}
