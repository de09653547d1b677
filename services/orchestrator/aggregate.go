package orchestrator

import (
	"sort"

	game_constants "Scorekeep/constants/game"
	"Scorekeep/models"
	"Scorekeep/models/postgres"
)

// Aggregate maps each team slot of a session to whether its seat is
// confirmed. The creator and free text players are confirmed from the start.
type Aggregate map[string]bool

// SeedAggregate derives the aggregate from the session's player list and its
// invitation rows. Each slot depends only on its own row, so the result is
// the same whatever order responses were recorded in.
func SeedAggregate(players []models.PlayerEntry, invitations []postgres.GameInvitation) Aggregate {
	bySlot := make(map[string]string, len(invitations))
	for _, inv := range invitations {
		bySlot[inv.TeamSlot] = inv.Status
	}
	agg := make(Aggregate, len(players))
	for _, p := range players {
		status, invited := bySlot[p.TeamSlot]
		agg[p.TeamSlot] = !invited || status == game_constants.InvitationAccepted
	}
	return agg
}

// Apply records one response for slot.
func (a Aggregate) Apply(slot, response string) {
	if _, ok := a[slot]; !ok {
		return
	}
	a[slot] = response == game_constants.InvitationAccepted
}

func (a Aggregate) AllAccepted() bool {
	if len(a) == 0 {
		return false
	}
	for _, ok := range a {
		if !ok {
			return false
		}
	}
	return true
}

// Waiting lists the slots still unconfirmed, sorted.
func (a Aggregate) Waiting() []string {
	var out []string
	for slot, ok := range a {
		if !ok {
			out = append(out, slot)
		}
	}
	sort.Strings(out)
	return out
}
