// Package rules holds the pure validation functions the storyteller consults
// at every decision point. Nothing here mutates game state.
package rules

import (
	"errors"
	"fmt"

	"github.com/pixil98/go-clocktower/internal/game"
)

// Role names with rule-level effects.
const (
	RoleSaint  = "Saint"
	RoleMayor  = "Mayor"
	RoleButler = "Butler"
)

// Rejection is an expected, non-fatal validation failure. The game continues
// and the reason is reported back to the players.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return r.Reason
}

func reject(format string, args ...any) *Rejection {
	return &Rejection{Reason: fmt.Sprintf(format, args...)}
}

// IsRejection reports whether err is a validation failure.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}

// Options carries script-defined rule switches.
type Options struct {
	AllowSelfNomination bool
	ExecutionsPerDay    int
}

// DefaultOptions are the base game's rules.
func DefaultOptions() Options {
	return Options{
		AllowSelfNomination: false,
		ExecutionsPerDay:    1,
	}
}

// ValidateNomination returns nil if nominator may nominate nominee right now.
func ValidateNomination(nominator, nominee string, state *game.State, opts Options) error {
	if state.Phase != game.PhaseDay {
		return reject("nominations are only allowed during the day")
	}

	nr := state.PlayerByName(nominator)
	if nr == nil {
		return reject("player %q not found", nominator)
	}
	ne := state.PlayerByName(nominee)
	if ne == nil {
		return reject("player %q not found", nominee)
	}

	if !nr.IsAlive() {
		return reject("%s is dead and cannot nominate", nr.Name)
	}
	if !ne.IsAlive() {
		return reject("%s is dead and cannot be nominated", ne.Name)
	}
	if nr == ne && !opts.AllowSelfNomination {
		return reject("%s cannot nominate themselves", nr.Name)
	}

	if ExecutionsToday(state) >= max(opts.ExecutionsPerDay, 1) {
		return reject("there has already been an execution today")
	}
	if state.NominatedToday(ne.Name) {
		return reject("%s has already been nominated today", ne.Name)
	}
	if state.NominatorToday(nr.Name) {
		return reject("%s has already nominated today", nr.Name)
	}

	return nil
}

// ExecutionsToday counts the executions on the current day.
func ExecutionsToday(state *game.State) int {
	n := 0
	for _, nom := range state.Nominations {
		if nom.Day == state.Day && nom.Executed {
			n++
		}
	}
	if n == 0 && state.ExecutedToday != "" {
		n = 1
	}
	return n
}

// RequiredVotes is the execution threshold for the current living count.
func RequiredVotes(aliveCount int) int {
	return aliveCount/2 + 1
}

// CanVote reports whether p may raise a hand right now. Dead players hold a
// single ghost vote for the rest of the game.
func CanVote(p *game.Player) bool {
	if p.IsAlive() {
		return true
	}
	return p.Status == game.StatusDead && !p.GhostVoteUsed
}

// ButlerMayVote reports whether a Butler's vote counts given the raised hands.
// A Butler may only vote while their master is voting too.
func ButlerMayVote(butler *game.Player, voters []string, state *game.State) bool {
	if butler.Role != RoleButler || butler.Impaired() {
		return true
	}
	r, ok := butler.Reminder(game.TokenMaster)
	if !ok {
		return true
	}
	master := state.PlayerByID(r.Description)
	if master == nil {
		return true
	}
	for _, v := range voters {
		if p := state.PlayerByName(v); p != nil && p.ID == master.ID {
			return true
		}
	}
	return false
}
