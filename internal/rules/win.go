package rules

import (
	"fmt"

	"github.com/pixil98/go-clocktower/internal/game"
)

// Outcome is the result of a win-condition check.
type Outcome struct {
	Ended  bool
	Winner game.Team
	Reason string
}

// CheckWinCondition evaluates the end-of-game triggers. The demon's death is
// checked before the living count so a simultaneous trigger goes to good.
func CheckWinCondition(state *game.State) (Outcome, error) {
	demon, err := state.Demon()
	if err != nil {
		return Outcome{}, fmt.Errorf("checking win condition: %w", err)
	}

	if !demon.IsAlive() {
		return Outcome{Ended: true, Winner: game.TeamGood, Reason: "The demon is dead."}, nil
	}

	for _, p := range state.Players {
		if p.HasReminder(game.TokenSaintLoss) {
			return Outcome{Ended: true, Winner: game.TeamEvil, Reason: fmt.Sprintf("%s the Saint was executed.", p.Name)}, nil
		}
	}

	if livingCount(state) <= 2 {
		return Outcome{Ended: true, Winner: game.TeamEvil, Reason: "Only two players remain."}, nil
	}

	return Outcome{}, nil
}

// SaintExecutionLoses reports whether executing p right now loses the game
// for good. Call it at the moment of execution.
func SaintExecutionLoses(p *game.Player) bool {
	return p.Role == RoleSaint && !p.Impaired()
}

// CheckDayEndWin evaluates the triggers that fire when a day closes. With
// three players alive and no execution, a healthy Mayor wins for good.
func CheckDayEndWin(state *game.State) Outcome {
	if state.ExecutedToday != "" || livingCount(state) != 3 {
		return Outcome{}
	}
	for _, p := range state.PlayersWithRole(RoleMayor) {
		if p.IsAlive() && !p.Impaired() {
			return Outcome{Ended: true, Winner: game.TeamGood, Reason: fmt.Sprintf("%s the Mayor survived to the final three.", p.Name)}
		}
	}
	return Outcome{}
}

// livingCount excludes travelers, who never count toward the final two.
func livingCount(state *game.State) int {
	n := 0
	for _, p := range state.Players {
		if p.IsAlive() && p.Type != game.TypeTraveler {
			n++
		}
	}
	return n
}
