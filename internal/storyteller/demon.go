package storyteller

import (
	"context"
	"fmt"

	"github.com/pixil98/go-clocktower/internal/abilities"
	"github.com/pixil98/go-clocktower/internal/events"
	"github.com/pixil98/go-clocktower/internal/game"
)

type demonPass struct {
	player string
	role   string
}

// scarletWomanMinimum is how many players must be alive when the demon
// dies for the Scarlet Woman to take over.
const scarletWomanMinimum = 5

// passDemon makes a living, healthy Scarlet Woman the demon when dead was
// the demon and aliveBefore players were alive before the death. mu must be
// held.
func (st *Storyteller) passDemon(dead *game.Player, aliveBefore int) {
	if dead.Type != game.TypeDemon || aliveBefore < scarletWomanMinimum {
		return
	}
	for _, p := range st.state.PlayersWithRole(abilities.RoleScarletWoman) {
		if !p.IsAlive() || p.Impaired() {
			continue
		}
		dead.AddReminder(game.TokenFormerDemon, abilities.RoleScarletWoman, p.ID)
		p.Role, p.Type = dead.Role, game.TypeDemon
		st.passed = &demonPass{player: p.Name, role: dead.Role}
		return
	}
}

// revealNewDemon tells a promoted Scarlet Woman what they have become.
func (st *Storyteller) revealNewDemon(ctx context.Context) {
	st.mu.Lock()
	pass := st.passed
	st.passed = nil
	st.mu.Unlock()
	if pass == nil {
		return
	}

	st.log.InfoContext(ctx, "demon passed", "player", pass.player, "role", pass.role)
	st.emit(ctx, st.event(events.DemonPassed, map[string]any{"player": pass.player, "role": pass.role}))
	st.tell(ctx, pass.player, fmt.Sprintf("The demon has fallen. You are now the %s.", pass.role))
}
