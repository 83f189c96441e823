package abilities

import (
	"math/rand"

	"github.com/pixil98/go-clocktower/internal/game"
)

// trueRole is the character p actually holds. A drunk player holds the Drunk
// while believing they are someone else.
func trueRole(p *game.Player) string {
	if p.Drunk {
		return RoleDrunk
	}
	return p.Role
}

func trueType(p *game.Player) game.CharacterType {
	if p.Drunk {
		return game.TypeOutsider
	}
	return p.Type
}

// registersEvil reports how p appears to alignment-detecting abilities. The
// Recluse may register as evil and the Spy as good; rng decides.
func registersEvil(p *game.Player, rng *rand.Rand) bool {
	switch trueRole(p) {
	case RoleRecluse:
		if !p.Impaired() {
			return rng.Intn(2) == 0
		}
	case RoleSpy:
		if !p.Impaired() {
			return rng.Intn(2) != 0
		}
	}
	return p.IsEvil()
}

func registersDemon(p *game.Player, rng *rand.Rand) bool {
	if trueRole(p) == RoleRecluse && !p.Impaired() {
		return rng.Intn(2) == 0
	}
	return trueType(p) == game.TypeDemon
}

func names(players ...*game.Player) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		out = append(out, p.Name)
	}
	return out
}

func pairSubject(a, b *game.Player) string {
	if a.ID > b.ID {
		a, b = b, a
	}
	return a.ID + "|" + b.ID
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// others returns every player except the excluded ones.
func others(state *game.State, exclude ...*game.Player) []*game.Player {
	var out []*game.Player
outer:
	for _, p := range state.Players {
		for _, e := range exclude {
			if p == e {
				continue outer
			}
		}
		out = append(out, p)
	}
	return out
}
