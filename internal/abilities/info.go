package abilities

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/pixil98/go-clocktower/internal/game"
	"github.com/pixil98/go-clocktower/internal/rules"
)

// oneOf implements the "one of two players is a particular character" family.
type oneOf struct {
	role  string
	kind  game.CharacterType
	label string
}

func (o oneOf) execute(req Request) Result {
	rng := req.rng(o.role)

	var candidates []*game.Player
	for _, p := range others(req.State, req.Actor) {
		if trueType(p) == o.kind {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return o.none(req)
	}

	target := candidates[rng.Intn(len(candidates))]
	pool := others(req.State, req.Actor, target)
	if len(pool) == 0 {
		return o.none(req)
	}
	decoy := pool[rng.Intn(len(pool))]
	return o.claim(req, rng, target, decoy, trueRole(target))
}

func (o oneOf) claim(req Request, rng *rand.Rand, a, b *game.Player, role string) Result {
	if rng.Intn(2) == 0 {
		a, b = b, a
	}
	return Result{
		Role:     o.role,
		Actor:    req.Actor.Name,
		Disclose: true,
		Info:     fmt.Sprintf("One of %s or %s is the %s.", a.Name, b.Name, role),
		Targets:  names(a, b),
		Facts: []Fact{
			{Subject: pairSubject(a, b), Attribute: AttrOneOf, Value: role},
			{Subject: o.kind.String(), Attribute: AttrInPlay, Value: "yes"},
		},
	}
}

func (o oneOf) none(req Request) Result {
	return Result{
		Role:     o.role,
		Actor:    req.Actor.Name,
		Disclose: true,
		Info:     fmt.Sprintf("You learn that there are no %s in play.", o.label),
		Facts:    []Fact{{Subject: o.kind.String(), Attribute: AttrInPlay, Value: "no"}},
	}
}

func (o oneOf) alternatives(req Request, truth Result) []Result {
	rng := req.rng(o.role + "/alt")

	var out []Result
	if req.Roles != nil {
		for _, role := range req.Roles.RolesOfType(o.kind) {
			if role == req.Actor.Role {
				continue
			}
			var pool []*game.Player
			for _, p := range others(req.State, req.Actor) {
				if trueRole(p) != role {
					pool = append(pool, p)
				}
			}
			if len(pool) < 2 {
				continue
			}
			rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
			out = append(out, o.claim(req, rng, pool[0], pool[1], role))
		}
	}

	if len(truth.Targets) > 0 {
		out = append(out, o.none(req))
	}
	return out
}

// Washerwoman learns that one of two players is a particular Townsfolk.
type Washerwoman struct{}

func (Washerwoman) HasFirstNightAbility() bool { return true }
func (Washerwoman) HasOtherNightAbility() bool { return false }
func (Washerwoman) Targets() rules.TargetRule  { return rules.TargetRule{} }

func (Washerwoman) oneOf() oneOf {
	return oneOf{role: RoleWasherwoman, kind: game.TypeTownsfolk, label: "Townsfolk"}
}

func (w Washerwoman) Execute(req Request) (Result, error) {
	return w.oneOf().execute(req), nil
}

func (w Washerwoman) Alternatives(req Request, truth Result) []Result {
	return w.oneOf().alternatives(req, truth)
}

// Librarian learns that one of two players is a particular Outsider, or that
// none are in play.
type Librarian struct{}

func (Librarian) HasFirstNightAbility() bool { return true }
func (Librarian) HasOtherNightAbility() bool { return false }
func (Librarian) Targets() rules.TargetRule  { return rules.TargetRule{} }

func (Librarian) oneOf() oneOf {
	return oneOf{role: RoleLibrarian, kind: game.TypeOutsider, label: "Outsiders"}
}

func (l Librarian) Execute(req Request) (Result, error) {
	return l.oneOf().execute(req), nil
}

func (l Librarian) Alternatives(req Request, truth Result) []Result {
	return l.oneOf().alternatives(req, truth)
}

// Investigator learns that one of two players is a particular Minion.
type Investigator struct{}

func (Investigator) HasFirstNightAbility() bool { return true }
func (Investigator) HasOtherNightAbility() bool { return false }
func (Investigator) Targets() rules.TargetRule  { return rules.TargetRule{} }

func (Investigator) oneOf() oneOf {
	return oneOf{role: RoleInvestigator, kind: game.TypeMinion, label: "Minions"}
}

func (i Investigator) Execute(req Request) (Result, error) {
	return i.oneOf().execute(req), nil
}

func (i Investigator) Alternatives(req Request, truth Result) []Result {
	return i.oneOf().alternatives(req, truth)
}

// Chef learns how many pairs of evil players sit next to each other.
type Chef struct{}

func (Chef) HasFirstNightAbility() bool { return true }
func (Chef) HasOtherNightAbility() bool { return false }
func (Chef) Targets() rules.TargetRule  { return rules.TargetRule{} }

func (Chef) Execute(req Request) (Result, error) {
	rng := req.rng(RoleChef)
	players := req.State.Players
	n := len(players)

	evil := make([]bool, n)
	for i, p := range players {
		evil[i] = registersEvil(p, rng)
	}

	pairs := 0
	if n > 2 {
		for i := range n {
			if evil[i] && evil[(i+1)%n] {
				pairs++
			}
		}
	}
	return chefResult(req, pairs), nil
}

func (Chef) Alternatives(req Request, truth Result) []Result {
	var out []Result
	for v := range 4 {
		if strconv.Itoa(v) != factValue(truth, AttrEvilPairs) {
			out = append(out, chefResult(req, v))
		}
	}
	return out
}

func chefResult(req Request, pairs int) Result {
	return Result{
		Role:     RoleChef,
		Actor:    req.Actor.Name,
		Disclose: true,
		Info:     fmt.Sprintf("You learn that there are %d pairs of evil players sitting together.", pairs),
		Facts:    []Fact{{Attribute: AttrEvilPairs, Value: strconv.Itoa(pairs)}},
	}
}

// Empath learns how many of their living neighbours are evil.
type Empath struct{}

func (Empath) HasFirstNightAbility() bool { return true }
func (Empath) HasOtherNightAbility() bool { return true }
func (Empath) Targets() rules.TargetRule  { return rules.TargetRule{} }

func (Empath) neighbors(req Request) []*game.Player {
	left, right := req.State.Neighbors(req.Actor, true)
	var out []*game.Player
	if left != nil {
		out = append(out, left)
	}
	if right != nil && right != left {
		out = append(out, right)
	}
	return out
}

func (e Empath) Execute(req Request) (Result, error) {
	rng := req.rng(RoleEmpath)
	neighbors := e.neighbors(req)

	count := 0
	for _, n := range neighbors {
		if registersEvil(n, rng) {
			count++
		}
	}
	return empathResult(req, neighbors, count), nil
}

func (e Empath) Alternatives(req Request, truth Result) []Result {
	neighbors := e.neighbors(req)
	var out []Result
	for v := 0; v <= len(neighbors); v++ {
		if strconv.Itoa(v) != factValue(truth, AttrEvil) {
			out = append(out, empathResult(req, neighbors, v))
		}
	}
	return out
}

func empathResult(req Request, neighbors []*game.Player, count int) Result {
	res := Result{
		Role:     RoleEmpath,
		Actor:    req.Actor.Name,
		Disclose: true,
		Info:     fmt.Sprintf("You learn that %d of your living neighbours are evil.", count),
		Targets:  names(neighbors...),
		Facts:    []Fact{{Subject: fmt.Sprintf("neighbors:%s@%d", req.Actor.ID, req.Tick), Attribute: AttrEvil, Value: strconv.Itoa(count)}},
	}
	// Only the extremes pin down individual alignments.
	switch count {
	case 0:
		for _, n := range neighbors {
			res.Facts = append(res.Facts, Fact{Subject: n.ID, Attribute: AttrEvil, Value: "no"})
		}
	case len(neighbors):
		for _, n := range neighbors {
			res.Facts = append(res.Facts, Fact{Subject: n.ID, Attribute: AttrEvil, Value: "yes"})
		}
	}
	return res
}

// FortuneTeller chooses two players and learns whether either is the demon.
// One good player registers as the demon to them.
type FortuneTeller struct{}

func (FortuneTeller) HasFirstNightAbility() bool { return true }
func (FortuneTeller) HasOtherNightAbility() bool { return true }
func (FortuneTeller) Targets() rules.TargetRule {
	return rules.TargetRule{Count: 2, AllowSelf: true, AllowDead: true}
}

func (FortuneTeller) Execute(req Request) (Result, error) {
	if len(req.Targets) != 2 {
		return Result{}, fmt.Errorf("%w: fortune teller needs 2 players", ErrBadTargets)
	}
	rng := req.rng(RoleFortuneTeller)

	yes := false
	for _, t := range req.Targets {
		if registersDemon(t, rng) || t.HasReminder(game.TokenRedHerring) {
			yes = true
		}
	}
	return fortuneResult(req, yes), nil
}

func (FortuneTeller) Alternatives(req Request, truth Result) []Result {
	if len(req.Targets) != 2 {
		return nil
	}
	return []Result{fortuneResult(req, factValue(truth, AttrDemonAmong) != "yes")}
}

func fortuneResult(req Request, yes bool) Result {
	a, b := req.Targets[0], req.Targets[1]
	res := Result{
		Role:     RoleFortuneTeller,
		Actor:    req.Actor.Name,
		Disclose: true,
		Targets:  names(a, b),
		Facts:    []Fact{{Subject: pairSubject(a, b), Attribute: AttrDemonAmong, Value: yesNo(yes)}},
	}
	if yes {
		res.Info = fmt.Sprintf("Yes, one of %s and %s is the Demon.", a.Name, b.Name)
		return res
	}
	res.Info = fmt.Sprintf("No, neither %s nor %s is the Demon.", a.Name, b.Name)
	res.Facts = append(res.Facts,
		Fact{Subject: a.ID, Attribute: AttrDemon, Value: "no"},
		Fact{Subject: b.ID, Attribute: AttrDemon, Value: "no"},
	)
	return res
}

// Undertaker learns which character was executed today.
type Undertaker struct{}

func (Undertaker) HasFirstNightAbility() bool { return false }
func (Undertaker) HasOtherNightAbility() bool { return true }
func (Undertaker) Targets() rules.TargetRule  { return rules.TargetRule{} }

func (Undertaker) Wakes(req Request) bool {
	return req.Actor.IsAlive() && !req.First && req.State.ExecutedToday != ""
}

func (Undertaker) Execute(req Request) (Result, error) {
	executed := req.State.PlayerByID(req.State.ExecutedToday)
	if executed == nil {
		return Result{Role: RoleUndertaker, Actor: req.Actor.Name}, nil
	}
	return roleResult(req, RoleUndertaker, executed, trueRole(executed), "%s was the %s."), nil
}

func (Undertaker) Alternatives(req Request, truth Result) []Result {
	executed := req.State.PlayerByID(req.State.ExecutedToday)
	if executed == nil {
		return nil
	}
	return roleAlternatives(req, RoleUndertaker, executed, truth, "%s was the %s.")
}

// Ravenkeeper learns a chosen player's character when killed at night.
type Ravenkeeper struct{}

func (Ravenkeeper) HasFirstNightAbility() bool { return false }
func (Ravenkeeper) HasOtherNightAbility() bool { return true }
func (Ravenkeeper) Targets() rules.TargetRule {
	return rules.TargetRule{Count: 1, AllowSelf: true, AllowDead: true}
}

func (Ravenkeeper) Wakes(req Request) bool {
	return !req.First && req.Actor.HasReminder(game.TokenDiedTonight)
}

func (Ravenkeeper) Execute(req Request) (Result, error) {
	if len(req.Targets) != 1 {
		return Result{}, fmt.Errorf("%w: ravenkeeper needs 1 player", ErrBadTargets)
	}
	t := req.Targets[0]
	return roleResult(req, RoleRavenkeeper, t, trueRole(t), "%s is the %s."), nil
}

func (Ravenkeeper) Alternatives(req Request, truth Result) []Result {
	if len(req.Targets) != 1 {
		return nil
	}
	return roleAlternatives(req, RoleRavenkeeper, req.Targets[0], truth, "%s is the %s.")
}

func roleResult(req Request, role string, subject *game.Player, shown, format string) Result {
	return Result{
		Role:     role,
		Actor:    req.Actor.Name,
		Disclose: true,
		Info:     fmt.Sprintf(format, subject.Name, shown),
		Targets:  names(subject),
		Facts:    []Fact{{Subject: subject.ID, Attribute: AttrRole, Value: shown}},
	}
}

func roleAlternatives(req Request, role string, subject *game.Player, truth Result, format string) []Result {
	if req.Roles == nil {
		return nil
	}
	shown := factValue(truth, AttrRole)

	var out []Result
	for _, t := range []game.CharacterType{game.TypeTownsfolk, game.TypeOutsider, game.TypeMinion, game.TypeDemon} {
		for _, r := range req.Roles.RolesOfType(t) {
			if r != shown {
				out = append(out, roleResult(req, role, subject, r, format))
			}
		}
	}
	return out
}

// Spy sees the grimoire each night.
type Spy struct{}

func (Spy) HasFirstNightAbility() bool { return true }
func (Spy) HasOtherNightAbility() bool { return true }
func (Spy) Targets() rules.TargetRule  { return rules.TargetRule{} }

func (Spy) Execute(req Request) (Result, error) {
	var b strings.Builder
	b.WriteString("The grimoire:")
	for _, p := range req.State.Players {
		fmt.Fprintf(&b, "\n  %d. %s: %s (%s)", p.Seat+1, p.Name, trueRole(p), p.Status)
		if p.Drunk {
			fmt.Fprintf(&b, ", believes they are the %s", p.Role)
		}
		if p.Poisoned {
			b.WriteString(", poisoned")
		}
	}
	return Result{
		Role:     RoleSpy,
		Actor:    req.Actor.Name,
		Disclose: true,
		Info:     b.String(),
	}, nil
}

func factValue(res Result, attr string) string {
	for _, f := range res.Facts {
		if f.Attribute == attr {
			return f.Value
		}
	}
	return ""
}
