// Package abilities resolves character abilities. Each playable role maps to
// a Handler; handlers read the game state and describe what happened in a
// Result, and the storyteller applies that Result to the state.
package abilities

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/pixil98/go-clocktower/internal/game"
	"github.com/pixil98/go-clocktower/internal/rules"
)

var (
	// ErrNoHandler is returned for a role nothing is registered for.
	ErrNoHandler = errors.New("no ability handler registered")
	// ErrBadTargets is returned when a handler is given the wrong targets.
	ErrBadTargets = errors.New("invalid ability targets")
)

// Handler is the capability set every role implements.
type Handler interface {
	HasFirstNightAbility() bool
	HasOtherNightAbility() bool
	// Targets describes the players the actor must choose before Execute.
	// A zero Count means the ability takes no choice.
	Targets() rules.TargetRule
	Execute(req Request) (Result, error)
}

// Waker is implemented by handlers with their own rule for whether the
// holder is woken. Without it only living players wake.
type Waker interface {
	Wakes(req Request) bool
}

// Distortable is implemented by handlers whose information can be falsified.
// Alternatives returns plausible results that differ from truth.
type Distortable interface {
	Alternatives(req Request, truth Result) []Result
}

// RoleBook lists the roles of the active script by type.
type RoleBook interface {
	RolesOfType(t game.CharacterType) []string
}

// Request is one invocation of an ability. State is shared with the
// storyteller and must only be read.
type Request struct {
	State   *game.State
	Actor   *game.Player
	Targets []*game.Player
	First   bool
	// Tick identifies the resolution step; repeated requests with the same
	// tick resolve identically.
	Tick  int
	Roles RoleBook
}

func (r Request) rng(salt string) *rand.Rand {
	return rand.New(rand.NewSource(Seed(r.State.Seed, r.Tick, r.Actor.ID, salt)))
}

// Seed derives a deterministic random seed from a game seed, a tick and any
// number of qualifying strings.
func Seed(gameSeed int64, tick int, parts ...string) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d/%d", gameSeed, tick)
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return int64(h.Sum64())
}

// EffectKind is a state change an ability asks for.
type EffectKind int

const (
	EffectKill EffectKind = iota
	EffectProtect
	EffectPoison
	EffectDrunk
	EffectReminder
	EffectMarkMaster
)

var effectNames = map[EffectKind]string{
	EffectKill:       "kill",
	EffectProtect:    "protect",
	EffectPoison:     "poison",
	EffectDrunk:      "drunk",
	EffectReminder:   "reminder",
	EffectMarkMaster: "master",
}

func (k EffectKind) String() string {
	if s, ok := effectNames[k]; ok {
		return s
	}
	return fmt.Sprintf("effect(%d)", int(k))
}

// IsStatus reports whether the effect changes life, protection or poison.
// Status effects from an impaired actor never take hold.
func (k EffectKind) IsStatus() bool {
	switch k {
	case EffectKill, EffectProtect, EffectPoison, EffectDrunk:
		return true
	}
	return false
}

// Effect targets a player by ID.
type Effect struct {
	Kind   EffectKind
	Target string
	// Token and Note are used by EffectReminder.
	Token string
	Note  string
}

// Fact attributes recorded in the Ledger.
const (
	AttrRole       = "role"
	AttrDemon      = "demon"
	AttrEvil       = "evil"
	AttrOneOf      = "one_of"
	AttrDemonAmong = "demon_among"
	AttrInPlay     = "in_play"
	AttrEvilPairs  = "evil_pairs"
)

// Fact is one claim an ability result makes about the game.
type Fact = game.Fact

// Result is what a single ability invocation produced.
type Result struct {
	Role  string
	Actor string
	// Disclose is set when Info must be delivered to the actor.
	Disclose bool
	Info     string
	Effects  []Effect
	// Targets names the players the result concerns.
	Targets  []string
	Facts    []Fact
	Truthful bool
}

// Resolve executes h and passes the result through d when the actor is
// drunk or poisoned. Status effects of an impaired actor are dropped.
func Resolve(h Handler, req Request, d *Distorter) (Result, error) {
	res, err := h.Execute(req)
	if err != nil {
		return Result{}, err
	}
	res.Truthful = true

	if !req.Actor.Impaired() {
		return res, nil
	}

	if d != nil {
		res = d.Distort(h, req, res)
	}

	kept := make([]Effect, 0, len(res.Effects))
	for _, e := range res.Effects {
		if !e.Kind.IsStatus() {
			kept = append(kept, e)
		}
	}
	res.Effects = kept
	return res, nil
}

// Wakes reports whether the holder of h is woken for req.
func Wakes(h Handler, req Request) bool {
	if w, ok := h.(Waker); ok {
		return w.Wakes(req)
	}
	return req.Actor.IsAlive()
}

// HasAbility reports whether h acts on the given night.
func HasAbility(h Handler, first bool) bool {
	if first {
		return h.HasFirstNightAbility()
	}
	return h.HasOtherNightAbility()
}
