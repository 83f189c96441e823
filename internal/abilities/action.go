package abilities

import (
	"fmt"

	"github.com/pixil98/go-clocktower/internal/game"
	"github.com/pixil98/go-clocktower/internal/rules"
)

func singleTarget(req Request, role string) (*game.Player, error) {
	if len(req.Targets) != 1 || req.Targets[0] == nil {
		return nil, fmt.Errorf("%w: %s needs 1 player", ErrBadTargets, role)
	}
	return req.Targets[0], nil
}

// Poisoner poisons a player each night. The poison lasts until the next dusk.
type Poisoner struct{}

func (Poisoner) HasFirstNightAbility() bool { return true }
func (Poisoner) HasOtherNightAbility() bool { return true }
func (Poisoner) Targets() rules.TargetRule {
	return rules.TargetRule{Count: 1, AllowSelf: true}
}

func (Poisoner) Execute(req Request) (Result, error) {
	t, err := singleTarget(req, RolePoisoner)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Role:    RolePoisoner,
		Actor:   req.Actor.Name,
		Effects: []Effect{{Kind: EffectPoison, Target: t.ID}},
		Targets: names(t),
	}, nil
}

// Monk protects another player from the demon tonight.
type Monk struct{}

func (Monk) HasFirstNightAbility() bool { return false }
func (Monk) HasOtherNightAbility() bool { return true }
func (Monk) Targets() rules.TargetRule  { return rules.TargetRule{Count: 1} }

func (Monk) Execute(req Request) (Result, error) {
	t, err := singleTarget(req, RoleMonk)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Role:    RoleMonk,
		Actor:   req.Actor.Name,
		Effects: []Effect{{Kind: EffectProtect, Target: t.ID}},
		Targets: names(t),
	}, nil
}

// Imp kills a player each night after the first. Passing the demon on by
// self-targeting is not supported.
type Imp struct{}

func (Imp) HasFirstNightAbility() bool { return false }
func (Imp) HasOtherNightAbility() bool { return true }
func (Imp) Targets() rules.TargetRule  { return rules.TargetRule{Count: 1} }

func (Imp) Execute(req Request) (Result, error) {
	t, err := singleTarget(req, RoleImp)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Role:    RoleImp,
		Actor:   req.Actor.Name,
		Effects: []Effect{{Kind: EffectKill, Target: t.ID}},
		Targets: names(t),
	}, nil
}

// Butler chooses a master each night and may only vote when they do.
type Butler struct{}

func (Butler) HasFirstNightAbility() bool { return true }
func (Butler) HasOtherNightAbility() bool { return true }
func (Butler) Targets() rules.TargetRule  { return rules.TargetRule{Count: 1} }

func (Butler) Execute(req Request) (Result, error) {
	t, err := singleTarget(req, RoleButler)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Role:     RoleButler,
		Actor:    req.Actor.Name,
		Disclose: true,
		Info:     fmt.Sprintf("%s is your master. You may only vote when they do.", t.Name),
		Effects:  []Effect{{Kind: EffectMarkMaster, Target: t.ID}},
		Targets:  names(t),
	}, nil
}

// Passive is the handler for characters without a night ability.
type Passive struct{}

func (Passive) HasFirstNightAbility() bool { return false }
func (Passive) HasOtherNightAbility() bool { return false }
func (Passive) Targets() rules.TargetRule  { return rules.TargetRule{} }

func (Passive) Execute(req Request) (Result, error) {
	return Result{Actor: req.Actor.Name}, nil
}
