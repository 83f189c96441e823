package rules

import (
	"github.com/pixil98/go-clocktower/internal/game"
)

// TargetRule describes the players an ability may choose.
type TargetRule struct {
	Count     int
	AllowSelf bool
	AllowDead bool
}

// ValidateTargets checks a chosen target list against rule.
func ValidateTargets(rule TargetRule, chooser *game.Player, targets []*game.Player) error {
	if len(targets) != rule.Count {
		return reject("choose exactly %d player(s)", rule.Count)
	}

	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if t == nil {
			return reject("unknown player")
		}
		if seen[t.ID] {
			return reject("%s was chosen twice", t.Name)
		}
		seen[t.ID] = true

		if !rule.AllowSelf && t.ID == chooser.ID {
			return reject("you cannot choose yourself")
		}
		if !rule.AllowDead && !t.IsAlive() {
			return reject("%s is dead", t.Name)
		}
	}
	return nil
}
