// Package script provides character and script definitions loaded from
// asset files, and answers the questions the storyteller asks about them.
package script

import (
	"fmt"

	"github.com/pixil98/go-clocktower/internal/game"
	"github.com/pixil98/go-errors"
)

// Role is a character definition.
type Role struct {
	Name    string             `json:"name"`
	Type    game.CharacterType `json:"type"`
	Ability string             `json:"ability"`

	// ExtraOutsiders adjusts the distribution while the role is in play.
	ExtraOutsiders int `json:"extra_outsiders,omitempty"`
	// MasksAs makes the holder believe they are a character of this type
	// that is not in play.
	MasksAs game.CharacterType `json:"masks_as,omitempty"`

	Reminders []string `json:"reminders,omitempty"`
}

func (r *Role) Validate() error {
	el := errors.NewErrorList()

	if r.Name == "" {
		el.Add(fmt.Errorf("name must be set"))
	}

	switch r.Type {
	case game.TypeTownsfolk, game.TypeOutsider, game.TypeMinion, game.TypeDemon, game.TypeTraveler:
	default:
		el.Add(fmt.Errorf("type %q is not a character type", r.Type))
	}

	if r.MasksAs == game.TypeMinion || r.MasksAs == game.TypeDemon {
		el.Add(fmt.Errorf("masks_as must be a good character type"))
	}

	return el.Err()
}

func (r *Role) Selector() string {
	return r.Name
}
