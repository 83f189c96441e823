package script

import (
	"fmt"

	"github.com/pixil98/go-clocktower/internal/storage"
	"github.com/pixil98/go-errors"
)

// Counts is one row of a script's distribution table.
type Counts struct {
	Players   int `json:"players"`
	Townsfolk int `json:"townsfolk"`
	Outsiders int `json:"outsiders"`
	Minions   int `json:"minions"`
	Demons    int `json:"demons"`
}

func (c Counts) total() int {
	return c.Townsfolk + c.Outsiders + c.Minions + c.Demons
}

// Script is an edition: its character pool, night orders and table rules.
type Script struct {
	Name   string `json:"name"`
	Author string `json:"author,omitempty"`

	Roles      []storage.Ref[*Role] `json:"roles"`
	FirstNight []storage.Ref[*Role] `json:"first_night"`
	OtherNight []storage.Ref[*Role] `json:"other_night"`

	Distribution []Counts `json:"distribution"`

	AllowSelfNomination bool `json:"allow_self_nomination,omitempty"`
	ExecutionsPerDay    int  `json:"executions_per_day,omitempty"`
}

func (s *Script) Validate() error {
	el := errors.NewErrorList()

	if s.Name == "" {
		el.Add(fmt.Errorf("name must be set"))
	}
	if len(s.Roles) == 0 {
		el.Add(fmt.Errorf("roles must not be empty"))
	}
	for _, r := range s.Roles {
		el.Add(r.Validate())
	}
	for _, r := range s.FirstNight {
		el.Add(r.Validate())
	}
	for _, r := range s.OtherNight {
		el.Add(r.Validate())
	}

	if len(s.Distribution) == 0 {
		el.Add(fmt.Errorf("distribution must not be empty"))
	}
	seen := map[int]bool{}
	for _, c := range s.Distribution {
		if seen[c.Players] {
			el.Add(fmt.Errorf("distribution for %d players defined twice", c.Players))
		}
		seen[c.Players] = true
		if c.total() != c.Players {
			el.Add(fmt.Errorf("distribution for %d players sums to %d", c.Players, c.total()))
		}
		if c.Demons != 1 {
			el.Add(fmt.Errorf("distribution for %d players must have exactly one demon", c.Players))
		}
	}

	if s.ExecutionsPerDay < 0 {
		el.Add(fmt.Errorf("executions_per_day must not be negative"))
	}

	return el.Err()
}

func (s *Script) Selector() string {
	return s.Name
}

// resolve binds every role reference against roles.
func (s *Script) resolve(roles storage.Storer[*Role]) error {
	el := errors.NewErrorList()
	for _, list := range [][]storage.Ref[*Role]{s.Roles, s.FirstNight, s.OtherNight} {
		for i := range list {
			el.Add(list[i].Resolve(roles))
		}
	}
	return el.Err()
}

// counts returns the distribution row for n players. Beyond the largest row
// the extra seats are filled with townsfolk.
func (s *Script) counts(n int) (Counts, bool) {
	var largest Counts
	for _, c := range s.Distribution {
		if c.Players == n {
			return c, true
		}
		if c.Players > largest.Players {
			largest = c
		}
	}
	if largest.Players == 0 || n < largest.Players {
		return Counts{}, false
	}
	largest.Townsfolk += n - largest.Players
	largest.Players = n
	return largest, true
}
