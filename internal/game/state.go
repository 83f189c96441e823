package game

import (
	"fmt"
	"slices"
	"time"

	"golang.org/x/text/cases"
)

// Reminder tokens the engine itself places and reads.
const (
	TokenPoisoned      = "poisoned"
	TokenProtected     = "protected"
	TokenDrunk         = "drunk"
	TokenRedHerring    = "red_herring"
	TokenMaster        = "master"
	TokenExecuted      = "executed"
	TokenDiedTonight   = "died_tonight"
	TokenAbilityUsed   = "no_ability"
	TokenExecutedToday = "executed_today"
	TokenFormerDemon   = "former_demon"
	TokenSaintLoss     = "saint_loss"
)

var fold = cases.Fold()

// Nomination is one accusation made during a day.
type Nomination struct {
	Nominator string   `json:"nominator"`
	Nominee   string   `json:"nominee"`
	Day       int      `json:"day"`
	Votes     int      `json:"votes"`
	Voters    []string `json:"voters,omitempty"`
	Executed  bool     `json:"executed"`
	// Tallied is set once the vote has been counted.
	Tallied bool `json:"tallied"`
}

// State is the full mutable state of one game. The storyteller is the only
// writer; everything else reads it or works on a Snapshot.
type State struct {
	ID     string `json:"id"`
	Script string `json:"script"`
	Seed   int64  `json:"seed"`

	// Players is in seating order and never reordered.
	Players []*Player `json:"players"`

	Phase Phase `json:"phase"`
	Day   int   `json:"day"`
	Night int   `json:"night"`
	// NightStep is one more than the number of wake slots finished in the
	// current night, or zero when no night is under way.
	NightStep int `json:"night_step,omitempty"`

	Nominations   []*Nomination `json:"nominations"`
	ExecutedToday string        `json:"executed_today,omitempty"`
	LastExecuted  string        `json:"last_executed,omitempty"`

	// Bluffs are fixed at setup.
	Bluffs []string `json:"bluffs"`
	// Disclosed holds every fact a player has been told.
	Disclosed []Fact `json:"disclosed,omitempty"`

	Winner    Team      `json:"winner"`
	WinReason string    `json:"win_reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fact is one claim about the game that has been disclosed to a player.
type Fact struct {
	Subject   string `json:"subject"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

// NewState creates an empty game state in the setup phase.
func NewState(id, script string, seed int64) *State {
	now := time.Now()
	return &State{
		ID:        id,
		Script:    script,
		Seed:      seed,
		Phase:     PhaseSetup,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PlayerByName finds a player by case-insensitive name.
func (s *State) PlayerByName(name string) *Player {
	key := fold.String(name)
	for _, p := range s.Players {
		if fold.String(p.Name) == key {
			return p
		}
	}
	return nil
}

// PlayerByID finds a player by ID.
func (s *State) PlayerByID(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayersWithRole returns every player acting as role.
func (s *State) PlayersWithRole(role string) []*Player {
	var out []*Player
	for _, p := range s.Players {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

// Alive returns the living players in seat order.
func (s *State) Alive() []*Player {
	var out []*Player
	for _, p := range s.Players {
		if p.IsAlive() {
			out = append(out, p)
		}
	}
	return out
}

// AliveCount returns the number of living players.
func (s *State) AliveCount() int {
	n := 0
	for _, p := range s.Players {
		if p.IsAlive() {
			n++
		}
	}
	return n
}

// Demon returns the demon, alive or dead. A demon who has passed the role
// on is skipped.
func (s *State) Demon() (*Player, error) {
	var demon *Player
	for _, p := range s.Players {
		if p.Type != TypeDemon || p.HasReminder(TokenFormerDemon) {
			continue
		}
		if demon != nil {
			return nil, ErrMultipleDemons
		}
		demon = p
	}
	if demon == nil {
		return nil, ErrNoDemon
	}
	return demon, nil
}

// Minions returns every minion.
func (s *State) Minions() []*Player {
	var out []*Player
	for _, p := range s.Players {
		if p.Type == TypeMinion {
			out = append(out, p)
		}
	}
	return out
}

// InPlay reports whether any player holds role.
func (s *State) InPlay(role string) bool {
	return slices.ContainsFunc(s.Players, func(p *Player) bool { return p.Role == role })
}

// Neighbors returns the closest players on each side of p around the circle.
// With aliveOnly, dead players are skipped.
func (s *State) Neighbors(p *Player, aliveOnly bool) (left, right *Player) {
	n := len(s.Players)
	if n < 2 {
		return nil, nil
	}

	idx := slices.Index(s.Players, p)
	if idx < 0 {
		return nil, nil
	}

	for i := 1; i < n; i++ {
		c := s.Players[(idx-i+n)%n]
		if !aliveOnly || c.IsAlive() {
			left = c
			break
		}
	}
	for i := 1; i < n; i++ {
		c := s.Players[(idx+i)%n]
		if !aliveOnly || c.IsAlive() {
			right = c
			break
		}
	}

	return left, right
}

// NominatedToday reports whether name was nominated on the current day.
func (s *State) NominatedToday(name string) bool {
	key := fold.String(name)
	return slices.ContainsFunc(s.Nominations, func(n *Nomination) bool {
		return n.Day == s.Day && fold.String(n.Nominee) == key
	})
}

// NominatorToday reports whether name already made a nomination today.
func (s *State) NominatorToday(name string) bool {
	key := fold.String(name)
	return slices.ContainsFunc(s.Nominations, func(n *Nomination) bool {
		return n.Day == s.Day && fold.String(n.Nominator) == key
	})
}

// Touch records a modification time.
func (s *State) Touch() {
	s.UpdatedAt = time.Now()
}

// Validate checks the structural invariants of the state.
func (s *State) Validate() error {
	if len(s.Players) == 0 {
		return fmt.Errorf("%w: no players", ErrInvariant)
	}

	seats := make([]bool, len(s.Players))
	ids := make(map[string]bool, len(s.Players))
	for i, p := range s.Players {
		if p.Seat < 0 || p.Seat >= len(s.Players) || seats[p.Seat] {
			return fmt.Errorf("%w: seat %d is not a permutation slot", ErrInvariant, p.Seat)
		}
		if p.Seat != i {
			return fmt.Errorf("%w: player %q out of seat order", ErrInvariant, p.Name)
		}
		seats[p.Seat] = true

		if ids[p.ID] {
			return fmt.Errorf("%w: duplicate player id %q", ErrInvariant, p.ID)
		}
		ids[p.ID] = true
	}

	if s.NightStep < 0 || (s.NightStep > 0 && s.Phase != PhaseNight && s.Phase != PhaseFirstNight) {
		return fmt.Errorf("%w: night step %d in %s phase", ErrInvariant, s.NightStep, s.Phase)
	}

	if s.Phase != PhaseSetup {
		if _, err := s.Demon(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvariant, err)
		}
	}

	return nil
}

// Snapshot returns a deep copy that is safe to hand to other goroutines.
func (s *State) Snapshot() *State {
	c := *s
	c.Players = make([]*Player, len(s.Players))
	for i, p := range s.Players {
		c.Players[i] = p.clone()
	}
	c.Nominations = make([]*Nomination, len(s.Nominations))
	for i, n := range s.Nominations {
		nc := *n
		nc.Voters = slices.Clone(n.Voters)
		c.Nominations[i] = &nc
	}
	c.Bluffs = slices.Clone(s.Bluffs)
	c.Disclosed = slices.Clone(s.Disclosed)
	return &c
}
